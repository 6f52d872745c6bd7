package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"persona-forge/internal/domain"
	"persona-forge/internal/llm"
	"persona-forge/internal/repository"
	"persona-forge/internal/service"
)

type failingPersonaRepo struct {
	repository.PersonaRepository
	err error
}

func (f failingPersonaRepo) List(context.Context) ([]domain.Persona, error) { return nil, f.err }
func (f failingPersonaRepo) Put(context.Context, domain.Persona) error      { return f.err }

type testServer struct {
	router *gin.Engine
	editor *service.PersonaEditor
	repo   repository.PersonaRepository
}

type denyAllLimiter struct{ calls int }

func (d *denyAllLimiter) Allow(string) bool {
	d.calls++
	return false
}

func setupRouter(t *testing.T, repo repository.PersonaRepository, llmClient llm.LLMClient) testServer {
	return setupRouterWithLimiter(t, repo, llmClient, nil)
}

func setupRouterWithLimiter(t *testing.T, repo repository.PersonaRepository, llmClient llm.LLMClient, limiter service.PreviewLimiter) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	notifications := service.NewNotificationChannel(time.Minute)
	t.Cleanup(notifications.Close)
	editor := service.NewPersonaEditor(
		zap.NewNop(),
		service.NewDraftStore(nil),
		service.NewCollectionStore(zap.NewNop(), repo, time.Second),
		notifications,
		service.NewProgressTracker(),
	)
	var (
		preview   *service.PreviewService
		suggester *service.TraitSuggester
	)
	if llmClient != nil {
		preview = service.NewPreviewService(llmClient, zap.NewNop())
		suggester = service.NewTraitSuggester(llmClient, zap.NewNop())
	}
	r := NewRouter(
		zap.NewNop(),
		NewDraftHandler(zap.NewNop(), editor, preview, suggester, limiter),
		NewPersonaHandler(zap.NewNop(), editor),
		NewNotificationHandler(notifications),
	)
	return testServer{router: r, editor: editor, repo: repo}
}

func performRequest(r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	var payload []byte
	switch b := body.(type) {
	case nil:
	case []byte:
		payload = b
	default:
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
}

type draftResponse struct {
	Draft service.DraftSnapshot `json:"draft"`
}

func TestRouterEditAndSaveDraft(t *testing.T) {
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), nil)

	rec := performRequest(srv.router, http.MethodPut, "/draft/traits/communicationStyle/formality", map[string]float64{"value": 0.8})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp draftResponse
	decodeBody(t, rec, &resp)
	if resp.Draft.Persona.Traits.CommunicationStyle.Formality != 0.8 || !resp.Draft.IsDirty {
		t.Fatalf("unexpected draft %+v", resp.Draft)
	}

	rec = performRequest(srv.router, http.MethodPut, "/draft/name", map[string]string{"name": "Ada"})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequest(srv.router, http.MethodPost, "/draft/save", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(srv.router, http.MethodGet, "/personas?refresh=true", nil)
	var list struct {
		Personas []domain.Persona `json:"personas"`
	}
	decodeBody(t, rec, &list)
	if len(list.Personas) != 1 || list.Personas[0].Name != "Ada" {
		t.Fatalf("expected saved persona in list, got %+v", list.Personas)
	}

	rec = performRequest(srv.router, http.MethodGet, "/personas/"+list.Personas[0].ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	rec = performRequest(srv.router, http.MethodGet, "/notifications", nil)
	if !strings.Contains(rec.Body.String(), "Persona 'Ada' saved successfully!") {
		t.Fatalf("expected save notification, got %s", rec.Body.String())
	}
}

func TestRouterDraftErrors(t *testing.T) {
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "unknown category", method: http.MethodPut, path: "/draft/traits/humor/wit", body: map[string]float64{"value": 0.2}, want: http.StatusBadRequest},
		{name: "out of range", method: http.MethodPut, path: "/draft/traits/creativity/originality", body: map[string]float64{"value": 1.2}, want: http.StatusBadRequest},
		{name: "missing value", method: http.MethodPut, path: "/draft/traits/creativity/originality", body: map[string]string{}, want: http.StatusBadRequest},
		{name: "missing name", method: http.MethodPut, path: "/draft/name", body: map[string]string{}, want: http.StatusBadRequest},
		{name: "unknown section", method: http.MethodPut, path: "/draft/progress/section", body: map[string]string{"section": "humor"}, want: http.StatusBadRequest},
		{name: "bad import", method: http.MethodPost, path: "/draft/import", body: []byte(`{"name":"x"}`), want: http.StatusBadRequest},
		{name: "preview offline", method: http.MethodPost, path: "/draft/preview", body: nil, want: http.StatusServiceUnavailable},
		{name: "unknown persona", method: http.MethodGet, path: "/personas/nope", want: http.StatusNotFound},
		{name: "edit unknown persona", method: http.MethodPost, path: "/personas/nope/edit", want: http.StatusNotFound},
		{name: "delete unknown persona", method: http.MethodDelete, path: "/personas/nope", want: http.StatusNotFound},
		{name: "bad similar limit", method: http.MethodGet, path: "/personas/nope/similar?limit=zero", want: http.StatusBadRequest},
		{name: "dismiss unknown notification", method: http.MethodDelete, path: "/notifications/nope", want: http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := performRequest(srv.router, tt.method, tt.path, tt.body)
			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouterSaveRejectsBlankName(t *testing.T) {
	repo := repository.NewMemoryPersonaRepository()
	srv := setupRouter(t, repo, nil)

	performRequest(srv.router, http.MethodPut, "/draft/name", map[string]string{"name": "  "})
	rec := performRequest(srv.router, http.MethodPost, "/draft/save", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rec.Code)
	}
	stored, _ := repo.List(context.Background())
	if len(stored) != 0 {
		t.Fatalf("expected nothing persisted")
	}
}

func TestRouterPersistenceFailure(t *testing.T) {
	srv := setupRouter(t, failingPersonaRepo{err: errors.New("db down")}, nil)

	rec := performRequest(srv.router, http.MethodGet, "/personas", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	rec = performRequest(srv.router, http.MethodPost, "/draft/save", nil)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "db down") {
		t.Fatalf("5xx responses must not leak backend errors")
	}
}

func TestRouterExportImport(t *testing.T) {
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), nil)
	performRequest(srv.router, http.MethodPut, "/draft/name", map[string]string{"name": "Export Me"})
	original := srv.editor.Draft().Current()

	rec := performRequest(srv.router, http.MethodGet, "/draft/export", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	disposition := rec.Header().Get("Content-Disposition")
	if !strings.Contains(disposition, "persona_Export_Me_"+original.ID[:8]+".json") {
		t.Fatalf("unexpected content disposition %q", disposition)
	}
	exported := rec.Body.Bytes()

	performRequest(srv.router, http.MethodPost, "/draft/reset", nil)
	rec = performRequest(srv.router, http.MethodPost, "/draft/import", exported)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp draftResponse
	decodeBody(t, rec, &resp)
	if resp.Draft.Persona.ID != original.ID || resp.Draft.Persona.Metadata.Version != original.Metadata.Version+1 {
		t.Fatalf("unexpected imported draft %+v", resp.Draft.Persona)
	}
}

func TestRouterEditDeleteAndSimilar(t *testing.T) {
	repo := repository.NewMemoryPersonaRepository()
	a := domain.NewPersona(time.Now())
	a.Name = "Alpha"
	b := domain.NewPersona(time.Now())
	b.Name = "Beta"
	_ = repo.Put(context.Background(), a)
	_ = repo.Put(context.Background(), b)
	srv := setupRouter(t, repo, nil)

	rec := performRequest(srv.router, http.MethodGet, "/personas/"+a.ID+"/similar", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), b.ID) {
		t.Fatalf("expected beta as similar, got %d %s", rec.Code, rec.Body.String())
	}

	rec = performRequest(srv.router, http.MethodPost, "/personas/"+a.ID+"/edit", nil)
	var resp draftResponse
	decodeBody(t, rec, &resp)
	if resp.Draft.Persona.ID != a.ID || resp.Draft.Persona.Metadata.Version != 2 || resp.Draft.IsDirty {
		t.Fatalf("unexpected loaded draft %+v", resp.Draft)
	}

	rec = performRequest(srv.router, http.MethodDelete, "/personas/"+b.ID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	stored, _ := repo.List(context.Background())
	if len(stored) != 1 || stored[0].ID != a.ID {
		t.Fatalf("expected beta removed from backend, got %+v", stored)
	}
}

func TestRouterPromptPreviewAndSchema(t *testing.T) {
	mock := &llm.MockClient{Response: "Hi there."}
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), mock)

	rec := performRequest(srv.router, http.MethodPost, "/draft/preview", map[string]string{"message": "Hello?"})
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Hi there.") {
		t.Fatalf("unexpected preview response %d %s", rec.Code, rec.Body.String())
	}
	if mock.LastUserText != "Hello?" {
		t.Fatalf("expected message forwarded, got %q", mock.LastUserText)
	}

	rec = performRequest(srv.router, http.MethodGet, "/draft/prompt", nil)
	if !strings.Contains(rec.Body.String(), "PERSONALITY TRAITS") {
		t.Fatalf("expected prompt body, got %s", rec.Body.String())
	}

	rec = performRequest(srv.router, http.MethodGet, "/schema", nil)
	var schema struct {
		Categories []domain.TraitCategory `json:"categories"`
	}
	decodeBody(t, rec, &schema)
	if len(schema.Categories) != 6 {
		t.Fatalf("expected 6 categories, got %d", len(schema.Categories))
	}

	rec = performRequest(srv.router, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
}

func TestRouterPreviewRateLimited(t *testing.T) {
	limiter := &denyAllLimiter{}
	mock := &llm.MockClient{Response: "unused"}
	srv := setupRouterWithLimiter(t, repository.NewMemoryPersonaRepository(), mock, limiter)

	rec := performRequest(srv.router, http.MethodPost, "/draft/preview", nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if limiter.calls != 1 || mock.LastUserText != "" {
		t.Fatalf("expected llm not to be called when limited")
	}
}

func TestRouterSuggestTraits(t *testing.T) {
	mock := &llm.MockClient{Response: `{"traits":{"emotionalRange":{"empathy":0.9},"creativity":{"originality":0.7}}}`}
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), mock)

	rec := performRequest(srv.router, http.MethodPost, "/draft/suggest", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400 without description, got %d", rec.Code)
	}

	performRequest(srv.router, http.MethodPut, "/draft/description", map[string]string{"description": "A gentle inventor."})
	rec = performRequest(srv.router, http.MethodPost, "/draft/suggest", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if srv.editor.Draft().Current().Traits.EmotionalRange.Empathy == 0.9 {
		t.Fatalf("expected draft untouched without apply")
	}

	rec = performRequest(srv.router, http.MethodPost, "/draft/suggest?apply=true", nil)
	var resp struct {
		Suggestions []service.TraitSuggestion `json:"suggestions"`
		Draft       service.DraftSnapshot     `json:"draft"`
	}
	decodeBody(t, rec, &resp)
	if len(resp.Suggestions) != 2 {
		t.Fatalf("expected 2 suggestions, got %+v", resp.Suggestions)
	}
	if resp.Draft.Persona.Traits.EmotionalRange.Empathy != 0.9 || resp.Draft.Persona.Traits.Creativity.Originality != 0.7 {
		t.Fatalf("expected suggestions applied, got %+v", resp.Draft.Persona.Traits)
	}
}

func TestRouterSuggestTraitsOffline(t *testing.T) {
	srv := setupRouter(t, repository.NewMemoryPersonaRepository(), nil)
	performRequest(srv.router, http.MethodPut, "/draft/description", map[string]string{"description": "x"})
	rec := performRequest(srv.router, http.MethodPost, "/draft/suggest", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}
}
