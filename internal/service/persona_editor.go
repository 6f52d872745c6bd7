package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"persona-forge/internal/domain"
)

// PersonaEditor coordina borrador, coleccion y notificaciones.
// Todo error se convierte en una notificacion y ademas se devuelve al llamador.
type PersonaEditor struct {
	logger     *zap.Logger
	draft      *DraftStore
	collection *CollectionStore
	notifier   *NotificationChannel
	progress   *ProgressTracker
}

func NewPersonaEditor(
	logger *zap.Logger,
	draft *DraftStore,
	collection *CollectionStore,
	notifier *NotificationChannel,
	progress *ProgressTracker,
) *PersonaEditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progress == nil {
		progress = NewProgressTracker()
	}
	return &PersonaEditor{
		logger:     logger,
		draft:      draft,
		collection: collection,
		notifier:   notifier,
		progress:   progress,
	}
}

func (e *PersonaEditor) Draft() *DraftStore                  { return e.draft }
func (e *PersonaEditor) Collection() *CollectionStore        { return e.collection }
func (e *PersonaEditor) Notifications() *NotificationChannel { return e.notifier }
func (e *PersonaEditor) Progress() *ProgressTracker          { return e.progress }

// Save guarda el borrador en la coleccion: inserta si el id es nuevo, si no actualiza.
// La copia guardada lleva el mismo lastModified que MarkSaved deja en el borrador.
func (e *PersonaEditor) Save(ctx context.Context) (domain.Persona, error) {
	persona, revision := e.draft.PendingSave()
	if err := persona.ValidateForSave(); err != nil {
		e.notifier.Error(fmt.Sprintf("Failed to save persona: %v", err))
		return domain.Persona{}, err
	}

	updating, err := e.collection.Upsert(ctx, persona)
	if err != nil {
		e.logger.Error("save persona failed", zap.Error(err), zap.String("persona_id", persona.ID))
		e.notifier.Error("Failed to save persona.")
		return domain.Persona{}, err
	}

	if _, ok := e.draft.MarkSavedAt(revision, persona.Metadata.LastModified); !ok {
		e.logger.Info("draft changed during save, keeping dirty state", zap.String("persona_id", persona.ID))
	}
	if updating {
		e.notifier.Success(fmt.Sprintf("Persona '%s' updated successfully!", persona.Name))
	} else {
		e.notifier.Success(fmt.Sprintf("Persona '%s' saved successfully!", persona.Name))
	}
	return persona, nil
}

// Import decodifica un documento JSON y lo carga como borrador. Si falla, el borrador no cambia.
func (e *PersonaEditor) Import(data []byte) (domain.Persona, error) {
	persona, err := DecodePersona(data)
	if err != nil {
		e.notifier.Error(fmt.Sprintf("Failed to import persona: %v", err))
		return domain.Persona{}, err
	}
	loaded := e.draft.Load(persona)
	e.notifier.Success(fmt.Sprintf("Persona '%s' imported successfully!", loaded.Name))
	return loaded, nil
}

func (e *PersonaEditor) Export() (ExportedPersona, error) {
	out, err := EncodePersona(e.draft.Current())
	if err != nil {
		e.notifier.Error("Failed to export persona.")
		return ExportedPersona{}, err
	}
	e.notifier.Success("Persona exported successfully!")
	return out, nil
}

// EditSaved carga una persona de la coleccion en el borrador.
func (e *PersonaEditor) EditSaved(ctx context.Context, id string) (domain.Persona, error) {
	if err := e.collection.ensureLoaded(ctx); err != nil {
		e.notifier.Error("Failed to load personas.")
		return domain.Persona{}, err
	}
	persona, ok := e.collection.Get(id)
	if !ok {
		e.notifier.Error("Persona not found!")
		return domain.Persona{}, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	loaded := e.draft.Load(persona)
	e.notifier.Info(fmt.Sprintf("Loaded persona '%s' for editing.", loaded.Name))
	return loaded, nil
}

func (e *PersonaEditor) DeleteSaved(ctx context.Context, id string) error {
	if err := e.collection.ensureLoaded(ctx); err != nil {
		e.notifier.Error("Failed to load personas.")
		return err
	}
	persona, _ := e.collection.Get(id)
	if err := e.collection.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			e.notifier.Error("Persona not found!")
		} else {
			e.notifier.Error("Failed to delete persona.")
		}
		return err
	}
	e.notifier.Success(fmt.Sprintf("Persona '%s' deleted.", persona.Name))
	return nil
}

// NewDraft descarta el borrador actual y reinicia el progreso.
func (e *PersonaEditor) NewDraft() domain.Persona {
	e.progress.Reset()
	return e.draft.Reset()
}

// SelectSection cambia la pestaña activa del stepper.
func (e *PersonaEditor) SelectSection(section string) (Progress, error) {
	return e.progress.SetCurrentSection(section, e.draft.Current().Traits)
}
