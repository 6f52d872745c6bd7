package service

import (
	"testing"
	"time"

	"persona-forge/internal/domain"
)

func TestCleanImportDocument(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "bom", in: "\uFEFF{\"a\":1}", want: `{"a":1}`},
		{name: "surrounding text", in: `here it is: {"a":{"b":"}"}} thanks`, want: `{"a":{"b":"}"}}`},
		{name: "escaped quote", in: `x {"a":"say \"}\" ok"} y`, want: `{"a":"say \"}\" ok"}`},
		{name: "no object", in: `nothing here`, want: `nothing here`},
		{name: "unbalanced", in: `oops {"a":1`, want: `oops {"a":1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := string(cleanImportDocument([]byte(tt.in))); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestDecodePersonaAcceptsFencedDocument(t *testing.T) {
	p := domain.NewPersona(time.Now())
	p.Name = "Pasted"
	out, _ := EncodePersona(p)

	doc := append([]byte("```json\n"), out.Data...)
	doc = append(doc, []byte("\n```")...)
	got, err := DecodePersona(doc)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != p.ID || got.Name != "Pasted" {
		t.Fatalf("unexpected persona %+v", got)
	}
}
