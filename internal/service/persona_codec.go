package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"persona-forge/internal/domain"
)

// ExportedPersona es el documento descargable de un borrador.
type ExportedPersona struct {
	Filename string
	Data     []byte
}

var (
	whitespaceRun    = regexp.MustCompile(`\s+`)
	unsafeFilenameCh = regexp.MustCompile(`[^\p{L}\p{N}_.-]`)
)

// ExportFilename arma persona_<nombre>_<8 primeros del id>.json. Los espacios pasan a _
// y cualquier caracter fuera de letras, digitos, punto, guion y _ tambien, asi el
// nombre nunca contiene separadores de ruta.
func ExportFilename(p domain.Persona) string {
	id := []rune(p.ID)
	if len(id) > 8 {
		id = id[:8]
	}
	name := whitespaceRun.ReplaceAllString(p.Name, "_")
	name = unsafeFilenameCh.ReplaceAllString(name, "_")
	safeID := unsafeFilenameCh.ReplaceAllString(string(id), "_")
	return fmt.Sprintf("persona_%s_%s.json", name, safeID)
}

// EncodePersona serializa con indentacion de dos espacios.
func EncodePersona(p domain.Persona) (ExportedPersona, error) {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return ExportedPersona{}, err
	}
	return ExportedPersona{Filename: ExportFilename(p), Data: data}, nil
}

// DecodePersona valida y decodifica un documento importado.
// Exige id, name y traits, y que cada categoria y campo del esquema este presente.
func DecodePersona(data []byte) (domain.Persona, error) {
	data = cleanImportDocument(data)
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return domain.Persona{}, fmt.Errorf("%w: %v", domain.ErrImportFormat, err)
	}
	if !nonEmptyString(raw["id"]) || !nonEmptyString(raw["name"]) || !isObject(raw["traits"]) {
		return domain.Persona{}, fmt.Errorf("%w: missing required fields (id, name, traits)", domain.ErrImportFormat)
	}
	if err := checkTraitsComplete(raw["traits"]); err != nil {
		return domain.Persona{}, err
	}

	var p domain.Persona
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&p); err != nil {
		return domain.Persona{}, fmt.Errorf("%w: %v", domain.ErrImportFormat, err)
	}
	if err := p.Validate(); err != nil {
		return domain.Persona{}, err
	}
	return p, nil
}

func checkTraitsComplete(data json.RawMessage) error {
	var categories map[string]map[string]json.RawMessage
	if err := json.Unmarshal(data, &categories); err != nil {
		return fmt.Errorf("%w: traits: %v", domain.ErrImportFormat, err)
	}
	for _, c := range domain.TraitCatalog {
		fields, ok := categories[c.Key]
		if !ok {
			return fmt.Errorf("%w: traits.%s is missing", domain.ErrImportFormat, c.Key)
		}
		for _, f := range c.Fields {
			var v float64
			value, ok := fields[f.Key]
			if !ok {
				return fmt.Errorf("%w: traits.%s.%s is missing", domain.ErrImportFormat, c.Key, f.Key)
			}
			if err := json.Unmarshal(value, &v); err != nil {
				return fmt.Errorf("%w: traits.%s.%s is not numeric", domain.ErrImportFormat, c.Key, f.Key)
			}
		}
	}
	return nil
}

func nonEmptyString(data json.RawMessage) bool {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return false
	}
	return strings.TrimSpace(s) != ""
}

func isObject(data json.RawMessage) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}
