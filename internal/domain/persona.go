package domain

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// DefaultPersonaName es el nombre con el que nace un borrador nuevo.
const DefaultPersonaName = "New Persona"

// Persona es un perfil de IA con sus sliders de rasgos y metadatos.
type Persona struct {
	ID          string   `json:"id" validate:"required"`
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description,omitempty"`
	Traits      Traits   `json:"traits"`
	Metadata    Metadata `json:"metadata,omitzero"`
}

// Metadata guarda las marcas de tiempo y la version del perfil.
// Version 0 significa "sin metadatos" (por ejemplo en un import externo).
type Metadata struct {
	CreatedAt    time.Time `json:"createdAt"`
	LastModified time.Time `json:"lastModified"`
	Version      int       `json:"version"`
}

// NewPersona construye un perfil con valores por defecto y un id nuevo.
func NewPersona(now time.Time) Persona {
	now = now.UTC()
	return Persona{
		ID:          uuid.NewString(),
		Name:        DefaultPersonaName,
		Description: "",
		Traits:      DefaultTraits(),
		Metadata: Metadata{
			CreatedAt:    now,
			LastModified: now,
			Version:      1,
		},
	}
}

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func structValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
	})
	return validate
}

// Validate comprueba id, nombre y rango [0,1] de todos los rasgos.
func (p Persona) Validate() error {
	if err := structValidator().Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%w: %s failed on %q", ErrValidation, fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}

// ValidateForSave aplica las reglas de guardado: nombre no vacio (sin contar espacios) y rasgos validos.
func (p Persona) ValidateForSave() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: persona name is required", ErrValidation)
	}
	return p.Validate()
}
