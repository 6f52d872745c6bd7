package domain

import "errors"

var (
	ErrValidation     = errors.New("validation failed")
	ErrNotFound       = errors.New("persona not found")
	ErrDuplicateID    = errors.New("persona id already exists")
	ErrPersistence    = errors.New("persistence failure")
	ErrImportFormat   = errors.New("invalid persona format")
	ErrUnknownTrait   = errors.New("unknown trait")
	ErrPreviewOffline = errors.New("preview generation not configured")
)
