package model

import "errors"

// Ошибки домена. Сервисы оборачивают их через fmt.Errorf("...: %w", err),
// HTTP слой сопоставляет через errors.Is.
var (
	ErrValidation        = errors.New("validation error")
	ErrConfiguration     = errors.New("configuration error")
	ErrProvider          = errors.New("provider error")
	ErrDegenerateBudget  = errors.New("degenerate budget: sum of prices is zero")
	ErrPersistence       = errors.New("persistence error")
	ErrNotFound          = errors.New("itinerary not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrVersionConflict   = errors.New("itinerary was modified concurrently")
	ErrCatalog           = errors.New("catalog store error")
)
