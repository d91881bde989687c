package service

import (
	"fmt"

	"itinerary-server/internal/model"
)

// legalTransitions - допустимые переходы жизненного цикла документа
var legalTransitions = map[model.Status][]model.Status{
	model.StatusGenerating: {model.StatusPreview, model.StatusError},
	model.StatusPreview:    {model.StatusPayment, model.StatusError},
	model.StatusPayment:    {model.StatusFull, model.StatusError},
	model.StatusFull:       {model.StatusError},
	model.StatusError:      {model.StatusGenerating},
}

// CanTransition проверяет, разрешен ли переход from -> to
func CanTransition(from, to model.Status) bool {
	for _, s := range legalTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition меняет статус документа или возвращает ErrInvalidTransition.
func Transition(it *model.Itinerary, to model.Status) error {
	from := it.Status
	if !CanTransition(from, to) {
		stateTransitionsTotal.WithLabelValues(string(from), string(to), "rejected").Inc()
		return fmt.Errorf("%w: %s -> %s", model.ErrInvalidTransition, from, to)
	}
	it.Status = to
	stateTransitionsTotal.WithLabelValues(string(from), string(to), "ok").Inc()
	return nil
}
