package service_test

import (
	"testing"

	"itinerary-server/internal/model"
	"itinerary-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to model.Status
		want     bool
	}{
		{model.StatusGenerating, model.StatusPreview, true},
		{model.StatusGenerating, model.StatusFull, false},
		{model.StatusPreview, model.StatusPayment, true},
		{model.StatusPreview, model.StatusFull, false},
		{model.StatusPayment, model.StatusFull, true},
		{model.StatusFull, model.StatusError, true},
		{model.StatusFull, model.StatusPreview, false},
		{model.StatusError, model.StatusGenerating, true},
		{model.StatusError, model.StatusFull, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, service.CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition(t *testing.T) {
	it := &model.Itinerary{Status: model.StatusPreview}

	err := service.Transition(it, model.StatusFull)
	require.ErrorIs(t, err, model.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "preview -> full")
	assert.Equal(t, model.StatusPreview, it.Status, "статус не меняется при ошибке")

	require.NoError(t, service.Transition(it, model.StatusPayment))
	assert.Equal(t, model.StatusPayment, it.Status)
}
