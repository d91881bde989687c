package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"itinerary-server/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingSearcher struct{ err error }

func (f failingSearcher) SearchText(context.Context, string, string) ([]model.ExternalPlace, error) {
	return nil, f.err
}

func (failingSearcher) Ready() error { return nil }

func TestPlaceResolver_ExternalErrorLabels(t *testing.T) {
	slot := model.TimeSlot{Time: "09:00", Activity: "Breakfast", Category: "cafe"}

	tests := []struct {
		name  string
		err   error
		label string
	}{
		{"provider failure", fmt.Errorf("%w: places text search: quota", model.ErrProvider), "error"},
		{"unexpected failure", errors.New("rate: Wait(n=1) exceeds limiter's burst"), "unexpected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			counter := resolverTierTotal.WithLabelValues("external", tt.label)
			before := testutil.ToFloat64(counter)

			r := NewPlaceResolver(nil, failingSearcher{err: tt.err}, "en", 5, zap.NewNop())
			loc, err := r.Resolve(context.Background(), slot, "Lisbon", nil)
			require.NoError(t, err)

			assert.Equal(t, model.SourceSynthetic, loc.SourceTier)
			assert.Equal(t, before+1, testutil.ToFloat64(counter))
		})
	}
}
