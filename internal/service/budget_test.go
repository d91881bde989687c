package service_test

import (
	"errors"
	"testing"

	"itinerary-server/internal/model"
	"itinerary-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activities(prices ...float64) []model.Activity {
	out := make([]model.Activity, len(prices))
	for i, p := range prices {
		out[i] = model.Activity{Name: string(rune('A' + i)), Category: "restaurant", Price: p, Location: "addr", Photos: []string{"p"}}
	}
	return out
}

func TestBudgetNormalizer_Normalize(t *testing.T) {
	normalizer := service.NewBudgetNormalizer("€")

	t.Run("within window untouched", func(t *testing.T) {
		in := activities(30, 40, 30)
		out, err := normalizer.Normalize(in, 100)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	})

	t.Run("scales up to budget", func(t *testing.T) {
		in := activities(10, 20, 5)
		out, err := normalizer.Normalize(in, 100)
		require.NoError(t, err)
		assert.Equal(t, 100.0, service.TotalCost(out))
		assert.True(t, service.WithinBudget(service.TotalCost(out), 100))
		// исходный срез не меняется
		assert.Equal(t, 10.0, in[0].Price)
		for i := range out {
			assert.Equal(t, in[i].Name, out[i].Name)
			assert.Equal(t, in[i].Location, out[i].Location)
			assert.Equal(t, in[i].Photos, out[i].Photos)
			assert.NotEmpty(t, out[i].PriceRange)
		}
	})

	t.Run("scales down and recomputes labels", func(t *testing.T) {
		in := activities(100, 100, 100, 100)
		out, err := normalizer.Normalize(in, 80)
		require.NoError(t, err)
		assert.Equal(t, 80.0, service.TotalCost(out))
		for _, a := range out {
			assert.Equal(t, 20.0, a.Price)
			assert.Equal(t, 1, a.PriceLevel)
			assert.Equal(t, service.PriceRangeLabel("restaurant", 1, "€"), a.PriceRange)
		}
	})

	t.Run("tiny budget keeps total", func(t *testing.T) {
		in := activities(10, 10, 10, 10, 10, 10, 10, 10)
		out, err := normalizer.Normalize(in, 3)
		require.NoError(t, err)
		assert.Equal(t, 3.0, service.TotalCost(out))
	})

	t.Run("zero sum is degenerate", func(t *testing.T) {
		in := activities(0, 0)
		out, err := normalizer.Normalize(in, 100)
		assert.True(t, errors.Is(err, model.ErrDegenerateBudget))
		assert.Equal(t, in, out)
	})
}

func TestPriceHelpers(t *testing.T) {
	assert.Equal(t, 35.0, service.DefaultPrice("restaurant", 2))
	assert.Equal(t, 20.0, service.DefaultPrice("unknown", 2))
	assert.Equal(t, 45.0, service.DefaultPrice("cafe", 9))

	assert.Equal(t, 3, service.PriceLevelFor("restaurant", 55))
	assert.Equal(t, "€€ · 35–60 €", service.PriceRangeLabel("restaurant", 2, "€"))
	assert.Equal(t, "€€€€ · 100+ €", service.PriceRangeLabel("restaurant", 4, "€"))
	assert.Equal(t, "€ · up to 8 €", service.PriceRangeLabel("museum", 0, "€"))

	assert.True(t, service.WithinBudget(70, 100))
	assert.True(t, service.WithinBudget(130, 100))
	assert.False(t, service.WithinBudget(131, 100))
}

func TestDeriveActivities(t *testing.T) {
	blocks := []model.ContentBlock{
		{Slot: 0, Content: model.TitleContent{Title: "t"}},
		{Slot: 2, Content: model.LocationContent{
			Time: "09:00",
			MainLocation: model.LocationCard{
				Name: "Café A", Address: "Rua 1", Category: "cafe", PriceLevel: 1,
				Description: "d", Recommendation: "r", Rating: 4.5, Photos: []string{"x"},
			},
		}},
	}

	acts := service.DeriveActivities(blocks, "€")
	require.Len(t, acts, 1)
	assert.Equal(t, model.Activity{
		Time: "09:00", Name: "Café A", Description: "d", Category: "cafe",
		Price: 10, PriceLevel: 1, PriceRange: "€ · 10–18 €", Location: "Rua 1",
		Photos: []string{"x"}, Recommendations: "r", Rating: 4.5,
	}, acts[0])
}
