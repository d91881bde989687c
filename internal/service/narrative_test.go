package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"itinerary-server/internal/mocks"
	"itinerary-server/internal/model"
	"itinerary-server/internal/service"
	"itinerary-server/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func lisbonPlace() service.PlaceContext {
	return service.PlaceContext{Name: "Fábrica", Category: "cafe", City: "Lisbon", Audience: "couple", Interests: []string{"food"}}
}

func TestNarrativeGenerator_CatalogTextShortCircuits(t *testing.T) {
	client := mocks.NewMockAIClient(t)
	g := service.NewNarrativeGenerator(client, "en", zap.NewNop())

	pc := lisbonPlace()
	pc.CatalogDescription = "Catalog description."
	pc.CatalogRecommendation = "Catalog recommendation."

	assert.Equal(t, "Catalog description.", g.Describe(context.Background(), pc))
	assert.Equal(t, "Catalog recommendation.", g.Recommend(context.Background(), pc))
	client.AssertNotCalled(t, "GenerateText", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNarrativeGenerator_TextCalls(t *testing.T) {
	ctx := context.Background()

	t.Run("returns generated text", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "describe", mock.AnythingOfType("string"), mock.MatchedBy(func(in string) bool {
			return strings.Contains(in, "Place: Fábrica")
		}), mock.Anything).Return("  A small café by the river.  ", ai.UsageInfo{}, nil).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		assert.Equal(t, "A small café by the river.", g.Describe(ctx, lisbonPlace()))
	})

	t.Run("falls back on provider error", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "recommend", mock.Anything, mock.Anything, mock.Anything).
			Return("", ai.UsageInfo{}, ai.ErrAIGenerationFailed).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		text := g.Recommend(ctx, lisbonPlace())
		assert.Contains(t, text, "Fábrica")
	})

	t.Run("no client means fallback and not ready", func(t *testing.T) {
		g := service.NewNarrativeGenerator(nil, "en", zap.NewNop())
		assert.ErrorIs(t, g.Ready(), model.ErrConfiguration)
		assert.Equal(t, "A slow day in Lisbon", g.Title(ctx, service.DayContext{City: "Lisbon"}))
	})
}

func TestNarrativeGenerator_LocationSlot(t *testing.T) {
	ctx := context.Background()

	t.Run("strips code fences and parses alternatives", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "location_slot", mock.Anything, mock.Anything, mock.MatchedBy(func(p ai.GenerationParams) bool { return p.JSONMode })).
			Return("```json\n{\"description\":\"D\",\"recommendation\":\"R\",\"alternatives\":[{\"name\":\"Alt One\",\"address\":\"A1\"},{\"name\":\"  \"}]}\n```", ai.UsageInfo{}, nil).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		got := g.LocationSlot(ctx, lisbonPlace())

		assert.Equal(t, "D", got.Description)
		assert.Equal(t, "R", got.Recommendation)
		require.Len(t, got.Alternatives, 1, "альтернативы без имени отбрасываются")
		assert.Equal(t, "Alt One", got.Alternatives[0].Name)
	})

	t.Run("catalog text wins over generated text", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "location_slot", mock.MatchedBy(func(system string) bool {
			return strings.Contains(system, "Suggest exactly 2 alternative") && !strings.Contains(system, "For the main place")
		}), mock.Anything, mock.Anything).
			Return(`{"description":"generated","alternatives":[{"name":"X"},{"name":"Y"}]}`, ai.UsageInfo{}, nil).Once()

		pc := lisbonPlace()
		pc.CatalogDescription = "catalog d"
		pc.CatalogRecommendation = "catalog r"

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		got := g.LocationSlot(ctx, pc)
		assert.Equal(t, "catalog d", got.Description)
		assert.Equal(t, "catalog r", got.Recommendation)
		assert.Len(t, got.Alternatives, 2)
	})

	t.Run("unparseable response asks for each field", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "location_slot", mock.Anything, mock.Anything, mock.Anything).
			Return("sorry, I cannot help", ai.UsageInfo{}, nil).Once()
		client.On("GenerateText", ctx, "describe", mock.Anything, mock.Anything, mock.Anything).
			Return("A quiet café with a long counter.", ai.UsageInfo{}, nil).Once()
		client.On("GenerateText", ctx, "recommend", mock.Anything, mock.Anything, mock.Anything).
			Return("", ai.UsageInfo{}, ai.ErrAIGenerationFailed).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		got := g.LocationSlot(ctx, lisbonPlace())
		assert.Equal(t, "A quiet café with a long counter.", got.Description)
		assert.Contains(t, got.Recommendation, "Fábrica", "шаблон, если и отдельный запрос не удался")
		assert.Empty(t, got.Alternatives)
	})

	t.Run("missing recommendation is requested separately", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "location_slot", mock.Anything, mock.Anything, mock.Anything).
			Return(`{"description":"D","alternatives":[{"name":"X"}]}`, ai.UsageInfo{}, nil).Once()
		client.On("GenerateText", ctx, "recommend", mock.Anything, mock.Anything, mock.Anything).
			Return("Order the pastel de nata.", ai.UsageInfo{}, nil).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		got := g.LocationSlot(ctx, lisbonPlace())
		assert.Equal(t, "D", got.Description)
		assert.Equal(t, "Order the pastel de nata.", got.Recommendation)
	})
}

func TestNarrativeGenerator_DayConcept(t *testing.T) {
	ctx := context.Background()
	req := service.ConceptRequest{City: "Lisbon", Date: "2026-05-01", Budget: 100}

	t.Run("parses and sorts slots", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "day_concept", mock.Anything, mock.Anything, mock.Anything).Return(`{
			"concept": "Tiles and tascas",
			"timeSlots": [
				{"time": "12:30", "activity": "Lunch", "category": "Restaurant", "keywords": ["tasca", " "]},
				{"time": "9:00", "activity": "Breakfast", "category": "cafe", "keywords": ["pastry"], "budgetTier": "budget"},
				{"time": "25:00", "activity": "Broken"},
				{"time": "19:30", "activity": "Dinner", "category": "restaurant"}
			]}`, ai.UsageInfo{}, nil).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		concept := g.DayConcept(ctx, req)

		assert.False(t, concept.Fallback)
		assert.Equal(t, "Tiles and tascas", concept.Text)
		require.Len(t, concept.TimeSlots, 3)
		assert.Equal(t, "09:00", concept.TimeSlots[0].Time)
		assert.Equal(t, model.BudgetTierLow, concept.TimeSlots[0].BudgetTier)
		assert.Equal(t, "restaurant", concept.TimeSlots[1].Category)
		assert.Equal(t, []string{"tasca"}, concept.TimeSlots[1].Keywords)
		assert.Equal(t, model.BudgetTierMedium, concept.TimeSlots[1].BudgetTier)
	})

	t.Run("falls back to template", func(t *testing.T) {
		client := mocks.NewMockAIClient(t)
		client.On("GenerateText", ctx, "day_concept", mock.Anything, mock.Anything, mock.Anything).
			Return("", ai.UsageInfo{}, errors.New("timeout")).Once()

		g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
		concept := g.DayConcept(ctx, req)
		assert.True(t, concept.Fallback)
		assert.Len(t, concept.TimeSlots, 8)
		assert.NotEmpty(t, concept.Text)
	})
}

func TestNarrativeGenerator_ThreeColumnsPadsMissing(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockAIClient(t)
	client.On("GenerateText", ctx, "three_columns", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"columns":[{"title":"Shoes","text":"Cobblestones everywhere."}]}`, ai.UsageInfo{}, nil).Once()

	g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
	cols := g.ThreeColumns(ctx, service.DayContext{City: "Lisbon"})
	assert.Equal(t, "Shoes", cols[0].Title)
	assert.NotEmpty(t, cols[1].Title)
	assert.NotEmpty(t, cols[2].Text)
}

func TestNarrativeGenerator_Metadata(t *testing.T) {
	ctx := context.Background()
	client := mocks.NewMockAIClient(t)
	client.On("GenerateText", ctx, "metadata", mock.Anything, mock.Anything, mock.Anything).
		Return(`{"title":"Lisbon, slowly","weather":"Usually mild in May."}`, ai.UsageInfo{}, nil).Once()

	g := service.NewNarrativeGenerator(client, "en", zap.NewNop())
	meta := g.Metadata(ctx, service.DayContext{City: "Lisbon", Date: "2026-05-01", Audience: "couple"})
	assert.Equal(t, "Lisbon, slowly", meta.Title)
	assert.Equal(t, "2026-05-01 · couple", meta.Subtitle)
	assert.Equal(t, "Usually mild in May.", meta.Weather)
}
