package model_test

import (
	"encoding/json"
	"testing"

	"itinerary-server/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContentBlock_JSONDispatchesOnBlockType(t *testing.T) {
	blocks := []model.ContentBlock{
		{OrderIndex: 0, Slot: 0, Content: model.TitleContent{Title: "Lisbon slowly"}},
		{OrderIndex: 1, Slot: 2, Content: model.LocationContent{
			TimeWindow:   "09:00-10:00",
			MainLocation: model.LocationCard{Name: "Café A", SourceTier: model.SourceCatalog, StableIdentity: "c1"},
			AlternativeLocations: []model.LocationCard{
				{Name: "Café B", SourceTier: model.SourceSynthetic},
				{Name: "Café C", SourceTier: model.SourceSynthetic},
			},
		}},
		{OrderIndex: 2, Slot: 11, Content: model.ThreeColumnsContent{Columns: [3]model.Column{{Title: "a"}, {Title: "b"}, {Title: "c"}}}},
	}

	data, err := json.Marshal(blocks)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"blockType":"location"`)
	assert.Contains(t, string(data), `"blockType":"3columns"`)

	var decoded []model.ContentBlock
	require.NoError(t, json.Unmarshal(data, &decoded))
	require.Len(t, decoded, 3)

	loc, ok := decoded[1].Content.(model.LocationContent)
	require.True(t, ok, "location content must decode into LocationContent value")
	assert.Equal(t, "Café A", loc.MainLocation.Name)
	assert.Len(t, loc.AlternativeLocations, 2)
	assert.Equal(t, model.BlockThreeColumns, decoded[2].Type())
	assert.Equal(t, blocks, decoded)
}

func TestContentBlock_UnknownTypeFails(t *testing.T) {
	var b model.ContentBlock
	err := json.Unmarshal([]byte(`{"blockType":"carousel","orderIndex":0,"content":{}}`), &b)
	assert.Error(t, err)
}

func TestContentBlock_MarshalWithoutContentFails(t *testing.T) {
	_, err := json.Marshal(model.ContentBlock{OrderIndex: 3})
	assert.Error(t, err)
}

func TestReindexAndValidateOrder(t *testing.T) {
	blocks := []model.ContentBlock{
		{Slot: 16, Content: model.TextContent{Role: model.TextClosing}},
		{Slot: 0, Content: model.TitleContent{}},
		{Slot: 5, Content: model.LocationContent{}},
	}
	assert.Error(t, model.ValidateOrder([]model.ContentBlock{{OrderIndex: 1}}))

	blocks = model.Reindex(blocks)
	require.NoError(t, model.ValidateOrder(blocks))
	assert.Equal(t, model.BlockTitle, blocks[0].Type())
	assert.Equal(t, model.BlockText, blocks[2].Type())
	assert.Len(t, model.LocationBlocks(blocks), 1)
}

func TestTimeSlotOrdering(t *testing.T) {
	slots := []model.TimeSlot{{Time: "19:30"}, {Time: "bad"}, {Time: "09:00"}, {Time: "12:30"}}
	model.SortTimeSlots(slots)
	assert.Equal(t, []string{"09:00", "12:30", "19:30", "bad"}, []string{slots[0].Time, slots[1].Time, slots[2].Time, slots[3].Time})
	assert.Equal(t, 12, slots[1].Hour())
	assert.Equal(t, -1, slots[3].Hour())
}
