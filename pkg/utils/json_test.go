package utils_test

import (
	"testing"

	"itinerary-server/pkg/utils"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSONContent(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{name: "plain object", raw: `{"a":1}`, want: `{"a":1}`},
		{name: "json fence", raw: "Вот ответ:\n```json\n{\"a\": 1}\n```\nГотово", want: `{"a": 1}`},
		{name: "bare fence", raw: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "text around object", raw: `Sure! {"title":"Day"} hope it helps`, want: `{"title":"Day"}`},
		{name: "truncated object", raw: `{"columns":[{"title":"A"`, want: `{"columns":[{"title":"A"}]}`},
		{name: "no json", raw: "просто текст", want: ""},
		{name: "empty", raw: "   ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, utils.ExtractJSONContent(tt.raw))
		})
	}
}

func TestStringShort(t *testing.T) {
	assert.Equal(t, "abc", utils.StringShort("abc", 5))
	assert.Equal(t, "ab...", utils.StringShort("abcdefgh", 5))
	assert.Equal(t, "...", utils.StringShort("abcdefgh", 2))
}
