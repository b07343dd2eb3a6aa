package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDatasetID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "simple", input: "Footwear", expected: "products_footwear"},
		{name: "punctuation runs", input: "Men's Shoes & Boots", expected: "products_men_s_shoes_boots"},
		{name: "edge separators", input: "  -Toys!- ", expected: "products_toys"},
		{name: "digits kept", input: "4K TVs", expected: "products_4k_tvs"},
		{name: "non latin falls back", input: "Прочее", expected: "products_misc"},
		{name: "empty falls back", input: "", expected: "products_misc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DatasetID(tt.input))
		})
	}
}

func TestDatasetIDLengthCap(t *testing.T) {
	id := DatasetID(strings.Repeat("very long category ", 10))
	assert.LessOrEqual(t, len(id), MaxIDLength)
	assert.True(t, IsDatasetID(id))
	assert.False(t, strings.HasSuffix(id, "_"))
	assert.Equal(t, id, DatasetID(strings.Repeat("very long category ", 10)))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Mens Shoes", DisplayName("products_mens_shoes"))
	assert.Equal(t, "Footwear", DisplayName("products_footwear"))
	assert.Equal(t, "Misc", DisplayName(DatasetID("Прочее")))
}

func TestIsDatasetID(t *testing.T) {
	assert.True(t, IsDatasetID("products_toys"))
	assert.False(t, IsDatasetID("products_"))
	assert.False(t, IsDatasetID("users"))
	assert.Equal(t, "toys", SlugFromID("products_toys"))
}
