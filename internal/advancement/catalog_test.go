package advancement

import (
	"errors"
	"strings"
	"testing"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const campingYAML = `
version: "2025"
badges:
  - code: camping
    name: Camping
    eagle_required: true
    requirements:
      - number: "9(b)"
        description: Camp in a tent
      - number: "1"
        description: Show first aid knowledge
      - number: 9a
        description: Camp 20 nights
      - number: "10"
        description: Discuss
  - code: chess
    name: Chess
    version: "2019"
    requirements:
      - number: "2"
        description: Learn the pieces
`

func TestParseCatalog(t *testing.T) {
	badges, err := ParseCatalog(strings.NewReader(campingYAML))
	require.NoError(t, err)
	require.Len(t, badges, 2)

	camping := badges[0]
	assert.Equal(t, "camping", camping.Code)
	assert.True(t, camping.EagleRequired)
	assert.Equal(t, "2025", camping.Version)

	var numbers []string
	for _, r := range camping.Requirements {
		numbers = append(numbers, r.Number)
	}
	assert.Equal(t, []string{"1", "9a", "9b", "10"}, numbers)
	assert.Equal(t, "2019", badges[1].Version)
}

func TestParseCatalog_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"Empty", "badges: []"},
		{"Bad code", "badges:\n  - code: Camp Ing\n    name: x"},
		{"Missing name", "badges:\n  - code: camping"},
		{"Duplicate badge", "badges:\n  - code: a\n    name: A\n  - code: a\n    name: B"},
		{"Bad requirement", "badges:\n  - code: a\n    name: A\n    requirements:\n      - number: x1"},
		{"Duplicate requirement", "badges:\n  - code: a\n    name: A\n    requirements:\n      - number: 1a\n      - number: 1(a)"},
		{"Unknown field", "badges:\n  - code: a\n    name: A\n    colour: red"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCatalog(strings.NewReader(tt.yaml))
			assert.True(t, errors.Is(err, domain.ErrInvalidInput), "got %v", err)
		})
	}
}
