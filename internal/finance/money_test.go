package finance

import (
	"testing"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatCents(t *testing.T) {
	tests := map[int64]string{
		0:         "$0.00",
		5:         "$0.05",
		1999:      "$19.99",
		123405:    "$1,234.05",
		100000000: "$1,000,000.00",
		-50:       "-$0.50",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCents(in), "cents %d", in)
	}
}

func TestParseCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"12", 1200},
		{"12.5", 1250},
		{"$1,000.05", 100005},
		{" 0.99 ", 99},
	}
	for _, tt := range tests {
		got, err := ParseCents(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"", "abc", "1.234", "-5", "1."} {
		_, err := ParseCents(bad)
		assert.ErrorIs(t, err, domain.ErrInvalidInput, bad)
	}
}
