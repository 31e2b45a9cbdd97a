package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitSKU(t *testing.T) {
	tests := []struct {
		name     string
		sku      string
		wantBase string
		wantSize string
	}{
		{"simple size", "ABC-100-BLK-S", "ABC-100-BLK", "S"},
		{"medium size", "ABC-100-BLK-M", "ABC-100-BLK", "M"},
		{"no separator", "ABC100", "ABC100", ""},
		{"trailing separator", "ABC-", "ABC-", ""},
		{"leading separator", "-S", "-S", ""},
		{"empty", "", "", ""},
		{"size range splits at wrong place", "700C-BLU-M/L(7-16)", "700C-BLU-M/L(7", "16)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, size := SplitSKU(tt.sku)
			assert.Equal(t, tt.wantBase, base)
			assert.Equal(t, tt.wantSize, size)
		})
	}
}

func TestParseSKU(t *testing.T) {
	t.Run("heuristic only when no authoritative size", func(t *testing.T) {
		parsed := ParseSKU("ABC-100-BLK-S", "")
		assert.Equal(t, "ABC-100-BLK", parsed.BaseSKU)
		assert.Equal(t, "S", parsed.Size)
		assert.False(t, parsed.SizeMismatch)
	})

	t.Run("authoritative size agrees with heuristic", func(t *testing.T) {
		parsed := ParseSKU("ABC-100-BLK-S", "S")
		assert.Equal(t, "ABC-100-BLK", parsed.BaseSKU)
		assert.Equal(t, "S", parsed.Size)
		assert.False(t, parsed.SizeMismatch)
	})

	t.Run("size range disagrees with heuristic and is flagged", func(t *testing.T) {
		parsed := ParseSKU("700C-BLU-M/L(7-16)", "M/L(7-16)")
		assert.Equal(t, "700C-BLU", parsed.BaseSKU)
		assert.Equal(t, "M/L(7-16)", parsed.Size)
		assert.True(t, parsed.SizeMismatch)
	})

	t.Run("authoritative size not a suffix keeps heuristic base", func(t *testing.T) {
		parsed := ParseSKU("ABC-100-BLK-SM", "Small")
		assert.Equal(t, "ABC-100-BLK", parsed.BaseSKU)
		assert.Equal(t, "Small", parsed.Size)
		assert.True(t, parsed.SizeMismatch)
	})

	t.Run("variants of one product share a base", func(t *testing.T) {
		small := ParseSKU("ABC-100-BLK-S", "S")
		medium := ParseSKU("ABC-100-BLK-M", "M")
		assert.Equal(t, small.BaseSKU, medium.BaseSKU)
	})
}
