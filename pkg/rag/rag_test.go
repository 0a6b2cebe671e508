package rag

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarityToPercent(t *testing.T) {
	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"perfect match", 1.0, 100},
		{"orthogonal", 0.0, 50},
		{"opposite", -1.0, 0},
		{"threshold value", 0.70, 85},
		{"clamps above range", 1.5, 100},
		{"clamps below range", -2.0, 0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, SimilarityToPercent(tc.in), 0.0001)
		})
	}
}

func TestSimilarityToPercentMonotonic(t *testing.T) {
	prev := SimilarityToPercent(-1.0)
	for s := -0.9; s <= 1.0; s += 0.1 {
		cur := SimilarityToPercent(s)
		assert.GreaterOrEqual(t, cur, prev)
		prev = cur
	}
}

func TestTruncate(t *testing.T) {
	t.Run("short string untouched", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 10))
	})

	t.Run("exact length untouched", func(t *testing.T) {
		assert.Equal(t, "hello", Truncate("hello", 5))
	})

	t.Run("long string capped including ellipsis", func(t *testing.T) {
		got := Truncate(strings.Repeat("a", 100), 20)
		assert.Equal(t, 20, len(got))
		assert.True(t, strings.HasSuffix(got, "..."))
	})

	t.Run("never splits a multibyte rune", func(t *testing.T) {
		got := Truncate(strings.Repeat("한", 50), 20)
		assert.LessOrEqual(t, len(got), 20)
		assert.True(t, strings.HasSuffix(got, "..."))
		for _, r := range strings.TrimSuffix(got, "...") {
			assert.Equal(t, '한', r)
		}
	})
}
