package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "a@b.com", NormalizeEmail("  A@B.Com "))
	assert.Equal(t, "", NormalizeEmail("   "))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "international format", input: "+27 31 508 6700", expected: "+27315086700"},
		{name: "national format", input: "031 508 6700", expected: "+27315086700"},
		{name: "unparseable kept as is", input: " ext 42 ", expected: "ext 42"},
		{name: "empty", input: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestParseDateBound(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		got, err := ParseDateBound("", false)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("date lower bound", func(t *testing.T) {
		got, err := ParseDateBound("2024-03-01", false)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *got)
	})

	t.Run("date upper bound covers the day", func(t *testing.T) {
		got, err := ParseDateBound("2024-03-01", true)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 23, 59, 59, 999999999, time.UTC), *got)
	})

	t.Run("rfc3339", func(t *testing.T) {
		got, err := ParseDateBound("2024-03-01T10:00:00+02:00", true)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC), *got)
	})

	t.Run("invalid", func(t *testing.T) {
		_, err := ParseDateBound("yesterday", false)
		assert.Error(t, err)
	})
}
