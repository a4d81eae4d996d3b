package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "lowercases",
			input:    "John.Doe@Example.COM",
			expected: "john.doe@example.com",
		},
		{
			name:     "trims whitespace",
			input:    "  user@example.com  ",
			expected: "user@example.com",
		},
		{
			name:     "empty stays empty",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeEmail(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips punctuation and spaces",
			input:    "+1 (415) 555-0173",
			expected: "+14155550173",
		},
		{
			name:     "keeps only leading plus",
			input:    "0049+30+1234",
			expected: "0049301234",
		},
		{
			name:     "plain digits unchanged",
			input:    "9876543210",
			expected: "9876543210",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizePhone(tt.input))
		})
	}
}

func TestSimilarity(t *testing.T) {
	t.Run("identity is 1", func(t *testing.T) {
		assert.Equal(t, 1.0, Similarity("Jane Smith", "jane smith"))
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Similarity("jonathan", "johnathan"), Similarity("johnathan", "jonathan"))
	})

	t.Run("close variants exceed fuzzy threshold", func(t *testing.T) {
		assert.Greater(t, Similarity("rajesh kumar sharma", "rajesh kumar sharmaa"), FuzzyThreshold)
	})

	t.Run("unrelated names score low", func(t *testing.T) {
		assert.Less(t, Similarity("jane smith", "pedro alvarez"), 0.2)
	})

	t.Run("empty strings score zero", func(t *testing.T) {
		assert.Equal(t, 0.0, Similarity("", ""))
		assert.Equal(t, 0.0, Similarity("jane", ""))
	})

	t.Run("bounded by one", func(t *testing.T) {
		assert.LessOrEqual(t, Similarity("abcdef", "abcdeg"), 1.0)
	})
}

func TestIsExact(t *testing.T) {
	assert.True(t, IsExact(" A@B.com", "a@b.COM ", NormalizeEmail))
	assert.False(t, IsExact("a@b.com", "c@d.com", NormalizeEmail))
	assert.False(t, IsExact("", "", NormalizeEmail), "empty values never match exactly")
}

func TestNormalizeAddress(t *testing.T) {
	a := NormalizeAddress(" 123  Main St ", "", "Mountain  View", "CA", " 94043 ", "us")

	assert.Equal(t, "123 main st", a.Line1)
	assert.Equal(t, "mountain view", a.City)
	assert.Equal(t, "94043", a.PostalCode)
	assert.Equal(t, "US", a.Country)
}

func TestContentHash(t *testing.T) {
	t.Run("stable across formatting noise", func(t *testing.T) {
		a := NormalizeAddress("123 Main St", "", "Springfield", "IL", "62701", "US")
		b := NormalizeAddress("  123  MAIN st ", "", "springfield", "il", "62701 ", "us")
		assert.Equal(t, a.ContentHash(), b.ContentHash())
	})

	t.Run("distinct per component, not per concatenation", func(t *testing.T) {
		a := NormalizeAddress("12 3 Main", "", "c", "", "1", "US")
		b := NormalizeAddress("12", "", "3 main c", "", "1", "US")
		assert.NotEqual(t, a.ContentHash(), b.ContentHash())
	})
}
