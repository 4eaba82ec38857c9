// ABOUTME: Tests for text matchers
// ABOUTME: Covers list first-match, case folding and registration-time errors

package pattern

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_ListMatchesStringsAndRegexps(t *testing.T) {
	m, err := Compile([]any{"hi", regexp.MustCompile(`(?i)^hello`)})
	require.NoError(t, err)

	res, ok := m.Match("hi")
	require.True(t, ok)
	assert.Equal(t, "hi", res.Keyword)

	res, ok = m.Match("Hello there")
	require.True(t, ok)
	assert.Equal(t, []string{"Hello"}, res.Match)

	_, ok = m.Match("goodbye")
	assert.False(t, ok)
}

func TestMatcher_ExactStringIsCaseInsensitiveButWhole(t *testing.T) {
	m := MustCompile("Order")

	_, ok := m.Match("order")
	assert.True(t, ok)
	_, ok = m.Match("ORDER")
	assert.True(t, ok)
	_, ok = m.Match("order now")
	assert.False(t, ok)
	_, ok = m.Match("")
	assert.False(t, ok)
}

func TestMatcher_FirstPartWins(t *testing.T) {
	m := MustCompile([]any{regexp.MustCompile(`^(\d+)`), "42"})

	res, ok := m.Match("42")
	require.True(t, ok)
	assert.Empty(t, res.Keyword)
	assert.Equal(t, []string{"42", "42"}, res.Match)
}

func TestCompile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		v    any
	}{
		{"int", 7},
		{"nil", nil},
		{"empty string", ""},
		{"empty list", []string{}},
		{"nested list", []any{[]string{"a"}}},
		{"list with int", []any{"a", 3}},
		{"nil regexp", (*regexp.Regexp)(nil)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compile(tt.v)
			var invalid *InvalidMatcherError
			assert.ErrorAs(t, err, &invalid)
		})
	}
}

func TestMustCompile_Panics(t *testing.T) {
	assert.Panics(t, func() { MustCompile(3.14) })
}

func TestMatcher_String(t *testing.T) {
	m := MustCompile([]any{"hi", regexp.MustCompile(`^yo`)})
	assert.Equal(t, `["hi", /^yo/]`, m.String())
}
