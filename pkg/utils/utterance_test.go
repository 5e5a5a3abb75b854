package utils

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeUtterance(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: " \t\n ", expected: ""},
		{name: "trims and collapses", input: "  I   can\tshop \n alone  ", expected: "I can shop alone"},
		{name: "drops control characters", input: "yes\x00\x07 please", expected: "yes please"},
		{name: "keeps unicode", input: "  sí, puedo  ", expected: "sí, puedo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeUtterance(tt.input))
		})
	}
}

func TestNormalizeUtterance_Truncates(t *testing.T) {
	long := strings.Repeat("a", MaxUtteranceRunes+50)

	got := NormalizeUtterance(long)

	assert.Equal(t, MaxUtteranceRunes, utf8.RuneCountInString(got))
}

func TestContainsAny(t *testing.T) {
	tokens := []string{"yes", "ok", "ready"}

	assert.True(t, ContainsAny("  YES I am  ", tokens))
	assert.True(t, ContainsAny("I'm ready now", tokens))
	assert.False(t, ContainsAny("not now", tokens))
	assert.False(t, ContainsAny("   ", tokens))
}
