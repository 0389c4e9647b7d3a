package textnorm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Insulin receptor", Normalize("  Insulin\t\nreceptor \u0007"))
	assert.Equal(t, "fi", Normalize("ﬁ"))
	assert.Equal(t, "tnf-α", Fold("TNF-Α"))
}

func TestContainsWord(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want bool
	}{
		{"Yes.", true},
		{"yes, it is biomedical", true},
		{"  YES  ", true},
		{"Answer: yes", true},
		{"No", false},
		{"eyes are organs", false},
		{"", false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, ContainsWord(tc.text, "yes"), tc.text)
	}
}
