package sanitizer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feedforward/feedforward/pkg/sanitizer"
)

func TestNormalizeEmail(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"  Jo@X.COM ":      "jo@x.com",
		"jo..doe@x.com":    "jo.doe@x.com",
		".jo@x.com":        "jo@x.com",
		"plain":            "plain",
		"UPPER@EXAMPLE.IO": "upper@example.io",
	}

	for in, want := range cases {
		assert.Equal(t, want, sanitizer.NormalizeEmail(in), in)
	}
}

func TestTrimStrings(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"go", "music"}, sanitizer.TrimStrings([]string{" go ", "", "music"}))
	assert.Nil(t, sanitizer.TrimStrings(nil))
}
