// internal/service/geocoder/normalize_test.go

package geocoder

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize_ExactPipeline(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"São Paulo, Brazil", "Sao Paulo, Brazil"},
		{"Washington, D.C.", "Washington, D C"},
		{"  New   York  ", "New York"},
		{"Köln/Cologne", "Koln Cologne"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Normalize(c.in), "input %q", c.in)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{"São Paulo, Brazil", "Washington, D.C.", "plain text", ""}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		assert.Equal(t, once, twice, "Normalize must be idempotent for %q", in)
	}
}

func TestNormalize_EmptyStaysEmpty(t *testing.T) {
	assert.Equal(t, "", Normalize(""))
	assert.Equal(t, "", Normalize("   "))
	assert.Equal(t, "", Normalize("##"))
}

func TestTransliterate_KeepsPunctuation(t *testing.T) {
	got := Transliterate("café, déjà vu!")
	assert.Equal(t, "cafe, deja vu!", got)
}
