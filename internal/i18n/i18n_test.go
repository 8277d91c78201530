package i18n

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := map[string]Language{
		"en":    EN,
		"EN":    EN,
		"hi":    HI,
		"hi-IN": HI,
		"en-GB": EN,
	}
	for in, want := range cases {
		got, err := Parse(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "fr", "not a tag!"} {
		_, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestBundlesComplete(t *testing.T) {
	for _, lang := range Languages {
		b := Bundle(lang)
		assert.NotEmpty(t, b.Greeting, lang)
		assert.NotEmpty(t, b.SystemInstruction, lang)
		assert.NotEmpty(t, b.APIKeyError, lang)
		assert.NotEmpty(t, b.InitializationFailed, lang)
		assert.NotEmpty(t, b.AIResponseError, lang)
		assert.NotEmpty(t, b.ImageUploadError, lang)
	}
	assert.NotEqual(t, Bundle(EN).SystemInstruction, Bundle(HI).SystemInstruction)
}

func TestBundleFallsBackToEnglish(t *testing.T) {
	assert.Equal(t, Bundle(EN), Bundle(Language("fr")))
}

func TestSpeechLocale(t *testing.T) {
	assert.Equal(t, "en-US", SpeechLocale(EN))
	assert.Equal(t, "hi-IN", SpeechLocale(HI))
	assert.Equal(t, "en-US", SpeechLocale(Language("xx")))
}
