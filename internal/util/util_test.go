package util

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStripCodeFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"surrounding whitespace", "  \n```json\n{\"a\":1}\n```\n ", `{"a":1}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripCodeFences(tt.in))
		})
	}
}

func TestDecodeBase64MaybeDataURL(t *testing.T) {
	raw := []byte{0xFF, 0xD8, 0x01, 0x02}
	b64 := base64.StdEncoding.EncodeToString(raw)

	got, hint, err := DecodeBase64MaybeDataURL(b64)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Empty(t, hint)

	got, hint, err = DecodeBase64MaybeDataURL("data:image/jpeg;base64," + b64)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
	assert.Equal(t, "image/jpeg", hint)

	_, _, err = DecodeBase64MaybeDataURL("not base64 at all!!!")
	assert.Error(t, err)
}

func TestPickMIME(t *testing.T) {
	jpeg := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46}
	assert.Equal(t, "image/png", PickMIME("image/png", "image/jpeg", jpeg))
	assert.Equal(t, "image/jpeg", PickMIME("", "image/jpeg", jpeg))
	assert.Equal(t, "image/jpeg", PickMIME("", "", jpeg))
	assert.Equal(t, "image/jpeg", PickMIME("", "", nil))
}
