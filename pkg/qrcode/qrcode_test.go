package qrcode_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apexconsultoria/checkout/pkg/qrcode"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G'}

func TestGenerate(t *testing.T) {
	t.Run("returns png", func(t *testing.T) {
		png, err := qrcode.Generate("https://pay.example/abc", 128)
		require.NoError(t, err)
		assert.True(t, bytes.HasPrefix(png, pngHeader))
	})

	t.Run("defaults size", func(t *testing.T) {
		png, err := qrcode.Generate("https://pay.example/abc", 0)
		require.NoError(t, err)
		assert.NotEmpty(t, png)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := qrcode.Generate("   ", 128)
		assert.ErrorIs(t, err, qrcode.ErrEmptyContent)
	})
}

func TestGenerateDataURI(t *testing.T) {
	uri, err := qrcode.GenerateDataURI("https://pay.example/abc", 128)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}
