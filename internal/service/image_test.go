package service

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Minimal valid file headers, enough for content-type sniffing.
var (
	pngHeader  = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0}
	jpegHeader = []byte{0xff, 0xd8, 0xff, 0xe0, 0, 0, 0, 0}
)

func TestDecodePhoto(t *testing.T) {
	t.Run("plain base64 png", func(t *testing.T) {
		data, contentType, err := decodePhoto(base64.StdEncoding.EncodeToString(pngHeader))
		require.NoError(t, err)
		assert.Equal(t, "image/png", contentType)
		assert.Equal(t, pngHeader, data)
	})

	t.Run("data-URL prefix is stripped", func(t *testing.T) {
		encoded := "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(jpegHeader)
		_, contentType, err := decodePhoto(encoded)
		require.NoError(t, err)
		assert.Equal(t, "image/jpeg", contentType)
	})

	t.Run("invalid base64", func(t *testing.T) {
		_, _, err := decodePhoto("!!! not base64 !!!")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty payload", func(t *testing.T) {
		_, _, err := decodePhoto("")
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("unsupported content type", func(t *testing.T) {
		_, _, err := decodePhoto(base64.StdEncoding.EncodeToString([]byte("%PDF-1.4 pretend document")))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("oversized payload", func(t *testing.T) {
		big := make([]byte, maxPhotoBytes+1)
		copy(big, jpegHeader)
		_, _, err := decodePhoto(base64.StdEncoding.EncodeToString(big))
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}
