// Package qrcode renders payment links as QR code images so pix checkouts
// can be scanned directly from the confirmation screen.
package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent     = errors.New("qrcode: content cannot be empty")
	ErrFailedToGenerate = errors.New("qrcode: failed to generate image")
)

const defaultSize = 256

// Generate creates a PNG QR code for the given content.
func Generate(content string, size int) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if size <= 0 {
		size = defaultSize
	}
	png, err := skipqrcode.Encode(content, skipqrcode.Medium, size)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerate, err)
	}
	return png, nil
}

// GenerateDataURI creates a base64 data URI for embedding the QR code in an
// <img> tag without a separate request.
func GenerateDataURI(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
