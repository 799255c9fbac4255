// Package filetype classifies uploaded files by name and validates images.
package filetype

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
)

// ErrInvalidImage is returned when image bytes cannot be decoded.
var ErrInvalidImage = errors.New("invalid image")

// Kind is the closed set of file kinds the bot knows how to answer.
type Kind int

const (
	Unrecognized Kind = iota
	Image
	PDF
)

func (k Kind) String() string {
	switch k {
	case Image:
		return "image"
	case PDF:
		return "pdf"
	default:
		return "unrecognized"
	}
}

// Classify maps a file name to its Kind by extension, ignoring case.
func Classify(name string) Kind {
	switch strings.ToLower(path.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return Image
	case ".pdf":
		return PDF
	default:
		return Unrecognized
	}
}

// DecodeImage checks that data is a well-formed JPEG or PNG and returns its
// format and dimensions.
func DecodeImage(data []byte) (format string, width, height int, err error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", 0, 0, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	b := img.Bounds()
	return format, b.Dx(), b.Dy(), nil
}
