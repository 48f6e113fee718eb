// Package imagecodec converts between request payloads and pixel buffers.
// Images are decoded once at ingress; everything downstream works on the
// decoded image.Image.
package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"

	// Registered decoders.
	_ "image/gif"
	_ "image/jpeg"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var ErrEmpty = errors.New("empty image payload")

// DecodeBase64 decodes a base64 payload. A data-URI prefix is stripped and
// its MIME type returned. Standard and URL-safe alphabets are accepted.
func DecodeBase64(s string) ([]byte, string, error) {
	s = strings.TrimSpace(s)
	var mime string
	if strings.HasPrefix(strings.ToLower(s), "data:") {
		idx := strings.IndexByte(s, ',')
		if idx < 0 {
			return nil, "", errors.New("malformed data URI")
		}
		meta := s[len("data:"):idx]
		if semi := strings.IndexByte(meta, ';'); semi >= 0 {
			mime = meta[:semi]
		} else {
			mime = meta
		}
		s = s[idx+1:]
	}
	if s == "" {
		return nil, mime, ErrEmpty
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if b, err := enc.DecodeString(s); err == nil {
			return b, mime, nil
		}
	}
	return nil, mime, errors.New("payload is not valid base64")
}

// Decode turns encoded image bytes into a pixel buffer, applying EXIF
// orientation for JPEGs.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", SniffMIME(data), err)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.New("image has no pixels")
	}
	return img, nil
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeDataURL encodes img as a base64 PNG data URI.
func EncodeDataURL(img image.Image) (string, error) {
	if img == nil {
		return "", nil
	}
	b, err := EncodePNG(img)
	if err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return MakeDataURL("image/png", base64.StdEncoding.EncodeToString(b)), nil
}

func MakeDataURL(mime, b64 string) string {
	return "data:" + mime + ";base64," + b64
}

// SniffMIME reports the content type of data for log messages.
func SniffMIME(data []byte) string {
	return http.DetectContentType(data)
}
