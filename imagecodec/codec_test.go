package imagecodec

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	img.Set(1, 1, color.NRGBA{R: 200, G: 10, B: 10, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecodeBase64_DataURI(t *testing.T) {
	raw := pngBytes(t, 4, 3)
	in := MakeDataURL("image/png", base64.StdEncoding.EncodeToString(raw))
	got, mime, err := DecodeBase64(in)
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if mime != "image/png" || !bytes.Equal(got, raw) {
		t.Fatalf("unexpected decode mime=%q len=%d", mime, len(got))
	}
}

func TestDecodeBase64_Plain(t *testing.T) {
	raw := []byte{1, 2, 3, 250, 251}
	for _, s := range []string{
		base64.StdEncoding.EncodeToString(raw),
		base64.RawURLEncoding.EncodeToString(raw),
		"  " + base64.StdEncoding.EncodeToString(raw) + "\n",
	} {
		got, _, err := DecodeBase64(s)
		if err != nil || !bytes.Equal(got, raw) {
			t.Fatalf("%q: got %v, %v", s, got, err)
		}
	}
}

func TestDecodeBase64_Errors(t *testing.T) {
	if _, _, err := DecodeBase64(""); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
	if _, _, err := DecodeBase64("data:image/png;base64,"); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty for empty data URI, got %v", err)
	}
	if _, _, err := DecodeBase64("@@@not base64@@@"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestDecode(t *testing.T) {
	img, err := Decode(pngBytes(t, 5, 7))
	if err != nil {
		t.Fatalf("unexpected error %v", err)
	}
	if img.Bounds().Dx() != 5 || img.Bounds().Dy() != 7 {
		t.Fatalf("unexpected bounds %v", img.Bounds())
	}
	if _, err := Decode([]byte("definitely not an image")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := Decode(nil); !errors.Is(err, ErrEmpty) {
		t.Fatalf("expected ErrEmpty, got %v", err)
	}
}

func TestEncodeDataURL_RoundTrip(t *testing.T) {
	src, err := Decode(pngBytes(t, 6, 2))
	if err != nil {
		t.Fatal(err)
	}
	uri, err := EncodeDataURL(src)
	if err != nil {
		t.Fatal(err)
	}
	raw, mime, err := DecodeBase64(uri)
	if err != nil || mime != "image/png" {
		t.Fatalf("unexpected %q %v", mime, err)
	}
	back, err := Decode(raw)
	if err != nil {
		t.Fatal(err)
	}
	if back.Bounds().Size() != src.Bounds().Size() {
		t.Fatalf("size changed %v -> %v", src.Bounds(), back.Bounds())
	}
}
