package imagesource

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/chai2010/webp"
)

// createTestImage creates a bottle-like test image: a green column on grey
func createTestImage(width, height int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if x > width/3 && x < 2*width/3 {
				img.Set(x, y, color.RGBA{22, 163, 74, 255})
			} else {
				img.Set(x, y, color.RGBA{120, 120, 120, 255})
			}
		}
	}
	return img
}

func writeFile(t *testing.T, name string, encode func(*bytes.Buffer) error) string {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf); err != nil {
		t.Fatalf("encode %s: %v", name, err)
	}
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestNew(t *testing.T) {
	src := New()
	if src == nil {
		t.Fatal("New() returned nil")
	}
	if src.config.FetchTimeout.Seconds() != 30 {
		t.Errorf("Expected 30s fetch timeout, got %v", src.config.FetchTimeout)
	}
}

func TestProbePNG(t *testing.T) {
	path := writeFile(t, "bottle.png", func(b *bytes.Buffer) error {
		return png.Encode(b, createTestImage(120, 80))
	})

	w, h, err := New().Probe(context.Background(), path)
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if w != 120 || h != 80 {
		t.Errorf("Expected 120x80, got %dx%d", w, h)
	}
}

func TestInfoJPEG(t *testing.T) {
	path := writeFile(t, "bottle.jpg", func(b *bytes.Buffer) error {
		return jpeg.Encode(b, createTestImage(64, 128), &jpeg.Options{Quality: 80})
	})

	info, err := New().Info(context.Background(), path)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Format != "jpeg" {
		t.Errorf("Expected format jpeg, got %s", info.Format)
	}
	if info.AspectRatio != 0.5 {
		t.Errorf("Expected aspect ratio 0.5, got %f", info.AspectRatio)
	}
}

func TestProbeUnsupportedFormat(t *testing.T) {
	path := writeFile(t, "bottle.gif", func(b *bytes.Buffer) error {
		return gif.Encode(b, createTestImage(40, 40), nil)
	})

	if _, _, err := New().Probe(context.Background(), path); err == nil {
		t.Error("Expected gif to be rejected")
	}
}

func TestProbeMissingFile(t *testing.T) {
	if _, _, err := New().Probe(context.Background(), filepath.Join(t.TempDir(), "nope.jpg")); err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestProbeGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	if err := os.WriteFile(path, []byte("definitely not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, _, err := New().Probe(context.Background(), path); err == nil {
		t.Error("Expected error for unreadable image")
	}
}

// countingReader counts the bytes pulled from the underlying reader
type countingReader struct {
	r io.Reader
	n int
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += n
	return n, err
}

func TestInfoReadsOnlyHeader(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, createTestImage(120, 80)); err != nil {
		t.Fatal(err)
	}
	buf.Write(make([]byte, 1<<20))
	total := buf.Len()

	cr := &countingReader{r: &buf}
	info, err := New().readInfo(cr)
	if err != nil {
		t.Fatalf("readInfo failed: %v", err)
	}
	if info.Width != 120 || info.Height != 80 {
		t.Errorf("Expected 120x80, got %dx%d", info.Width, info.Height)
	}
	if cr.n >= 64<<10 {
		t.Errorf("Read %d of %d bytes to learn the size", cr.n, total)
	}
}

func TestInfoWebP(t *testing.T) {
	path := writeFile(t, "bottle.webp", func(b *bytes.Buffer) error {
		return webp.Encode(b, createTestImage(64, 48), &webp.Options{Lossless: true})
	})

	info, err := New().Info(context.Background(), path)
	if err != nil {
		t.Fatalf("Info failed: %v", err)
	}
	if info.Format != "webp" || info.Width != 64 || info.Height != 48 {
		t.Errorf("Unexpected info %+v", info)
	}
}

func TestLoadAndValidate(t *testing.T) {
	src := New()
	path := writeFile(t, "bottle.png", func(b *bytes.Buffer) error {
		return png.Encode(b, createTestImage(200, 300))
	})

	img, err := src.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if img.Bounds().Dx() != 200 || img.Bounds().Dy() != 300 {
		t.Errorf("Expected 200x300, got %v", img.Bounds())
	}
	if err := src.Validate(img); err != nil {
		t.Errorf("Valid image should pass validation: %v", err)
	}

	if err := src.Validate(createTestImage(10, 10)); err == nil {
		t.Error("Small image should fail validation")
	}
}

func TestProbeRemote(t *testing.T) {
	var body bytes.Buffer
	if err := png.Encode(&body, createTestImage(90, 30)); err != nil {
		t.Fatal(err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/bottle.png":
			if r.Header.Get("User-Agent") == "" {
				t.Error("Expected a User-Agent header")
			}
			w.Header().Set("Content-Type", "image/png")
			w.Write(body.Bytes())
		case "/page":
			w.Header().Set("Content-Type", "text/html")
			w.Write([]byte("<html></html>"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := New()
	w, h, err := src.Probe(context.Background(), srv.URL+"/bottle.png")
	if err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	if w != 90 || h != 30 {
		t.Errorf("Expected 90x30, got %dx%d", w, h)
	}

	if _, _, err := src.Probe(context.Background(), srv.URL+"/page"); err == nil {
		t.Error("Expected non-image content type to be rejected")
	}
	if _, _, err := src.Probe(context.Background(), srv.URL+"/missing.png"); err == nil {
		t.Error("Expected 404 to be reported")
	}
}

func TestIsRemote(t *testing.T) {
	cases := map[string]bool{
		"https://example.com/a.jpg": true,
		"http://example.com/a.jpg":  true,
		"/tmp/a.jpg":                false,
		"file:///tmp/a.jpg":         false,
	}
	for uri, want := range cases {
		if got := IsRemote(uri); got != want {
			t.Errorf("IsRemote(%q) = %v, want %v", uri, got, want)
		}
	}
}

func TestIsFormatSupported(t *testing.T) {
	src := New()
	for _, format := range []string{"jpg", "jpeg", "png", "webp", "JPEG", "WEBP"} {
		if !src.isFormatSupported(format) {
			t.Errorf("Format %s should be supported", format)
		}
	}
	for _, format := range []string{"gif", "bmp", "tiff"} {
		if src.isFormatSupported(format) {
			t.Errorf("Format %s should not be supported", format)
		}
	}
}

func TestIsWebP(t *testing.T) {
	if !isWebP([]byte("RIFF\x00\x00\x00\x00WEBPVP8 ")) {
		t.Error("Expected RIFF/WEBP signature to be detected")
	}
	if isWebP([]byte("\x89PNG\r\n\x1a\n")) {
		t.Error("PNG signature must not be detected as webp")
	}
}
