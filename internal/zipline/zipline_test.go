package zipline

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

func TestEncodeBMP24ProducesCorrectHeaderAndSize(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	for y := 0; y < targetHeight; y++ {
		for x := 0; x < targetWidth; x++ {
			img.Set(x, y, color.RGBA{R: 10, G: 20, B: 30, A: 255})
		}
	}

	data, err := encodeBMP24(img)
	if err != nil {
		t.Fatalf("encodeBMP24: %v", err)
	}

	if data[0] != 'B' || data[1] != 'M' {
		t.Fatalf("expected BM magic, got %q", data[:2])
	}
	fileSize := binary.LittleEndian.Uint32(data[2:6])
	if int(fileSize) != len(data) {
		t.Fatalf("header file size %d does not match actual length %d", fileSize, len(data))
	}

	width := binary.LittleEndian.Uint32(data[18:22])
	height := binary.LittleEndian.Uint32(data[22:26])
	if width != targetWidth || height != targetHeight {
		t.Fatalf("expected %dx%d, got %dx%d", targetWidth, targetHeight, width, height)
	}

	bpp := binary.LittleEndian.Uint16(data[28:30])
	if bpp != 24 {
		t.Fatalf("expected 24 bits per pixel, got %d", bpp)
	}
}

func TestToDisplayBMPResizesAndCentersImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.RGBA{R: 200, G: 0, B: 0, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	bmp, err := toDisplayBMP(buf.Bytes())
	if err != nil {
		t.Fatalf("toDisplayBMP: %v", err)
	}
	width := binary.LittleEndian.Uint32(bmp[18:22])
	height := binary.LittleEndian.Uint32(bmp[22:26])
	if width != targetWidth || height != targetHeight {
		t.Fatalf("expected canvas %dx%d, got %dx%d", targetWidth, targetHeight, width, height)
	}
}

func TestProcessImageDisabledWithoutToken(t *testing.T) {
	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	p := New(Config{}, log)

	original, display, err := p.ProcessImage(context.Background(), "https://example.test/whatever.jpg", "N1")
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if original != "" || display != "" {
		t.Fatalf("expected empty URLs when no token is configured, got %q %q", original, display)
	}
}

func TestProcessImageUploadsOriginalAndBMP(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))
	var srcBuf bytes.Buffer
	if err := jpeg.Encode(&srcBuf, src, nil); err != nil {
		t.Fatalf("jpeg.Encode: %v", err)
	}

	imageServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(srcBuf.Bytes())
	}))
	defer imageServer.Close()

	var uploadCount int
	ziplineServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("authorization") != "test-token" {
			t.Fatalf("expected authorization header to be set")
		}
		mediaType, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if err != nil || mediaType != "multipart/form-data" {
			t.Fatalf("expected multipart form data, got %q (%v)", r.Header.Get("Content-Type"), err)
		}
		mr := multipart.NewReader(r.Body, params["boundary"])
		part, err := mr.NextPart()
		if err != nil {
			t.Fatalf("NextPart: %v", err)
		}
		if _, err := io.ReadAll(part); err != nil {
			t.Fatalf("reading part: %v", err)
		}

		uploadCount++
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"files":[{"url":"https://zip.example.test/file.bin"}]}`))
	}))
	defer ziplineServer.Close()

	log, _ := logger.New(logger.Config{Level: "error", Format: "console"})
	p := New(Config{BaseURL: ziplineServer.URL, Token: "test-token"}, log)

	original, display, err := p.ProcessImage(context.Background(), imageServer.URL, "N1")
	if err != nil {
		t.Fatalf("ProcessImage: %v", err)
	}
	if original != "https://zip.example.test/file.bin" || display != "https://zip.example.test/file.bin" {
		t.Fatalf("unexpected URLs: %q %q", original, display)
	}
	if uploadCount != 2 {
		t.Fatalf("expected 2 uploads (original + bmp), got %d", uploadCount)
	}
}
