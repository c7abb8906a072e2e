// Package zipline implements media.ImageProcessor by downloading a
// source photo, re-hosting the original on a Zipline instance, and
// uploading a resized 24-bit BMP version sized for a small e-paper or
// LCD display.
package zipline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/hangarwatch/aerofuse/pkg/logger"
)

const (
	targetWidth  = 96
	targetHeight = 72
)

// Config configures the upstream Zipline instance.
type Config struct {
	BaseURL        string
	Token          string
	FolderID       string
	TimeoutSeconds int
}

// Processor uploads aircraft photos to Zipline, producing both a
// re-hosted original and a display-ready BMP thumbnail.
type Processor struct {
	httpClient *http.Client
	cfg        Config
	log        *logger.Logger

	mu    sync.Mutex
	cache map[string][2]string // source URL -> [processedURL, displayBMPURL]
}

// New constructs a Processor. An empty Token disables uploads:
// ProcessImage then returns empty strings without error, mirroring the
// original tool's tolerance for a deployment with no Zipline account.
func New(cfg Config, log *logger.Logger) *Processor {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Processor{
		httpClient: &http.Client{Timeout: timeout},
		cfg:        cfg,
		log:        log.Named("zipline"),
		cache:      make(map[string][2]string),
	}
}

// ProcessImage downloads imageURL, uploads the original to Zipline,
// resizes and re-encodes it as a 96x72 24-bit BMP, and uploads that
// too. Either URL may come back empty if that step fails or uploads
// are disabled — a processing failure never aborts the cycle.
func (p *Processor) ProcessImage(ctx context.Context, imageURL, registration string) (processedURL, displayBMPURL string, err error) {
	if p.cfg.Token == "" {
		return "", "", nil
	}

	p.mu.Lock()
	if cached, ok := p.cache[imageURL]; ok {
		p.mu.Unlock()
		return cached[0], cached[1], nil
	}
	p.mu.Unlock()

	data, err := p.download(ctx, imageURL)
	if err != nil {
		return "", "", fmt.Errorf("failed to download source image: %w", err)
	}

	original, err := p.upload(ctx, data, registration, false)
	if err != nil {
		p.log.Warn("failed to upload original image", logger.String("registration", registration), logger.Error(err))
	}

	bmp, convErr := toDisplayBMP(data)
	var display string
	if convErr != nil {
		p.log.Warn("failed to convert image to display bmp", logger.String("registration", registration), logger.Error(convErr))
	} else {
		display, err = p.upload(ctx, bmp, registration, true)
		if err != nil {
			p.log.Warn("failed to upload display bmp", logger.String("registration", registration), logger.Error(err))
		}
	}

	p.mu.Lock()
	p.cache[imageURL] = [2]string{original, display}
	p.mu.Unlock()

	return original, display, nil
}

func (p *Processor) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "aerofuse/1.0 (aircraft image processor)")
	req.Header.Set("Accept", "image/*")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

func (p *Processor) upload(ctx context.Context, data []byte, registration string, isBMP bool) (string, error) {
	ext := "jpg"
	suffix := "_original"
	if isBMP {
		ext = "bmp"
		suffix = "_esp32"
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	filename := fmt.Sprintf("aircraft_%d_%s%s.%s", time.Now().Unix(), strings.ToLower(registration), suffix, ext)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	uploadURL := strings.TrimRight(p.cfg.BaseURL, "/") + "/api/upload"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("authorization", p.cfg.Token)
	req.Header.Set("x-zipline-format", "name")
	if p.cfg.FolderID != "" {
		req.Header.Set("x-zipline-folder", p.cfg.FolderID)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("zipline upload returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Files []struct {
			URL string `json:"url"`
		} `json:"files"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Files) == 0 {
		return "", fmt.Errorf("zipline response had no files")
	}
	return parsed.Files[0].URL, nil
}

// toDisplayBMP resizes img to fit within targetWidth x targetHeight,
// centers it on a black canvas of exactly that size, and encodes the
// result as an uncompressed 24-bit BMP.
func toDisplayBMP(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode source image: %w", err)
	}

	thumb := resize.Thumbnail(targetWidth, targetHeight, src, resize.Lanczos3)

	canvas := image.NewRGBA(image.Rect(0, 0, targetWidth, targetHeight))
	offsetX := (targetWidth - thumb.Bounds().Dx()) / 2
	offsetY := (targetHeight - thumb.Bounds().Dy()) / 2
	for y := 0; y < thumb.Bounds().Dy(); y++ {
		for x := 0; x < thumb.Bounds().Dx(); x++ {
			canvas.Set(offsetX+x, offsetY+y, thumb.At(thumb.Bounds().Min.X+x, thumb.Bounds().Min.Y+y))
		}
	}

	return encodeBMP24(canvas)
}

// encodeBMP24 writes img as an uncompressed 24-bit-per-pixel BMP.
// The standard library has no BMP encoder (nor a BMP decoder), and none
// of the example repos import one, so this is a small hand-written
// implementation of the fixed BITMAPFILEHEADER/BITMAPINFOHEADER
// layout rather than a third-party dependency for a single well-known
// binary format.
func encodeBMP24(img *image.RGBA) ([]byte, error) {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()

	rowSize := (w*3 + 3) &^ 3 // rows are padded to a 4-byte boundary
	pixelDataSize := rowSize * h
	fileSize := 54 + pixelDataSize

	buf := make([]byte, fileSize)

	// BITMAPFILEHEADER
	buf[0], buf[1] = 'B', 'M'
	putUint32(buf[2:], uint32(fileSize))
	putUint32(buf[10:], 54) // pixel data offset

	// BITMAPINFOHEADER
	putUint32(buf[14:], 40)
	putUint32(buf[18:], uint32(w))
	putUint32(buf[22:], uint32(h))
	buf[26], buf[27] = 1, 0 // color planes
	buf[28], buf[29] = 24, 0 // bits per pixel
	putUint32(buf[34:], uint32(pixelDataSize))

	// Pixel data, bottom-up, BGR order, row-padded.
	offset := 54
	for y := h - 1; y >= 0; y-- {
		rowStart := offset
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			buf[offset] = byte(b >> 8)
			buf[offset+1] = byte(g >> 8)
			buf[offset+2] = byte(r >> 8)
			offset += 3
		}
		offset = rowStart + rowSize
	}

	return buf, nil
}

func putUint32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
