package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path"
	"time"

	"github.com/disintegration/imaging"

	"feed_poster/internal/domain"
)

// Config holds the image envelope.
type Config struct {
	MinDimension int
	MaxDimension int
	JPEGQuality  int
	MaxFileSize  int64
	FetchTimeout time.Duration
}

// Scorer rates encoded image bytes for policy violations; scores above the
// configured threshold reject the image.
type Scorer interface {
	Score(ctx context.Context, data []byte) (float64, error)
}

// Processor fetches, validates and re-encodes a single image to fit the
// platform envelope. Every failure is per-image: the caller skips the image
// and carries on with the rest of its batch.
type Processor struct {
	client    *http.Client
	cfg       Config
	scorer    Scorer // nil disables the safety check
	threshold float64
	logger    *slog.Logger
}

// New creates an image processor. scorer may be nil.
func New(cfg Config, scorer Scorer, threshold float64, logger *slog.Logger) *Processor {
	return &Processor{
		client:    &http.Client{Timeout: cfg.FetchTimeout},
		cfg:       cfg,
		scorer:    scorer,
		threshold: threshold,
		logger:    logger.With("component", "images"),
	}
}

// RefererFor returns the request referer expected by a source's image host.
func RefererFor(kind domain.SourceKind) string {
	if kind == domain.KindPixiv {
		return "https://www.pixiv.net/"
	}
	return ""
}

// Process downloads the image and returns it re-encoded within the envelope.
// A non-nil error always means "skip this image".
func (p *Processor) Process(ctx context.Context, rawURL, referer string) (*domain.ImageFile, error) {
	data, err := p.fetch(ctx, rawURL, referer)
	if err != nil {
		return nil, err
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < p.cfg.MinDimension || height < p.cfg.MinDimension {
		return nil, fmt.Errorf("image too small: %dx%d", width, height)
	}
	if width > p.cfg.MaxDimension || height > p.cfg.MaxDimension {
		img = imaging.Fit(img, p.cfg.MaxDimension, p.cfg.MaxDimension, imaging.Lanczos)
		p.logger.Debug("resized image",
			"url", rawURL,
			"from", fmt.Sprintf("%dx%d", width, height),
			"to", fmt.Sprintf("%dx%d", img.Bounds().Dx(), img.Bounds().Dy()),
		)
	}

	encoded, name, err := p.encode(img, rawURL)
	if err != nil {
		return nil, err
	}
	if int64(len(encoded)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("encoded image too large: %d bytes", len(encoded))
	}

	if p.scorer != nil {
		score, err := p.scorer.Score(ctx, encoded)
		if err != nil {
			return nil, fmt.Errorf("safety score: %w", err)
		}
		if score > p.threshold {
			return nil, fmt.Errorf("safety score %.3f above threshold %.3f", score, p.threshold)
		}
	}

	return &domain.ImageFile{Name: name, Data: encoded}, nil
}

func (p *Processor) fetch(ctx context.Context, rawURL, referer string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, p.cfg.MaxFileSize*4))
	if err != nil {
		return nil, fmt.Errorf("read image body: %w", err)
	}
	return data, nil
}

// encode prefers lossy JPEG; images with an alpha channel keep PNG so
// transparency survives. Returns the payload and a platform-facing filename.
func (p *Processor) encode(img image.Image, rawURL string) ([]byte, string, error) {
	format := imaging.JPEG
	ext := ".jpg"
	if hasAlpha(img) {
		format = imaging.PNG
		ext = ".png"
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format, imaging.JPEGQuality(p.cfg.JPEGQuality)); err != nil {
		return nil, "", fmt.Errorf("encode image: %w", err)
	}

	return buf.Bytes(), fileName(rawURL, ext), nil
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	return false
}

func fileName(rawURL, ext string) string {
	name := "image"
	if u, err := url.Parse(rawURL); err == nil && u.Path != "" {
		if base := path.Base(u.Path); base != "." && base != "/" {
			name = base
		}
	}
	if got := path.Ext(name); got != "" {
		name = name[:len(name)-len(got)]
	}
	return name + ext
}
