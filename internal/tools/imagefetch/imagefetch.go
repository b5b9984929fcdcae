// Package imagefetch implements the image discovery tool: given an entity's
// website it locates a representative logo or header image through an
// ordered chain of scraping heuristics, normalizes it, and persists it under
// a deterministic filename.
package imagefetch

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/agent-cli/internal/tools"
)

const (
	// ToolName is the registry key agents use to invoke this tool.
	ToolName = "image_fetch"

	logoBoxSize                = 256
	minHeaderWidth             = 400
	successConfidence          = 0.85
	undersizedHeaderMultiplier = 0.7
	maxImageBytes              = 10 << 20
)

// commonLogoPaths are conventional locations probed relative to the site
// root when page scraping finds nothing (logo mode only).
var commonLogoPaths = []string{
	"/favicon.ico",
	"/favicon.png",
	"/logo.png",
	"/logo.svg",
	"/images/logo.png",
	"/assets/logo.png",
	"/img/logo.png",
}

// Config configures the tool.
type Config struct {
	BaseDir         string
	Timeout         time.Duration
	PerHostRate     rate.Limit
	MinFaviconBytes int
}

// Tool fetches and saves logos and header images. Safe for concurrent use.
type Tool struct {
	cfg    Config
	client *http.Client

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// New creates the tool with defaults filled in.
func New(cfg Config) *Tool {
	if cfg.BaseDir == "" {
		cfg.BaseDir = "static/images"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.PerHostRate == 0 {
		cfg.PerHostRate = 2
	}
	if cfg.MinFaviconBytes == 0 {
		cfg.MinFaviconBytes = 1000
	}
	return &Tool{
		cfg:      cfg,
		client:   &http.Client{Timeout: cfg.Timeout},
		limiters: make(map[string]*rate.Limiter),
	}
}

// Name implements tools.Tool.
func (t *Tool) Name() string { return ToolName }

// Execute implements tools.Tool.
//
// Expected params: entity_type ("agency"|"vendor"), entity_name, short_name
// (optional), website_url (optional), image_type ("logo"|"header").
func (t *Tool) Execute(ctx context.Context, tc tools.Context) tools.Result {
	params := tc.Params
	entityType := stringParam(params, "entity_type", "agency")
	entityName := stringParam(params, "entity_name", "")
	shortName := stringParam(params, "short_name", "")
	websiteURL := stringParam(params, "website_url", "")
	imageType := stringParam(params, "image_type", "logo")

	logs := []string{fmt.Sprintf("Starting %s fetch for %s", imageType, entityName)}

	if shortName == "" {
		shortName = ShortName(entityName)
		logs = append(logs, "Generated short_name: "+shortName)
	}

	var (
		imageData []byte
		source    string
	)
	if websiteURL != "" {
		logs = append(logs, "Attempting to fetch from website: "+websiteURL)
		imageData, source = t.fetchFromWebsite(ctx, websiteURL, imageType, &logs)
	}

	if imageData == nil {
		logs = append(logs, "Could not fetch image from website")
		return tools.Result{
			Success:    false,
			Data:       map[string]any{"reason": "Image not found"},
			Confidence: 0.0,
			Logs:       logs,
		}
	}

	confidence := successConfidence

	img, err := imaging.Decode(bytes.NewReader(imageData))
	if err != nil {
		logs = append(logs, "Error processing image: "+err.Error())
		return tools.Result{
			Success:    false,
			Data:       map[string]any{"error": err.Error()},
			Confidence: 0.0,
			Logs:       logs,
			Error:      err.Error(),
		}
	}

	// Normalize to a transparency-capable format.
	normalized := imaging.Clone(img)

	if imageType == "logo" {
		// Shrink to fit the bounding box; Fit never enlarges.
		normalized = imaging.Fit(normalized, logoBoxSize, logoBoxSize, imaging.Lanczos)
	} else if normalized.Bounds().Dx() < minHeaderWidth {
		logs = append(logs, fmt.Sprintf("Header too narrow (%dpx), may need manual replacement", normalized.Bounds().Dx()))
		confidence *= undersizedHeaderMultiplier
	}

	// Create the directory only once there is an image to put in it.
	targetDir := t.targetDir(entityType, imageType)
	if err := os.MkdirAll(targetDir, 0o755); err != nil {
		logs = append(logs, "Error creating target dir: "+err.Error())
		return tools.Result{
			Success:    false,
			Data:       map[string]any{"error": err.Error()},
			Confidence: 0.0,
			Logs:       logs,
			Error:      err.Error(),
		}
	}

	filename := fmt.Sprintf("%s_%s.png", shortName, imageType)
	filePath := filepath.Join(targetDir, filename)

	if err := imaging.Save(normalized, filePath); err != nil {
		logs = append(logs, "Error saving image: "+err.Error())
		return tools.Result{
			Success:    false,
			Data:       map[string]any{"error": err.Error()},
			Confidence: 0.0,
			Logs:       logs,
			Error:      err.Error(),
		}
	}
	logs = append(logs, "Saved image to "+filePath)

	bounds := normalized.Bounds()
	return tools.Result{
		Success: true,
		Data: map[string]any{
			"filepath":   filePath,
			"filename":   filename,
			"source":     source,
			"dimensions": fmt.Sprintf("%dx%d", bounds.Dx(), bounds.Dy()),
		},
		Confidence: confidence,
		Logs:       logs,
	}
}

// targetDir picks the directory by entity type and image class.
func (t *Tool) targetDir(entityType, imageType string) string {
	prefix := entityType
	if entityType == "agency" {
		prefix = "transit"
	}
	return filepath.Join(t.cfg.BaseDir, fmt.Sprintf("%s_%ss", prefix, imageType))
}

// fetchFromWebsite runs the heuristic chain: homepage scrape (og:image, then
// mode-matched inline images, then icon links above the minimum size), then
// conventional paths for logos. First success wins; every attempt is logged
// and network failures only fail that attempt.
func (t *Tool) fetchFromWebsite(ctx context.Context, website, imageType string, logs *[]string) ([]byte, string) {
	base, err := url.Parse(website)
	if err != nil || base.Host == "" {
		*logs = append(*logs, "Invalid website URL: "+website)
		return nil, ""
	}

	page, err := t.fetchPage(ctx, website)
	if err != nil {
		*logs = append(*logs, "Error fetching homepage: "+err.Error())
	}

	if page != nil {
		// Social-preview meta tag.
		if page.OGImage != "" {
			if imgURL := resolveRef(base, page.OGImage); imgURL != "" {
				*logs = append(*logs, "Found og:image: "+imgURL)
				if data := t.downloadImage(ctx, imgURL); data != nil {
					return data, "og:image"
				}
			}
		}

		// Inline images whose source, alt text, or class matches the mode.
		for _, img := range page.Images {
			if !matchesMode(img, imageType) {
				continue
			}
			imgURL := resolveRef(base, img.Src)
			if imgURL == "" {
				continue
			}
			source := "html_img"
			if imageType == "header" {
				source = "header_img"
			}
			*logs = append(*logs, fmt.Sprintf("Found %s img: %s", imageType, imgURL))
			if data := t.downloadImage(ctx, imgURL); data != nil {
				return data, source
			}
		}

		// Icon links; tiny results are throwaway favicons.
		for _, href := range page.Icons {
			imgURL := resolveRef(base, href)
			if imgURL == "" {
				continue
			}
			*logs = append(*logs, "Found favicon link: "+imgURL)
			if data := t.downloadImage(ctx, imgURL); len(data) > t.cfg.MinFaviconBytes {
				return data, "favicon_link"
			}
		}
	}

	if imageType == "logo" {
		root := base.Scheme + "://" + base.Host
		for _, path := range commonLogoPaths {
			*logs = append(*logs, "Trying common path: "+path)
			if data := t.downloadImage(ctx, root+path); data != nil {
				return data, "common_path:" + path
			}
		}
	}

	return nil, ""
}

// fetchPage downloads and parses the homepage once.
func (t *Tool) fetchPage(ctx context.Context, pageURL string) (*pageAssets, error) {
	body, _, err := t.get(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	return parsePage(bytes.NewReader(body)), nil
}

// downloadImage fetches a candidate URL, accepting it only when it looks
// like an image. Errors are absorbed; the chain moves on.
func (t *Tool) downloadImage(ctx context.Context, imgURL string) []byte {
	body, contentType, err := t.get(ctx, imgURL)
	if err != nil {
		zap.L().Debug("imagefetch: download failed",
			zap.String("url", imgURL),
			zap.Error(err),
		)
		return nil
	}
	if strings.Contains(contentType, "image") || hasImageExtension(imgURL) {
		return body
	}
	return nil
}

func (t *Tool) get(ctx context.Context, rawURL string) ([]byte, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", err
	}
	if err := t.limiter(u.Host).Wait(ctx); err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	req.Header.Set("User-Agent", "agent-cli/1.0")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes))
	if err != nil {
		return nil, "", err
	}
	return body, resp.Header.Get("Content-Type"), nil
}

// limiter returns the politeness limiter for a host, creating it on first
// use.
func (t *Tool) limiter(host string) *rate.Limiter {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.limiters[host]
	if !ok {
		l = rate.NewLimiter(t.cfg.PerHostRate, 1)
		t.limiters[host] = l
	}
	return l
}

// matchesMode reports whether an inline image looks like the requested
// class. Logo mode matches "logo" in the source path, alt text, or class;
// header mode matches header/banner/hero, also checking the parent
// container's class.
func matchesMode(img imageRef, imageType string) bool {
	if imageType == "logo" {
		haystack := strings.ToLower(img.Src) + " " + img.Alt + " " + img.Class
		return strings.Contains(haystack, "logo")
	}
	haystack := strings.ToLower(img.Src) + " " + img.Class + " " + img.ParentClass
	for _, kw := range []string{"header", "banner", "hero"} {
		if strings.Contains(haystack, kw) {
			return true
		}
	}
	return false
}

func resolveRef(base *url.URL, ref string) string {
	u, err := base.Parse(strings.TrimSpace(ref))
	if err != nil {
		return ""
	}
	return u.String()
}

func hasImageExtension(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	for _, ext := range []string{".png", ".jpg", ".jpeg", ".ico", ".gif", ".webp"} {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

func stringParam(params map[string]any, key, fallback string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
