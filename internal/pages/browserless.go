package pages

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rmitchellscott/kindling/internal/imageprocessing"
)

// BrowserlessCapturer captures screenshots using an external browserless service
type BrowserlessCapturer struct {
	client  *http.Client
	baseURL string
}

// NewBrowserlessCapturer creates a capturer for the service at baseURL
func NewBrowserlessCapturer(baseURL string, client *http.Client) (*BrowserlessCapturer, error) {
	baseURL = strings.TrimSuffix(baseURL, "/")
	if baseURL == "" {
		return nil, fmt.Errorf("browserless URL is required")
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &BrowserlessCapturer{client: client, baseURL: baseURL}, nil
}

// screenshotRequest represents the request payload for browserless screenshot API
type screenshotRequest struct {
	URL      string `json:"url"`
	Viewport struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"viewport"`
	Options struct {
		Type           string `json:"type"`
		FullPage       bool   `json:"fullPage"`
		OmitBackground bool   `json:"omitBackground"`
	} `json:"options"`
	GotoOptions struct {
		WaitUntil string `json:"waitUntil"`
		Timeout   int    `json:"timeout"`
	} `json:"gotoOptions"`
	WaitForTimeout int `json:"waitForTimeout,omitempty"`
}

// Capture captures a screenshot of the given URL using browserless
func (b *BrowserlessCapturer) Capture(ctx context.Context, url string, width, height int, wait time.Duration) ([]byte, error) {
	var req screenshotRequest
	req.URL = url
	req.Viewport.Width = width
	req.Viewport.Height = height
	req.Options.Type = "png"
	req.GotoOptions.WaitUntil = "networkidle2"
	req.GotoOptions.Timeout = int((wait + 30*time.Second) / time.Millisecond)
	req.WaitForTimeout = int(wait / time.Millisecond)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal screenshot request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/screenshot", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to make request to browserless: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("browserless screenshot request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, imageprocessing.MaxDownloadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read browserless response: %w", err)
	}
	if len(data) > imageprocessing.MaxDownloadBytes {
		return nil, fmt.Errorf("screenshot exceeds %d bytes", imageprocessing.MaxDownloadBytes)
	}
	return data, nil
}
