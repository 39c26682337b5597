package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client talks to a sidecar inference service exposing /detect and /embed.
// It implements both Detector and Extractor.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the inference service at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type detectRequest struct {
	Image  string `json:"image"` // base64-encoded frame
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type detectResponse struct {
	Faces []struct {
		BBox  [4]float64 `json:"bbox"`
		Score float64    `json:"score"`
	} `json:"faces"`
}

// Detect finds face regions in a frame via the sidecar's /detect endpoint.
func (c *Client) Detect(ctx context.Context, frame Frame) ([]Region, error) {
	var resp detectResponse
	err := c.postJSON(ctx, "/detect", detectRequest{
		Image:  base64.StdEncoding.EncodeToString(frame.Image),
		Width:  frame.Width,
		Height: frame.Height,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("detect: %w", err)
	}

	regions := make([]Region, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		regions = append(regions, Region{
			X0: f.BBox[0], Y0: f.BBox[1], X1: f.BBox[2], Y1: f.BBox[3],
			Score: f.Score,
		})
	}
	return regions, nil
}

type embedRequest struct {
	Image string     `json:"image"`
	BBox  [4]float64 `json:"bbox"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed extracts an embedding for one face region via /embed. An empty
// embedding in the response is passed through; the caller treats it as
// extraction failure, not an error.
func (c *Client) Embed(ctx context.Context, frame Frame, region Region) ([]float32, error) {
	var resp embedResponse
	err := c.postJSON(ctx, "/embed", embedRequest{
		Image: base64.StdEncoding.EncodeToString(frame.Image),
		BBox:  [4]float64{region.X0, region.Y0, region.X1, region.Y1},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("embed: %w", err)
	}
	return resp.Embedding, nil
}

// Healthy checks the sidecar's /health endpoint.
func (c *Client) Healthy(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("inference service unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("inference service unhealthy: status %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, endpoint string, requestBody, result any) error {
	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return fmt.Errorf("could not marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("could not unmarshal response: %w", err)
	}
	return nil
}
