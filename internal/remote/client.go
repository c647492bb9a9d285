package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"plate-service/internal/config"
	"plate-service/internal/model"
	"plate-service/internal/utils"
)

// Service is the central dispatch system the field units report to. It
// receives captured records and publishes the hot sheet.
type Service interface {
	SendRecord(ctx context.Context, record *model.PlateRecord) error
	FetchWatchlist(ctx context.Context) ([]string, error)
	FetchHotDetails(ctx context.Context, plateText string) (*HotDetailsPayload, error)
}

// HotDetailsPayload carries the parsed vehicle details plus the raw
// response body, which is stored verbatim alongside the parsed fields.
type HotDetailsPayload struct {
	Details model.HotDetails
	Raw     json.RawMessage
}

type recordPayload struct {
	PlateText  string    `json:"plate_text"`
	SourceType string    `json:"source_type"`
	CapturedAt time.Time `json:"captured_at"`
	FullImage  string    `json:"full_image"`
	PlateImage string    `json:"plate_image"`
	IsHot      bool      `json:"is_hot"`
}

type watchlistResponse struct {
	Data []string `json:"data"`
}

type hotDetailsResponse struct {
	Make  *string  `json:"make,omitempty"`
	Model *string  `json:"model,omitempty"`
	Color *string  `json:"color,omitempty"`
	Flags []string `json:"flags,omitempty"`
	Notes *string  `json:"notes,omitempty"`
}

type Client struct {
	baseURL       string
	internalToken string
	httpClient    *http.Client
}

func NewClient(cfg config.RemoteConfig) *Client {
	return &Client{
		baseURL:       cfg.BaseURL,
		internalToken: cfg.InternalToken,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// SendRecord reports a captured plate to dispatch. Any non-2xx status is
// an error; the caller decides how the failure affects the record.
func (c *Client) SendRecord(ctx context.Context, record *model.PlateRecord) error {
	if c.baseURL == "" {
		return fmt.Errorf("dispatch service URL is not configured")
	}

	payload := recordPayload{
		PlateText:  record.PlateText,
		SourceType: string(record.SourceType),
		CapturedAt: record.CreatedAt,
		FullImage:  record.FullImage,
		PlateImage: record.PlateImage,
		IsHot:      record.IsHot,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/internal/plates", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("dispatch returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// FetchWatchlist pulls the current hot sheet plate list.
func (c *Client) FetchWatchlist(ctx context.Context) ([]string, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("dispatch service URL is not configured")
	}

	resp, err := c.do(ctx, http.MethodGet, "/internal/hot-sheet", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dispatch returned status %d: %s", resp.StatusCode, string(body))
	}

	var response watchlistResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return response.Data, nil
}

// FetchHotDetails looks up vehicle details for a listed plate. A 404 means
// the plate is not on the hot sheet and returns nil without error.
func (c *Client) FetchHotDetails(ctx context.Context, plateText string) (*HotDetailsPayload, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("dispatch service URL is not configured")
	}

	normalized := utils.NormalizePlate(plateText)
	if normalized == "" {
		return nil, fmt.Errorf("invalid plate number")
	}

	resp, err := c.do(ctx, http.MethodGet, "/internal/hot-sheet/"+normalized, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("dispatch returned status %d: %s", resp.StatusCode, string(body))
	}

	var response hotDetailsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	return &HotDetailsPayload{
		Details: model.HotDetails{
			Make:  response.Make,
			Model: response.Model,
			Color: response.Color,
			Flags: response.Flags,
			Notes: response.Notes,
		},
		Raw: json.RawMessage(body),
	}, nil
}

// do executes the request with retry on network errors. HTTP error
// statuses are not retried here; retry policy for those lives with the
// sync layer and its send state machine.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	maxRetries := 3

	var resp *http.Response
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.internalToken != "" {
			req.Header.Set("X-Internal-Token", c.internalToken)
		}

		resp, lastErr = c.httpClient.Do(req)
		if lastErr == nil {
			return resp, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
	}
	return nil, fmt.Errorf("failed to execute request after %d attempts: %w", maxRetries, lastErr)
}
