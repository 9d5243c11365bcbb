package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/killallgit/transcript-sync/internal/models"
	apperrors "github.com/killallgit/transcript-sync/pkg/errors"
	"golang.org/x/time/rate"
)

const serviceName = "transcript-sync"

// Client talks to a transcript-sync server. It implements the persistence
// contract of a sync session.
type Client struct {
	httpClient   *http.Client
	streamClient *http.Client
	baseURL      string
	transcriptID string
	userID       string
	displayName  string
	token        string
	userAgent    string
	limiter      *rate.Limiter

	pending atomic.Int32
}

// Config holds configuration for the client
type Config struct {
	BaseURL      string
	TranscriptID string
	UserID       string
	DisplayName  string
	Token        string // sent as a bearer token instead of X-User-ID when set
	UserAgent    string
	Timeout      time.Duration
	WriteRate    float64 // writes per second, 0 for no limit
}

// NewClient creates a new client
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "TranscriptSync/1.0"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.WriteRate > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.WriteRate), 1)
	}

	return &Client{
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		streamClient: &http.Client{}, // streams stay open until cancelled
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		transcriptID: cfg.TranscriptID,
		userID:       cfg.UserID,
		displayName:  cfg.DisplayName,
		token:        cfg.Token,
		userAgent:    cfg.UserAgent,
		limiter:      limiter,
	}
}

// TranscriptID returns the transcript the client is bound to
func (c *Client) TranscriptID() string {
	return c.transcriptID
}

// newRequest builds an API request carrying the writer identity
func (c *Client) newRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.userAgent)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.userID != "" {
		req.Header.Set("X-User-ID", c.userID)
		if c.displayName != "" {
			req.Header.Set("X-User-Name", c.displayName)
		}
	}
	return req, nil
}

// makeAPIRequest sends a request and decodes a 2xx body into result
func (c *Client) makeAPIRequest(ctx context.Context, method, endpoint string, body, result interface{}) error {
	req, err := c.newRequest(ctx, method, endpoint, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.ExternalServiceError(serviceName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if result == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError turns a non-2xx response into an AppError carrying the
// server's error code
func decodeError(resp *http.Response) error {
	var body errorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)

	code := apperrors.ErrorCode(body.Error)
	if code == "" {
		code = apperrors.CodeForStatus(resp.StatusCode)
	}
	message := body.Message
	if message == "" {
		message = fmt.Sprintf("server returned status %d", resp.StatusCode)
	}
	return apperrors.New(code, message).WithDetail("status", resp.StatusCode)
}

// List returns every live region of a transcript
func (c *Client) List(ctx context.Context, transcriptID string) ([]models.Region, error) {
	var resp regionsResponse
	endpoint := fmt.Sprintf("/api/v1/transcripts/%s/regions", url.PathEscape(transcriptID))
	if err := c.makeAPIRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}

// ListSince returns every change to the transcript written after since,
// tombstones included
func (c *Client) ListSince(ctx context.Context, transcriptID string, since int64) ([]models.RemoteRegion, error) {
	var resp changesResponse
	endpoint := fmt.Sprintf("/api/v1/transcripts/%s/regions?since=%s",
		url.PathEscape(transcriptID), strconv.FormatInt(since, 10))
	if err := c.makeAPIRequest(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Items, nil
}

// QueryOne fetches one region
func (c *Client) QueryOne(ctx context.Context, regionID string) (*models.Region, error) {
	var resp regionResponse
	if err := c.makeAPIRequest(ctx, http.MethodGet, "/api/v1/regions/"+url.PathEscape(regionID), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Region, nil
}

// Create stores a new region in the transcript of region
func (c *Client) Create(ctx context.Context, region models.Region) (*models.Region, error) {
	if region.TranscriptID == "" {
		region.TranscriptID = c.transcriptID
	}
	var resp regionResponse
	endpoint := fmt.Sprintf("/api/v1/transcripts/%s/regions", url.PathEscape(region.TranscriptID))
	if err := c.makeAPIRequest(ctx, http.MethodPost, endpoint, region, &resp); err != nil {
		return nil, err
	}
	return resp.Region, nil
}

// Write sends a field patch. Writes are paced by the configured rate and
// count as unacknowledged until the server answers.
func (c *Client) Write(ctx context.Context, regionID string, patch models.RegionPatch) (*models.Region, error) {
	c.pending.Add(1)
	defer c.pending.Add(-1)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for write slot: %w", err)
	}

	var resp regionResponse
	if err := c.makeAPIRequest(ctx, http.MethodPatch, "/api/v1/regions/"+url.PathEscape(regionID), patch, &resp); err != nil {
		return nil, err
	}
	if resp.Region == nil {
		return nil, fmt.Errorf("write of region %s: empty response", regionID)
	}
	return resp.Region, nil
}

// Delete tombstones a region
func (c *Client) Delete(ctx context.Context, regionID string) error {
	c.pending.Add(1)
	defer c.pending.Add(-1)

	return c.makeAPIRequest(ctx, http.MethodDelete, "/api/v1/regions/"+url.PathEscape(regionID), nil, nil)
}

// IsBusy reports whether a write has been sent but not acknowledged
func (c *Client) IsBusy() bool {
	return c.pending.Load() > 0
}

// Me returns the user id the server resolves the client's credentials to
func (c *Client) Me(ctx context.Context) (string, error) {
	var resp userResponse
	if err := c.makeAPIRequest(ctx, http.MethodGet, "/api/v1/me", nil, &resp); err != nil {
		return "", err
	}
	if resp.User == nil || resp.User.ID == "" {
		return "", apperrors.New(apperrors.ErrCodeUnauthorized, "server returned no identity")
	}
	return resp.User.ID, nil
}

// ServerBusy asks the server whether it is applying a write
func (c *Client) ServerBusy(ctx context.Context) (bool, error) {
	var resp statusResponse
	if err := c.makeAPIRequest(ctx, http.MethodGet, "/api/v1/status", nil, &resp); err != nil {
		return false, err
	}
	return resp.Busy, nil
}

// Subscribe opens the snapshot stream of a transcript. With since >= 0 the
// changes after since are delivered first. The channel is closed when ctx
// is cancelled or the stream ends.
func (c *Client) Subscribe(ctx context.Context, transcriptID string, since int64) (<-chan models.SnapshotEvent, error) {
	endpoint := fmt.Sprintf("/api/v1/transcripts/%s/stream", url.PathEscape(transcriptID))
	if since >= 0 {
		endpoint += "?since=" + strconv.FormatInt(since, 10)
	}

	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, apperrors.ExternalServiceError(serviceName, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}

	events := make(chan models.SnapshotEvent, 16)
	go func() {
		defer close(events)
		defer resp.Body.Close()

		err := readEvents(resp.Body, func(ev sseEvent) bool {
			if ev.Name != "snapshot" {
				return true
			}
			var snapshot models.SnapshotEvent
			if err := json.Unmarshal([]byte(ev.Data), &snapshot); err != nil {
				log.Printf("Client: skipping malformed snapshot on %s: %v", transcriptID, err)
				return true
			}
			select {
			case events <- snapshot:
				return true
			case <-ctx.Done():
				return false
			}
		})
		if err != nil && ctx.Err() == nil {
			log.Printf("Client: snapshot stream of %s ended: %v", transcriptID, err)
		}
	}()

	return events, nil
}
