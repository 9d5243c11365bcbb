package transcript

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FetchOptions configures transcript fetching behavior
type FetchOptions struct {
	Timeout   time.Duration
	UserAgent string
	MaxSize   int64 // bytes
}

// DefaultFetchOptions returns default fetch options
func DefaultFetchOptions() FetchOptions {
	return FetchOptions{
		Timeout:   30 * time.Second,
		UserAgent: "TranscriptSync/1.0",
		MaxSize:   10 * 1024 * 1024,
	}
}

// Fetcher loads transcript files from disk or over HTTP
type Fetcher struct {
	client  *http.Client
	options FetchOptions
}

// NewFetcher creates a new transcript fetcher
func NewFetcher(options FetchOptions) *Fetcher {
	return &Fetcher{
		client: &http.Client{
			Timeout: options.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        5,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		options: options,
	}
}

// Document is a loaded transcript file
type Document struct {
	Source      string
	Content     string
	Format      Format
	ContentType string
	Size        int64
}

// Cues parses the document in its detected format
func (d *Document) Cues() ([]Cue, error) {
	return Parse(d.Content, d.Format)
}

// Load reads a transcript from an http(s) URL or a local path
func (f *Fetcher) Load(ctx context.Context, source string) (*Document, error) {
	if source == "" {
		return nil, fmt.Errorf("empty transcript source")
	}
	lower := strings.ToLower(source)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return f.Fetch(ctx, source)
	}
	return f.ReadFile(source)
}

// ReadFile reads a transcript from disk
func (f *Fetcher) ReadFile(path string) (*Document, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open transcript: %w", err)
	}
	defer file.Close()

	body, err := f.readLimited(file)
	if err != nil {
		return nil, err
	}
	content := string(body)
	return &Document{
		Source:  path,
		Content: content,
		Format:  detectFormat(filepath.Base(path), "", content),
		Size:    int64(len(body)),
	}, nil
}

// Fetch downloads a transcript from the given URL
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", f.options.UserAgent)
	req.Header.Set("Accept", "text/vtt,application/x-subrip,application/json,*/*")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch transcript: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d", resp.StatusCode)
	}
	if resp.ContentLength > f.options.MaxSize {
		return nil, fmt.Errorf("transcript too large: %d bytes (max: %d)", resp.ContentLength, f.options.MaxSize)
	}

	body, err := f.readLimited(resp.Body)
	if err != nil {
		return nil, err
	}
	content := string(body)
	contentType := resp.Header.Get("Content-Type")
	return &Document{
		Source:      url,
		Content:     content,
		Format:      detectFormat(url, contentType, content),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

// readLimited fails rather than truncating when the body exceeds MaxSize
func (f *Fetcher) readLimited(r io.Reader) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, f.options.MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}
	if int64(len(body)) > f.options.MaxSize {
		return nil, fmt.Errorf("transcript too large: more than %d bytes", f.options.MaxSize)
	}
	return body, nil
}

// detectFormat determines the transcript format from the name, content type
// and content, in that order. Returns "" when nothing matches.
func detectFormat(name, contentType, content string) Format {
	name = strings.ToLower(name)
	if i := strings.IndexAny(name, "?#"); i >= 0 {
		name = name[:i]
	}
	switch {
	case strings.HasSuffix(name, ".vtt"):
		return FormatVTT
	case strings.HasSuffix(name, ".srt"):
		return FormatSRT
	case strings.HasSuffix(name, ".json"):
		return FormatJSON
	}

	contentType = strings.ToLower(contentType)
	switch {
	case strings.Contains(contentType, "vtt"):
		return FormatVTT
	case strings.Contains(contentType, "subrip"), strings.Contains(contentType, "srt"):
		return FormatSRT
	case strings.Contains(contentType, "json"):
		return FormatJSON
	}

	head := strings.TrimSpace(content)
	if len(head) > 1000 {
		head = head[:1000]
	}
	switch {
	case strings.HasPrefix(head, "WEBVTT"):
		return FormatVTT
	case strings.Contains(head, "-->"):
		return FormatSRT
	case strings.HasPrefix(head, "{"), strings.HasPrefix(head, "["):
		return FormatJSON
	}
	return ""
}
