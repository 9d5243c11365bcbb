package transcript

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseVTT(t *testing.T) {
	vttContent := `WEBVTT
Kind: captions

NOTE this block is ignored

intro
00:00:00.000 --> 00:00:03.000
<v Aroha>Kia ora koutou.</v>

00:03.500 --> 00:06.000 align:start
Today we're discussing
<i>tides</i>.

01:00:06.000 --> 01:00:10.250
Ka kite.`

	cues, err := Parse(vttContent, FormatVTT)
	if err != nil {
		t.Fatalf("Failed to parse VTT: %v", err)
	}
	if len(cues) != 3 {
		t.Fatalf("Expected 3 cues, got %d: %+v", len(cues), cues)
	}

	if cues[0].Text != "Kia ora koutou." {
		t.Errorf("First cue text mismatch: %q", cues[0].Text)
	}
	if cues[1].Start != 3.5 || cues[1].End != 6 {
		t.Errorf("Second cue timing mismatch: %v-%v", cues[1].Start, cues[1].End)
	}
	if cues[1].Text != "Today we're discussing tides." {
		t.Errorf("Multi-line cue not joined: %q", cues[1].Text)
	}
	if cues[2].Start != 3606 || cues[2].End != 3610.25 {
		t.Errorf("Hour timing mismatch: %v-%v", cues[2].Start, cues[2].End)
	}
}

func TestParseSRT(t *testing.T) {
	srtContent := "1\r\n00:00:00,000 --> 00:00:03,000\r\nWelcome.\r\n\r\n" +
		"2\r\n00:00:03,000 --> 00:00:06,500\r\nSecond line.\r\n"

	cues, err := Parse(srtContent, FormatSRT)
	if err != nil {
		t.Fatalf("Failed to parse SRT: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("Expected 2 cues, got %d", len(cues))
	}
	if cues[1].End != 6.5 || cues[1].Text != "Second line." {
		t.Errorf("Second cue mismatch: %+v", cues[1])
	}
}

func TestParse_EmptyOrBackwardsCue(t *testing.T) {
	tests := []struct {
		name    string
		content string
		format  Format
	}{
		{"vtt backwards", "WEBVTT\n\n00:00:05.000 --> 00:00:01.000\nbackwards", FormatVTT},
		{"vtt zero length", "WEBVTT\n\n00:00:05.000 --> 00:00:05.000\nflat", FormatVTT},
		{"srt zero length", "1\n00:00:01,000 --> 00:00:01,000\nflat", FormatSRT},
		{"json zero length", `[{"start": 2, "end": 2, "text": "flat"}]`, FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.content, tt.format)
			if err == nil || !strings.Contains(err.Error(), "not after start") {
				t.Errorf("Expected ordering error, got %v", err)
			}
		})
	}
}

func TestParseJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []Cue
	}{
		{
			name:    "array",
			content: `[{"startTime": 0, "endTime": 2.5, "body": "one"}, {"start": 3, "end": 4, "text": "two"}]`,
			want:    []Cue{{Start: 0, End: 2.5, Text: "one"}, {Start: 3, End: 4, Text: "two"}},
		},
		{
			name:    "segments object",
			content: `{"segments": [{"start_time": 1, "end_time": 2, "text": " spaced   out "}, {"start": 2, "end": 3, "text": ""}]}`,
			want:    []Cue{{Start: 1, End: 2, Text: "spaced out"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cues, err := Parse(tt.content, FormatJSON)
			if err != nil {
				t.Fatalf("Failed to parse JSON: %v", err)
			}
			if len(cues) != len(tt.want) {
				t.Fatalf("Expected %d cues, got %d", len(tt.want), len(cues))
			}
			for i := range cues {
				if cues[i] != tt.want[i] {
					t.Errorf("cue %d = %+v, want %+v", i, cues[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_Errors(t *testing.T) {
	if _, err := Parse("WEBVTT\n\n", FormatVTT); !errors.Is(err, ErrNoCues) {
		t.Errorf("Expected ErrNoCues, got %v", err)
	}
	if _, err := Parse("hello", Format("txt")); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Parse("{not json", FormatJSON); err == nil {
		t.Error("Expected error for malformed JSON")
	}
}

func TestToRegions(t *testing.T) {
	cues := []Cue{{Start: 0, End: 1, Text: "a"}, {Start: 1, End: 2, Text: "b"}}

	regions := ToRegions("t1", cues)
	if len(regions) != 2 {
		t.Fatalf("Expected 2 regions, got %d", len(regions))
	}
	if regions[1].TranscriptID != "t1" || regions[1].PlainText() != "b" || regions[1].Start != 1 {
		t.Errorf("Unexpected region: %+v", regions[1])
	}
	if regions[0].Text[0].IsMarked() {
		t.Error("Imported text should be unmarked")
	}
	if regions[0].ID == regions[1].ID {
		t.Error("Region ids should differ per cue")
	}
	if again := ToRegions("t1", cues); again[0].ID != regions[0].ID {
		t.Error("Region ids should be stable across imports")
	}
	if other := ToRegions("t2", cues); other[0].ID == regions[0].ID {
		t.Error("Region ids should differ per transcript")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name        string
		source      string
		contentType string
		content     string
		want        Format
	}{
		{"vtt extension", "https://example.com/ep.vtt?sig=1", "", "", FormatVTT},
		{"srt extension", "ep.SRT", "", "", FormatSRT},
		{"json extension", "ep.json", "", "", FormatJSON},
		{"vtt content type", "ep", "text/vtt", "", FormatVTT},
		{"subrip content type", "ep", "application/x-subrip", "", FormatSRT},
		{"json content type", "ep", "application/json", "", FormatJSON},
		{"vtt header", "ep", "", "WEBVTT\n\n", FormatVTT},
		{"arrow content", "ep", "", "1\n00:00:00,000 --> 00:00:01,000\nhi", FormatSRT},
		{"json content", "ep", "", `[{"text":"hi"}]`, FormatJSON},
		{"unknown", "ep", "text/plain", "just words", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := detectFormat(tt.source, tt.contentType, tt.content); got != tt.want {
				t.Errorf("detectFormat() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFetcher_Load(t *testing.T) {
	const vtt = "WEBVTT\n\n00:00:00.000 --> 00:00:01.000\nhello\n"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "TranscriptSync/1.0" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/vtt")
		_, _ = w.Write([]byte(vtt))
	}))
	defer server.Close()

	path := filepath.Join(t.TempDir(), "episode.srt")
	if err := os.WriteFile(path, []byte("1\n00:00:00,000 --> 00:00:02,000\nfrom disk\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	fetcher := NewFetcher(DefaultFetchOptions())
	ctx := context.Background()

	t.Run("url", func(t *testing.T) {
		doc, err := fetcher.Load(ctx, server.URL+"/episode")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		if doc.Format != FormatVTT || doc.ContentType != "text/vtt" {
			t.Errorf("Unexpected document: %+v", doc)
		}
		cues, err := doc.Cues()
		if err != nil || len(cues) != 1 || cues[0].Text != "hello" {
			t.Errorf("Unexpected cues %+v, err %v", cues, err)
		}
	})

	t.Run("file", func(t *testing.T) {
		doc, err := fetcher.Load(ctx, path)
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		cues, err := doc.Cues()
		if err != nil || len(cues) != 1 || cues[0].End != 2 {
			t.Errorf("Unexpected cues %+v, err %v", cues, err)
		}
	})

	t.Run("status", func(t *testing.T) {
		if _, err := fetcher.Load(ctx, server.URL+"/missing"); err == nil {
			t.Error("Expected error for 404")
		}
	})

	t.Run("too large", func(t *testing.T) {
		opts := DefaultFetchOptions()
		opts.MaxSize = 10
		if _, err := NewFetcher(opts).Load(ctx, server.URL+"/episode"); err == nil {
			t.Error("Expected size error")
		}
	})

	t.Run("empty", func(t *testing.T) {
		if _, err := fetcher.Load(ctx, ""); err == nil {
			t.Error("Expected error for empty source")
		}
	})
}
