package transcript

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Format is the file format of a timed transcript
type Format string

const (
	FormatVTT  Format = "vtt"
	FormatSRT  Format = "srt"
	FormatJSON Format = "json"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported transcript format")
	ErrNoCues            = errors.New("transcript contains no timed cues")
)

// Cue is one timed line of a transcript. Times are in seconds.
type Cue struct {
	Start float64
	End   float64
	Text  string
}

// Timing lines, e.g. "00:00:01.000 --> 00:00:05.000". VTT allows the hours
// to be omitted; SRT uses a comma before the milliseconds.
var (
	timingRegex = regexp.MustCompile(`^((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})\s*-->\s*((?:\d+:)?\d{1,2}:\d{2}[.,]\d{1,3})`)
	tagRegex    = regexp.MustCompile(`</?[a-zA-Z][^>]*>`)
)

// Parse reads the cues of a transcript in the given format
func Parse(content string, format Format) ([]Cue, error) {
	var (
		cues []Cue
		err  error
	)
	switch format {
	case FormatVTT, FormatSRT:
		cues, err = parseBlocks(content)
	case FormatJSON:
		cues, err = parseJSON(content)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, err
	}
	if len(cues) == 0 {
		return nil, ErrNoCues
	}
	return cues, nil
}

// parseBlocks reads blank-line separated cue blocks, the layout shared by
// WebVTT and SRT. Headers, sequence numbers, cue identifiers and NOTE or
// STYLE blocks carry no timing line and are dropped.
func parseBlocks(content string) ([]Cue, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	var cues []Cue
	for n, block := range splitBlocks(content) {
		var (
			cue    *Cue
			blines []string
		)
		for _, line := range block {
			if cue == nil {
				m := timingRegex.FindStringSubmatch(line)
				if m == nil {
					continue
				}
				start, err := parseTimestamp(m[1])
				if err != nil {
					return nil, fmt.Errorf("cue %d: %w", n+1, err)
				}
				end, err := parseTimestamp(m[2])
				if err != nil {
					return nil, fmt.Errorf("cue %d: %w", n+1, err)
				}
				if end <= start {
					return nil, fmt.Errorf("cue %d: end %.3f not after start %.3f", n+1, end, start)
				}
				cue = &Cue{Start: start, End: end}
				continue
			}
			if text := cleanText(line); text != "" {
				blines = append(blines, text)
			}
		}
		if cue == nil || len(blines) == 0 {
			continue
		}
		cue.Text = strings.Join(blines, " ")
		cues = append(cues, *cue)
	}
	return cues, nil
}

func splitBlocks(content string) [][]string {
	var (
		blocks  [][]string
		current []string
	)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			if len(current) > 0 {
				blocks = append(blocks, current)
				current = nil
			}
			continue
		}
		current = append(current, line)
	}
	if len(current) > 0 {
		blocks = append(blocks, current)
	}
	return blocks
}

// jsonCue accepts the field names common podcast transcript JSON uses
type jsonCue struct {
	Start      *float64 `json:"start"`
	StartTime  *float64 `json:"startTime"`
	StartSnake *float64 `json:"start_time"`
	End        *float64 `json:"end"`
	EndTime    *float64 `json:"endTime"`
	EndSnake   *float64 `json:"end_time"`
	Text       string   `json:"text"`
	Body       string   `json:"body"`
}

func parseJSON(content string) ([]Cue, error) {
	var raw []jsonCue
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		var obj struct {
			Segments []jsonCue `json:"segments"`
		}
		if err := json.Unmarshal([]byte(content), &obj); err != nil {
			return nil, fmt.Errorf("failed to parse JSON transcript: %w", err)
		}
		raw = obj.Segments
	}

	cues := make([]Cue, 0, len(raw))
	for i, r := range raw {
		text := r.Text
		if text == "" {
			text = r.Body
		}
		text = cleanText(text)
		if text == "" {
			continue
		}
		start := firstSet(r.Start, r.StartTime, r.StartSnake)
		end := firstSet(r.End, r.EndTime, r.EndSnake)
		if end <= start {
			return nil, fmt.Errorf("segment %d: end %.3f not after start %.3f", i+1, end, start)
		}
		cues = append(cues, Cue{Start: start, End: end, Text: text})
	}
	return cues, nil
}

func firstSet(values ...*float64) float64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

// parseTimestamp converts [HH:]MM:SS.mmm (or SS,mmm) to seconds
func parseTimestamp(ts string) (float64, error) {
	ts = strings.Replace(ts, ",", ".", 1)
	parts := strings.Split(ts, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("invalid timestamp %q", ts)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	minutes, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
	}
	hours := 0
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q: %w", ts, err)
		}
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

// cleanText strips markup such as <v Speaker> and <i> and collapses spaces
func cleanText(text string) string {
	return strings.Join(strings.Fields(tagRegex.ReplaceAllString(text, "")), " ")
}
