package client

import (
	"bufio"
	"io"
	"strings"
)

// sseEvent is one server-sent event
type sseEvent struct {
	Name string
	Data string
}

// readEvents decodes a server-sent event stream, calling fn for each event
// until fn returns false or the stream ends. Multi-line data is joined with
// newlines; comment lines and unknown fields are ignored.
func readEvents(r io.Reader, fn func(sseEvent) bool) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var (
		name string
		data []string
	)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 || name != "" {
				ev := sseEvent{Name: name, Data: strings.Join(data, "\n")}
				if ev.Name == "" {
					ev.Name = "message"
				}
				if !fn(ev) {
					return nil
				}
			}
			name, data = "", nil
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "event":
			name = value
		case "data":
			data = append(data, value)
		}
	}
	return scanner.Err()
}
