package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// setupLogging points the standard logger at out. With jsonLogs every line
// becomes one JSON object. Debug level turns on gin's debug mode and SQL
// logging.
func setupLogging(out io.Writer, level string, jsonLogs bool) error {
	level = strings.ToLower(level)
	if !logLevels[level] {
		return fmt.Errorf("invalid log level %q", level)
	}

	if level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	if jsonLogs {
		log.SetFlags(0)
		log.SetOutput(&jsonLogWriter{out: out})
		return nil
	}
	log.SetFlags(log.LstdFlags)
	log.SetOutput(out)
	return nil
}

// jsonLogWriter wraps each log line in a JSON object
type jsonLogWriter struct {
	out io.Writer
}

func (w *jsonLogWriter) Write(p []byte) (int, error) {
	msg := strings.TrimRight(string(p), "\n")
	component := ""
	if head, _, ok := strings.Cut(msg, ": "); ok && !strings.Contains(head, " ") {
		component = head
	}

	line, err := json.Marshal(struct {
		Time      string `json:"time"`
		Component string `json:"component,omitempty"`
		Message   string `json:"msg"`
	}{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Component: component,
		Message:   msg,
	})
	if err != nil {
		return 0, err
	}
	if _, err := w.out.Write(append(line, '\n')); err != nil {
		return 0, err
	}
	return len(p), nil
}
