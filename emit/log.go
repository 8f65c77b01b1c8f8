// Package emit provides event emission and observability for graph execution.
package emit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// LogEmitter writes events to an io.Writer, either as text
// ([msg] runID=... step=... nodeID=...) or as JSONL.
type LogEmitter struct {
	writer   io.Writer
	jsonMode bool
}

// NewLogEmitter writes to os.Stdout if writer is nil.
func NewLogEmitter(writer io.Writer, jsonMode bool) *LogEmitter {
	if writer == nil {
		writer = os.Stdout
	}
	return &LogEmitter{
		writer:   writer,
		jsonMode: jsonMode,
	}
}

func (l *LogEmitter) Emit(event Event) {
	if l.jsonMode {
		l.emitJSON(event)
	} else {
		l.emitText(event)
	}
}

func (l *LogEmitter) emitJSON(event Event) {
	data, err := json.Marshal(struct {
		RunID  string                 `json:"runID"`
		Step   int                    `json:"step"`
		NodeID string                 `json:"nodeID"`
		Msg    string                 `json:"msg"`
		Meta   map[string]interface{} `json:"meta"`
	}{
		RunID:  event.RunID,
		Step:   event.Step,
		NodeID: event.NodeID,
		Msg:    event.Msg,
		Meta:   event.Meta,
	})
	if err != nil {
		_, _ = fmt.Fprintf(l.writer, "{\"error\":\"failed to marshal event: %v\"}\n", err)
		return
	}
	_, _ = fmt.Fprintf(l.writer, "%s\n", data)
}

func (l *LogEmitter) emitText(event Event) {
	_, _ = fmt.Fprintf(l.writer, "[%s] runID=%s step=%d nodeID=%s",
		event.Msg, event.RunID, event.Step, event.NodeID)

	if len(event.Meta) > 0 {
		metaJSON, err := json.Marshal(event.Meta)
		if err == nil {
			_, _ = fmt.Fprintf(l.writer, " meta=%s", metaJSON)
		} else {
			_, _ = fmt.Fprintf(l.writer, " meta=%v", event.Meta)
		}
	}

	_, _ = fmt.Fprint(l.writer, "\n")
}

func (l *LogEmitter) EmitBatch(_ context.Context, events []Event) error {
	for _, event := range events {
		l.Emit(event)
	}
	return nil
}

// Flush is a no-op: LogEmitter writes synchronously to the writer. Wrap
// the writer in a bufio.Writer and flush that directly if needed.
func (l *LogEmitter) Flush(_ context.Context) error {
	return nil
}
