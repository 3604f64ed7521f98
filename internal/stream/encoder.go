package stream

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/deepwander/deepwander/internal/graph"
)

// InterruptOption is one choice offered to the client at an interrupt.
type InterruptOption struct {
	Text  string `json:"text"`
	Value string `json:"value"`
}

// WireEvent is the JSON payload of one server-sent event. Empty content is
// omitted so clients can distinguish "no content" from an empty delta.
type WireEvent struct {
	ThreadID       string                `json:"thread_id"`
	Agent          string                `json:"agent,omitempty"`
	ID             string                `json:"id"`
	Role           string                `json:"role"`
	Content        string                `json:"content,omitempty"`
	FinishReason   string                `json:"finish_reason,omitempty"`
	ToolCalls      []graph.ToolCall      `json:"tool_calls,omitempty"`
	ToolCallChunks []graph.ToolCallChunk `json:"tool_call_chunks,omitempty"`
	ToolCallID     string                `json:"tool_call_id,omitempty"`
	Options        []InterruptOption     `json:"options,omitempty"`
}

// EncodeFrame writes one SSE frame carrying the event.
func EncodeFrame(w io.Writer, eventType Category, ev WireEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}
