package graph

// Event is the closed set of events an agent graph can emit while streaming.
// The adapter at the graph boundary produces exactly one of the variants
// below, so downstream consumers never probe loosely typed payloads.
type Event interface {
	isEvent()
}

// Interrupt pauses the workflow and surfaces a proposed plan for human
// review. NS carries the namespace path of the interrupting node; Value is
// the payload shown to the user.
type Interrupt struct {
	NS    []string
	Value string
}

// ToolResult carries the output of a completed tool invocation.
type ToolResult struct {
	Agent      string
	ID         string
	ToolCallID string
	Content    string
}

// Chunk is one incremental fragment of a model message: token content,
// completed tool calls, partial tool-call fragments, or a combination.
// A non-empty FinishReason marks the message as complete.
type Chunk struct {
	Agent          string
	ID             string
	Type           string // "ai" or "human"
	Content        string
	ToolCalls      []ToolCall
	ToolCallChunks []ToolCallChunk
	FinishReason   string
}

// ToolCall is a fully assembled tool invocation declared by the model.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

// ToolCallChunk is an incremental fragment of a tool invocation still being
// streamed.
type ToolCallChunk struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Args  string `json:"args,omitempty"`
}

func (Interrupt) isEvent()  {}
func (ToolResult) isEvent() {}
func (Chunk) isEvent()      {}
