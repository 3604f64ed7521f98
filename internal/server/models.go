package server

import (
	"github.com/deepwander/deepwander/internal/graph"
	"github.com/deepwander/deepwander/internal/store"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	UserID      int64  `json:"user_id"`
}

// ChatRequest drives one /api/chat/stream invocation. ThreadID "__default__"
// (or empty) asks the server to mint a fresh thread.
type ChatRequest struct {
	Messages                      []graph.Message `json:"messages"`
	ThreadID                      string          `json:"thread_id"`
	MaxPlanIterations             int             `json:"max_plan_iterations"`
	MaxStepNum                    int             `json:"max_step_num"`
	AutoAcceptedPlan              bool            `json:"auto_accepted_plan"`
	InterruptFeedback             string          `json:"interrupt_feedback"`
	EnableBackgroundInvestigation bool            `json:"enable_background_investigation"`
	MCPSettings                   map[string]any  `json:"mcp_settings"`
	UserID                        int64           `json:"user_id"`
}

type ReportDetailResponse struct {
	Report   store.Report        `json:"report"`
	Messages []store.ChatMessage `json:"messages"`
}

type UpdateReportRequest struct {
	Content string `json:"content"`
}

type TTSRequest struct {
	Text       string  `json:"text"`
	VoiceType  string  `json:"voice_type"`
	Encoding   string  `json:"encoding"`
	SpeedRatio float64 `json:"speed_ratio"`
}

type PodcastRequest struct {
	Content  string `json:"content"`
	UserID   int64  `json:"user_id"`
	ReportID int64  `json:"report_id"`
}

type PPTRequest struct {
	Content  string `json:"content"`
	UserID   int64  `json:"user_id"`
	ReportID int64  `json:"report_id"`
}

type ProseRequest struct {
	Prompt   string `json:"prompt"`
	Option   string `json:"option"`
	Command  string `json:"command"`
	UserID   int64  `json:"user_id"`
	ReportID int64  `json:"report_id"`
}

// MCPServerMetadataRequest describes an MCP server to inspect. Transport is
// "stdio" or "sse".
type MCPServerMetadataRequest struct {
	Transport      string            `json:"transport"`
	Command        string            `json:"command"`
	Args           []string          `json:"args"`
	Env            map[string]string `json:"env"`
	URL            string            `json:"url"`
	TimeoutSeconds int               `json:"timeout_seconds"`
}

type MCPTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema any    `json:"input_schema,omitempty"`
}

type MCPServerMetadataResponse struct {
	Transport string            `json:"transport"`
	Command   string            `json:"command,omitempty"`
	Args      []string          `json:"args,omitempty"`
	Env       map[string]string `json:"env,omitempty"`
	URL       string            `json:"url,omitempty"`
	Tools     []MCPTool         `json:"tools"`
}
