package server

import (
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/deepwander/deepwander/config"
	"github.com/deepwander/deepwander/internal/stream"
)

// defaultThreadID asks the server to mint a fresh thread.
const defaultThreadID = "__default__"

var chatTracer = otel.Tracer("deepwander/internal/server/chat")

type ChatHandler struct {
	Driver   *stream.Driver
	Sink     stream.Sink
	Workflow config.WorkflowConfig
	Logger   *log.Logger
}

func NewChatHandler(driver *stream.Driver, sink stream.Sink, workflow config.WorkflowConfig, logger *log.Logger) *ChatHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[CHAT] ", log.LstdFlags)
	}
	return &ChatHandler{Driver: driver, Sink: sink, Workflow: workflow, Logger: logger}
}

func (h *ChatHandler) Register(g *echo.Group) {
	g.POST("/chat/stream", h.chatStream)
}

// chatStream runs the agent workflow for a conversation and streams its
// events as SSE frames.
func (h *ChatHandler) chatStream(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.UserID == 0 {
		return echo.NewHTTPError(http.StatusUnauthorized, "user authentication required")
	}

	threadID := req.ThreadID
	if threadID == "" || threadID == defaultThreadID {
		threadID = uuid.NewString()
	}

	// Configured limits apply when the request leaves them unset.
	planIterations := req.MaxPlanIterations
	if planIterations == 0 {
		planIterations = h.Workflow.MaxPlanIterations
	}
	stepNum := req.MaxStepNum
	if stepNum == 0 {
		stepNum = h.Workflow.MaxStepNum
	}

	httpReq := c.Request()
	ctx, span := chatTracer.Start(httpReq.Context(), "ChatHandler.chatStream")
	defer span.End()
	span.SetAttributes(
		attribute.String("thread_id", threadID),
		attribute.Int64("user_id", req.UserID),
	)
	c.SetRequest(httpReq.WithContext(ctx))

	// The latest user message goes in before any workflow output.
	if len(req.Messages) > 0 {
		last := req.Messages[len(req.Messages)-1]
		h.Sink.Persist(ctx, req.UserID, threadID, last.Role, last.Content)
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		span.SetStatus(codes.Error, "streaming unsupported")
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	err := h.Driver.Run(ctx, resp, flusher.Flush, stream.Request{
		ThreadID:                      threadID,
		UserID:                        req.UserID,
		Messages:                      req.Messages,
		MaxPlanIterations:             planIterations,
		MaxStepNum:                    stepNum,
		AutoAcceptedPlan:              req.AutoAcceptedPlan,
		EnableBackgroundInvestigation: req.EnableBackgroundInvestigation,
		InterruptFeedback:             req.InterruptFeedback,
		MCPSettings:                   req.MCPSettings,
	})
	if err != nil {
		// Headers are already out; the stream just ends here.
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		h.Logger.Printf("chat stream for thread %s ended early: %v", threadID, err)
	}
	return nil
}
