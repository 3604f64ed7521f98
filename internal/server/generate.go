package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/deepwander/deepwander/internal/media"
	"github.com/deepwander/deepwander/internal/store"
)

// GenerateHandler exposes the media generation workflows that run over
// report content.
type GenerateHandler struct {
	Store   *store.Store
	Podcast *media.PodcastGenerator
	PPT     *media.PPTGenerator
	Prose   *media.ProseWriter
	Logger  *log.Logger
}

func NewGenerateHandler(st *store.Store, podcast *media.PodcastGenerator, ppt *media.PPTGenerator, prose *media.ProseWriter, logger *log.Logger) *GenerateHandler {
	if logger == nil {
		logger = log.New(log.Writer(), "[GEN] ", log.LstdFlags)
	}
	return &GenerateHandler{Store: st, Podcast: podcast, PPT: ppt, Prose: prose, Logger: logger}
}

func (h *GenerateHandler) Register(g *echo.Group) {
	g.POST("/podcast/generate", h.podcast)
	g.POST("/ppt/generate", h.ppt)
	g.POST("/prose/generate", h.prose)
}

func (h *GenerateHandler) podcast(c echo.Context) error {
	var req PodcastRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	ctx := c.Request().Context()
	audio, err := h.Podcast.Generate(ctx, req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.saveReport(c, req.UserID, req.ReportID, req.Content)
	return c.Blob(http.StatusOK, "audio/mp3", audio)
}

func (h *GenerateHandler) ppt(c echo.Context) error {
	var req PPTRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Content == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "content is required")
	}
	deck, err := h.PPT.Generate(c.Request().Context(), req.Content)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	h.saveReport(c, req.UserID, req.ReportID, req.Content)
	return c.Blob(http.StatusOK, "text/markdown", deck)
}

// prose streams rewritten text token by token.
func (h *GenerateHandler) prose(c echo.Context) error {
	var req ProseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Prompt == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "prompt is required")
	}
	if !media.ValidOption(req.Option) {
		return echo.NewHTTPError(http.StatusBadRequest, "unknown prose option")
	}

	resp := c.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set(echo.HeaderCacheControl, "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)
	flusher, ok := resp.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "streaming unsupported")
	}

	var out strings.Builder
	err := h.Prose.Stream(c.Request().Context(), req.Prompt, req.Option, req.Command, func(delta string) error {
		if _, err := fmt.Fprintf(resp, "data: %s\n\n", delta); err != nil {
			return err
		}
		flusher.Flush()
		out.WriteString(delta)
		return nil
	})
	if err != nil {
		h.Logger.Printf("prose stream ended early: %v", err)
		return nil
	}
	h.saveReport(c, req.UserID, req.ReportID, out.String())
	return nil
}

// saveReport refreshes the source report after a generation run. Best effort,
// same as chat persistence.
func (h *GenerateHandler) saveReport(c echo.Context, userID, reportID int64, content string) {
	if userID == 0 || reportID == 0 {
		return
	}
	if err := h.Store.UpdateReportContent(c.Request().Context(), reportID, userID, content); err != nil {
		h.Logger.Printf("update report %d: %v", reportID, err)
	}
}
