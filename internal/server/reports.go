package server

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/deepwander/deepwander/internal/runtime"
	"github.com/deepwander/deepwander/internal/store"
)

type ReportsHandler struct {
	Store *store.Store
}

func (h *ReportsHandler) Register(g *echo.Group, secret []byte) {
	g.Use(runtime.EchoAuthMiddleware(secret))
	g.GET("", h.list)
	g.GET("/thread/:thread_id", h.byThread)
	g.PUT("/:report_id", h.update)
	g.DELETE("/:report_id", h.delete)
}

func (h *ReportsHandler) list(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	reports, err := h.Store.ListReports(c.Request().Context(), userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if reports == nil {
		reports = []store.Report{}
	}
	return c.JSON(http.StatusOK, reports)
}

// byThread returns a report together with the conversation that produced it.
func (h *ReportsHandler) byThread(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	threadID := c.Param("thread_id")
	report, err := h.Store.GetReportByThread(ctx, threadID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	messages, err := h.Store.ListChatsByThread(ctx, threadID, userID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if messages == nil {
		messages = []store.ChatMessage{}
	}
	return c.JSON(http.StatusOK, ReportDetailResponse{Report: report, Messages: messages})
}

func (h *ReportsHandler) update(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	reportID, err := strconv.ParseInt(c.Param("report_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	var req UpdateReportRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.Store.UpdateReportContent(c.Request().Context(), reportID, userID, req.Content); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "updated"})
}

// delete removes a report and its thread's chat history.
func (h *ReportsHandler) delete(c echo.Context) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	reportID, err := strconv.ParseInt(c.Param("report_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid report id")
	}
	if err := h.Store.DeleteReport(c.Request().Context(), reportID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "report not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deleted"})
}
