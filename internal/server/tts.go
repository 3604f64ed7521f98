package server

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/deepwander/deepwander/internal/tts"
)

type TTSHandler struct {
	Client *tts.Client
}

func (h *TTSHandler) Register(g *echo.Group) {
	g.POST("/tts", h.synthesize)
}

// synthesize converts text to speech. Credentials are checked before any
// request leaves the server.
func (h *TTSHandler) synthesize(c echo.Context) error {
	if h.Client == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "tts app id and access token are not configured")
	}
	var req TTSRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Text == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	audio, err := h.Client.Synthesize(c.Request().Context(), req.Text, tts.Params{
		VoiceType:  req.VoiceType,
		Encoding:   req.Encoding,
		SpeedRatio: req.SpeedRatio,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	encoding := req.Encoding
	if encoding == "" {
		encoding = "mp3"
	}
	return c.Blob(http.StatusOK, "audio/"+encoding, audio)
}
