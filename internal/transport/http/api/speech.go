package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// SpeechRequest is the body of POST /speech.
type SpeechRequest struct {
	Text string `json:"text"`
}

// Speech accepts text for server-side synthesis. Playback happens in the
// browser, so the audio body is empty.
// POST /speech
func (h *Handler) Speech(c echo.Context) error {
	var req SpeechRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Text) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Text is required"})
	}
	return c.Blob(http.StatusOK, "audio/mpeg", []byte{})
}
