package api

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xiaot623/voicewidget/internal/extract"
)

// maxPageBytes bounds the HTML accepted by ExtractContext.
const maxPageBytes = 2 << 20

// ExtractContext builds a page context from raw HTML in the body. The page
// URL comes from the url query parameter.
// POST /context/extract?url=
func (h *Handler) ExtractContext(c echo.Context) error {
	body := io.LimitReader(c.Request().Body, maxPageBytes)
	pc := extract.FromHTML(body, c.QueryParam("url"))
	return c.JSON(http.StatusOK, pc)
}
