package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/ytsearch/models"
)

// Searcher runs one search. *search.Pipeline is the production implementation.
type Searcher interface {
	Search(ctx context.Context, term string) (string, error)
}

// Term returns the decoded search term from a /search/*term route. The
// catch-all parameter keeps its leading slash, so /search/ yields "".
//
// The router matches on the raw path without unescaping parameters, so a
// request that carried a raw path (%2F, %2B and friends) is decoded here with
// path semantics: "+" stays "+".
func Term(c *gin.Context) string {
	term := c.Param("term")
	if c.Request.URL.RawPath != "" {
		if decoded, err := url.PathUnescape(term); err == nil {
			term = decoded
		}
	}
	return strings.TrimPrefix(term, "/")
}

// Search returns a handler for GET /search/*term.
//
// Success is 200 text/plain with the identifier as the body. Failures carry
// no detail beyond the status text; the code and message go to the log.
func Search(s Searcher) gin.HandlerFunc {
	return func(c *gin.Context) {
		term := Term(c)

		id, err := s.Search(c.Request.Context(), term)
		if err != nil {
			status := statusFor(err)
			code := models.CodeOf(err)
			slog.Error("search request failed",
				"term", term,
				"code", code,
				"status", status,
				"error", err,
			)
			_ = c.Error(err)
			c.String(status, http.StatusText(status))
			return
		}

		c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(id))
	}
}

// statusFor maps an error code to the HTTP status the caller sees.
func statusFor(err error) int {
	switch models.CodeOf(err) {
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case models.ErrCodeOverloaded:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
