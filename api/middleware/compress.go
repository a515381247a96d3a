package middleware

import (
	"bytes"
	"compress/gzip"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// Compress buffers each response and, when the client accepts it and the
// body is at least minBytes long, rewrites it with brotli or gzip.
func Compress(minBytes int) gin.HandlerFunc {
	return func(c *gin.Context) {
		enc := negotiateEncoding(c.GetHeader("Accept-Encoding"))
		if enc == "" || c.Request.Method == http.MethodHead {
			c.Next()
			return
		}

		orig := c.Writer
		// gin presets 404/405 on unmatched routes and writes its own body
		// afterwards only if that status survives.
		w := &bufferedWriter{ResponseWriter: orig, status: orig.Status()}
		c.Writer = w
		defer func() { c.Writer = orig }()

		c.Next()

		body := w.buf.Bytes()
		h := orig.Header()
		if len(body) < minBytes || h.Get("Content-Encoding") != "" || !bodyAllowed(w.status) {
			w.flush(body)
			return
		}

		var out bytes.Buffer
		if err := encode(&out, enc, body); err != nil {
			slog.Warn("compress: encoding failed, sending identity", "encoding", enc, "error", err)
			w.flush(body)
			return
		}

		h.Set("Content-Encoding", enc)
		h.Add("Vary", "Accept-Encoding")
		h.Set("Content-Length", strconv.Itoa(out.Len()))
		w.flush(out.Bytes())
	}
}

func encode(dst io.Writer, enc string, body []byte) error {
	var zw io.WriteCloser
	switch enc {
	case "br":
		zw = brotli.NewWriterLevel(dst, brotli.DefaultCompression)
	default:
		zw = gzip.NewWriter(dst)
	}
	if _, err := zw.Write(body); err != nil {
		return err
	}
	return zw.Close()
}

// negotiateEncoding picks br over gzip and ignores codings with q=0.
func negotiateEncoding(header string) string {
	var br, gz bool
	for _, part := range strings.Split(header, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		if q, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if v, err := strconv.ParseFloat(q, 64); err == nil && v == 0 {
				continue
			}
		}
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "br":
			br = true
		case "gzip":
			gz = true
		}
	}
	switch {
	case br:
		return "br"
	case gz:
		return "gzip"
	}
	return ""
}

func bodyAllowed(status int) bool {
	return status >= 200 && status != http.StatusNoContent && status != http.StatusNotModified
}

// bufferedWriter holds the status and body until the handler chain is done.
type bufferedWriter struct {
	gin.ResponseWriter
	buf    bytes.Buffer
	status int
}

func (w *bufferedWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *bufferedWriter) WriteHeaderNow() {}

func (w *bufferedWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *bufferedWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *bufferedWriter) Status() int {
	return w.status
}

func (w *bufferedWriter) Size() int {
	return w.buf.Len()
}

func (w *bufferedWriter) Written() bool {
	return w.buf.Len() > 0
}

func (w *bufferedWriter) flush(body []byte) {
	w.ResponseWriter.WriteHeader(w.status)
	if len(body) > 0 {
		_, _ = w.ResponseWriter.Write(body)
	}
}
