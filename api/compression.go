package api

import (
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/fulldump/box"
)

// Compression gzips responses for clients that accept it.
func Compression(next box.H) box.H {
	return func(ctx context.Context) {
		r := box.GetRequest(ctx)
		c := box.GetBoxContext(ctx)

		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next(ctx)
			return
		}

		c.Response.Header().Set("Content-Encoding", "gzip")
		c.Response.Header().Del("Content-Length")
		gz := gzip.NewWriter(c.Response)
		defer gz.Close()
		c.Response = gzipResponseWriter{Writer: gz, ResponseWriter: c.Response}

		next(ctx)
	}
}

type gzipResponseWriter struct {
	io.Writer
	http.ResponseWriter
}

func (w gzipResponseWriter) Write(b []byte) (int, error) {
	return w.Writer.Write(b)
}
