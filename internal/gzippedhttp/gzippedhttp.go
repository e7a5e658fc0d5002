// Package gzippedhttp provides middleware for transparent gzip handling:
// request bodies sent with Content-Encoding gzip are decompressed, and
// responses are compressed for clients that accept gzip.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

type gzipRequestBody struct {
	raw io.ReadCloser
	zr  *gzip.Reader
}

func newGzipRequestBody(body io.ReadCloser) (*gzipRequestBody, error) {
	zr, err := gzip.NewReader(body)
	if err != nil {
		return nil, err
	}

	return &gzipRequestBody{raw: body, zr: zr}, nil
}

func (b *gzipRequestBody) Read(p []byte) (int, error) {
	return b.zr.Read(p)
}

func (b *gzipRequestBody) Close() error {
	if err := b.raw.Close(); err != nil {
		return err
	}

	return b.zr.Close()
}

// gzipResponseWriter compresses successful responses only; error bodies go
// out uncompressed so their encoding always matches the headers.
type gzipResponseWriter struct {
	http.ResponseWriter
	zw          *gzip.Writer
	passthrough bool
	wroteHeader bool
}

func newGzipResponseWriter(w http.ResponseWriter) *gzipResponseWriter {
	zw := gzipWriterPool.Get().(*gzip.Writer)
	zw.Reset(w)

	return &gzipResponseWriter{ResponseWriter: w, zw: zw}
}

func (w *gzipResponseWriter) WriteHeader(statusCode int) {
	if !w.wroteHeader {
		w.wroteHeader = true
		if statusCode < 300 {
			w.Header().Set("Content-Encoding", "gzip")
		} else {
			w.passthrough = true
		}
	}
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *gzipResponseWriter) Write(p []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	if w.passthrough {
		return w.ResponseWriter.Write(p)
	}

	return w.zw.Write(p)
}

func (w *gzipResponseWriter) close() error {
	if w.passthrough {
		// nothing was compressed; drop the footer instead of corrupting
		// the response
		w.zw.Reset(io.Discard)
	}

	err := w.zw.Close()
	gzipWriterPool.Put(w.zw)

	return err
}

// UngzipRequest decompresses gzip-encoded request bodies before the request
// reaches the next handler.
func UngzipRequest(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if strings.Contains(request.Header.Get("Content-Encoding"), "gzip") {
			body, err := newGzipRequestBody(request.Body)
			if err != nil {
				response.WriteHeader(http.StatusInternalServerError)
				return
			}
			defer body.Close()
			request.Body = body
		}

		h.ServeHTTP(response, request)
	})
}

// GzipResponse compresses the response body when the client accepts gzip.
func GzipResponse(h http.Handler) http.Handler {
	return http.HandlerFunc(func(response http.ResponseWriter, request *http.Request) {
		if !strings.Contains(request.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(response, request)
			return
		}

		compressed := newGzipResponseWriter(response)
		defer compressed.close()

		h.ServeHTTP(compressed, request)
	})
}
