// Package gzippedhttp provides middleware that accepts gzip-compressed request
// bodies and compresses successful responses for clients that ask for it.
package gzippedhttp

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/response"
)

// InvalidBodyMessage is sent when a request claims gzip encoding but is not a gzip stream.
const InvalidBodyMessage = "Invalid request body"

// CompressedReader wraps an io.ReadCloser and decompresses its input using gzip.
type CompressedReader struct {
	r  io.ReadCloser
	zr *gzip.Reader
}

// NewCompressedReader returns a new CompressedReader that reads gzip-compressed data
// from the provided io.ReadCloser.
func NewCompressedReader(requestBody io.ReadCloser) (*CompressedReader, error) {
	zippedRequestBody, err := gzip.NewReader(requestBody)
	if err != nil {
		return nil, err
	}

	return &CompressedReader{
		r:  requestBody,
		zr: zippedRequestBody,
	}, nil
}

func (c *CompressedReader) Read(p []byte) (n int, err error) {
	return c.zr.Read(p)
}

// Close closes both the gzip reader and the underlying io.ReadCloser.
func (c *CompressedReader) Close() error {
	if err := c.zr.Close(); err != nil {
		return err
	}
	return c.r.Close()
}

// CompressedHTTPResponseWriter compresses the body of 2xx responses.
// The decision is taken on the first WriteHeader or Write call; other
// statuses are passed through unchanged.
type CompressedHTTPResponseWriter struct {
	w           http.ResponseWriter
	zw          *gzip.Writer
	wroteHeader bool
}

func NewCompressedHTTPResponseWriter(w http.ResponseWriter) *CompressedHTTPResponseWriter {
	return &CompressedHTTPResponseWriter{w: w}
}

func (c *CompressedHTTPResponseWriter) Header() http.Header {
	return c.w.Header()
}

func (c *CompressedHTTPResponseWriter) WriteHeader(statusCode int) {
	if c.wroteHeader {
		return
	}
	c.wroteHeader = true

	if statusCode < http.StatusMultipleChoices &&
		statusCode != http.StatusNoContent &&
		c.w.Header().Get("Content-Encoding") == "" {
		c.w.Header().Set("Content-Encoding", "gzip")
		c.w.Header().Del("Content-Length")
		c.w.Header().Add("Vary", "Accept-Encoding")

		c.zw = gzipWriterPool.Get().(*gzip.Writer)
		c.zw.Reset(c.w)
	}

	c.w.WriteHeader(statusCode)
}

func (c *CompressedHTTPResponseWriter) Write(p []byte) (int, error) {
	if !c.wroteHeader {
		c.WriteHeader(http.StatusOK)
	}
	if c.zw == nil {
		return c.w.Write(p)
	}

	return c.zw.Write(p)
}

// Close flushes the gzip stream, if one was started, and returns the writer to the pool.
func (c *CompressedHTTPResponseWriter) Close() error {
	if c.zw == nil {
		return nil
	}

	err := c.zw.Close()
	gzipWriterPool.Put(c.zw)
	c.zw = nil

	return err
}

var gzipWriterPool = sync.Pool{
	New: func() interface{} {
		w, _ := gzip.NewWriterLevel(nil, gzip.BestSpeed)
		return w
	},
}

// GzipResponse is the middleware that compresses the response when the
// request's "Accept-Encoding" header lists gzip.
func GzipResponse(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			h.ServeHTTP(w, r)
			return
		}

		compressed := NewCompressedHTTPResponseWriter(w)
		defer func() {
			if err := compressed.Close(); err != nil {
				logger.Log.Debugln("Error calling the `compressed.Close()`: ", zap.Error(err))
			}
		}()

		h.ServeHTTP(compressed, r)
	}

	return http.HandlerFunc(middleware)
}

// UngzipRequest replaces a gzip-encoded request body with a decompressing reader.
func UngzipRequest(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Content-Encoding"), "gzip") {
			h.ServeHTTP(w, r)
			return
		}

		body, err := NewCompressedReader(r.Body)
		if err != nil {
			logger.Log.Debugln("Error calling the `NewCompressedReader()`: ", zap.Error(err))
			response.Error(w, http.StatusBadRequest, InvalidBodyMessage)
			return
		}
		defer body.Close()

		r.Body = body
		r.Header.Del("Content-Encoding")
		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(middleware)
}
