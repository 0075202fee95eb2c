// Package panicrescuer turns a panicking handler into a 500 response.
package panicrescuer

import (
	"errors"
	"net/http"
	"runtime/debug"

	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/response"
)

// InternalErrorMessage is the envelope message of every 500 response.
const InternalErrorMessage = "Internal server error"

// Rescue recovers from panics in h, logs the panic with its stack trace
// and answers 500. http.ErrAbortHandler is re-raised for net/http.
func Rescue(h http.Handler) http.Handler {
	middleware := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			p := recover()
			if p == nil {
				return
			}
			if err, ok := p.(error); ok && errors.Is(err, http.ErrAbortHandler) {
				panic(p)
			}

			logger.Log.Errorw(
				"request panic",
				"uri", r.RequestURI,
				"method", r.Method,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			response.Error(w, http.StatusInternalServerError, InternalErrorMessage)
		}()

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(middleware)
}
