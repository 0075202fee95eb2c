// Package response writes the {message, data} envelope shared by every endpoint.
package response

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/contactbook/internal/logger"
	"github.com/patric-chuzhbe/contactbook/internal/models"
)

// JSON writes an envelope with the given status. A nil data is sent as an empty object.
func JSON(w http.ResponseWriter, statusCode int, message string, data any) {
	if data == nil {
		data = struct{}{}
	}

	body, err := json.Marshal(models.Envelope{Message: message, Data: data})
	if err != nil {
		logger.Log.Errorln("Error calling the `json.Marshal()`: ", zap.Error(err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if _, err := w.Write(body); err != nil {
		logger.Log.Debugln("Error calling the `w.Write()`: ", zap.Error(err))
	}
}

// Error writes an envelope with an empty data object.
func Error(w http.ResponseWriter, statusCode int, message string) {
	JSON(w, statusCode, message, nil)
}
