package ingest

import (
	"context"
	"encoding/json"
	"net/http"

	"sitewatch/internal/domain"
	"sitewatch/internal/obs"
)

// ReadingSink receives validated readings from ingest interfaces.
// Params: context and decoded reading payloads.
// Returns: alerts created by classification and processing error.
type ReadingSink interface {
	Push(ctx context.Context, reading domain.Reading) ([]domain.Alert, error)
	PushBatch(ctx context.Context, readings []domain.Reading) ([]domain.Alert, error)
}

// HTTPHandler decodes JSON readings and forwards them to sink.
// Params: sink receives validated readings, max body limits payload size.
// Returns: handlers for single and batch ingest endpoints.
type HTTPHandler struct {
	sink        ReadingSink
	maxBodySize int64
}

// NewHTTPHandler creates ingest HTTP handler.
// Params: sink and max request body size in bytes.
// Returns: configured handler.
func NewHTTPHandler(sink ReadingSink, maxBodySize int64) *HTTPHandler {
	return &HTTPHandler{sink: sink, maxBodySize: maxBodySize}
}

// HandleReading handles one incoming reading request.
// Params: HTTP request/response writer pair.
// Returns: 202 with created alerts, 400 on invalid payload, 503 on sink failure.
func (h *HTTPHandler) HandleReading(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()

	var reading domain.Reading
	if err := json.NewDecoder(request.Body).Decode(&reading); err != nil {
		obs.ReadingsRejected.WithLabelValues("http", "decode").Inc()
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}
	if err := reading.Validate(); err != nil {
		obs.ReadingsRejected.WithLabelValues("http", "validate").Inc()
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.sink.Push(request.Context(), reading)
	if err != nil {
		writeError(writer, http.StatusServiceUnavailable, err.Error())
		return
	}
	obs.ReadingsIngested.WithLabelValues("http").Inc()
	writeJSON(writer, http.StatusAccepted, map[string]any{"alerts": alerts})
}

// HandleBatch handles one batch of readings in a single request.
// Params: HTTP request/response writer pair; body is a JSON array of readings.
// Returns: 202 with all created alerts; the whole batch is rejected when any
// reading fails validation so partial application never happens silently.
func (h *HTTPHandler) HandleBatch(writer http.ResponseWriter, request *http.Request) {
	request.Body = http.MaxBytesReader(writer, request.Body, h.maxBodySize)
	defer request.Body.Close()

	readings, err := domain.DecodeReadingsReader(json.NewDecoder(request.Body))
	if err != nil {
		obs.ReadingsRejected.WithLabelValues("http", "decode").Inc()
		writeError(writer, http.StatusBadRequest, err.Error())
		return
	}

	alerts, err := h.sink.PushBatch(request.Context(), readings)
	if err != nil {
		writeError(writer, http.StatusServiceUnavailable, err.Error())
		return
	}
	obs.ReadingsIngested.WithLabelValues("http").Add(float64(len(readings)))
	writeJSON(writer, http.StatusAccepted, map[string]any{"alerts": alerts})
}

// writeJSON encodes one response payload with status code.
// Params: writer, status code, and payload.
// Returns: none.
func writeJSON(writer http.ResponseWriter, status int, payload any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(payload)
}

// writeError encodes one error payload with status code.
// Params: writer, status code, and error message.
// Returns: none.
func writeError(writer http.ResponseWriter, status int, message string) {
	writeJSON(writer, status, map[string]string{"error": message})
}
