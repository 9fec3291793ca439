package web

import (
	"encoding/json"
	"net/http"

	"agency-ledger/internal/app"
	"agency-ledger/internal/core"

	"go.uber.org/zap"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindConflict:
		return http.StatusConflict
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindNoApplicableRule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// respond writes the operation result as an envelope. Unexpected errors are
// logged with the request id and reported without detail.
func (h *Handler) respond(w http.ResponseWriter, r *http.Request, data any, err error) {
	env := app.Wrap(data, err)
	status := http.StatusOK
	if !env.Success {
		status = statusFor(env.Error.Kind)
		if env.Error.Kind == app.KindInternal {
			h.log.Error("request failed",
				zap.String("request_id", requestIDFromContext(r.Context())),
				zap.String("path", r.URL.Path),
				zap.Error(err))
		}
	}
	writeEnvelope(w, status, env)
}

func writeEnvelope(w http.ResponseWriter, status int, env app.Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// Adapter-level kinds for failures the application layer never sees.
const (
	kindUnauthorized    core.ErrorKind = "unauthorized"
	kindPayloadTooLarge core.ErrorKind = "payload_too_large"
)

// kindForStatus classifies an adapter-level failure by its HTTP status.
func kindForStatus(status int) core.ErrorKind {
	switch status {
	case http.StatusUnauthorized:
		return kindUnauthorized
	case http.StatusRequestEntityTooLarge:
		return kindPayloadTooLarge
	case http.StatusNotFound:
		return core.KindNotFound
	case http.StatusInternalServerError:
		return app.KindInternal
	default:
		return core.KindValidation
	}
}

// writeError writes a failure envelope for adapter-level problems
// (bad JSON, missing auth) that never reached the application layer.
func writeError(w http.ResponseWriter, r *http.Request, message, code string, status int) {
	w.Header().Set("X-Request-ID", requestIDFromContext(r.Context()))
	writeEnvelope(w, status, app.Envelope{Error: &app.ErrorBody{Kind: kindForStatus(status), Code: code, Message: message}})
}
