package handlers

import (
	"net/http"
	"taskManager/internal/logger"
	"taskManager/internal/service"

	"go.uber.org/zap"
)

// ErrorMode selects how failures map to HTTP status codes.
type ErrorMode string

const (
	// ErrorModeLegacy answers every failure of an endpoint with that endpoint's
	// fixed status (create/update 400, get/delete 404, list/stats 500).
	ErrorModeLegacy ErrorMode = "legacy"
	// ErrorModeStrict derives the status from the error kind.
	ErrorModeStrict ErrorMode = "strict"
)

func (m ErrorMode) Valid() bool {
	return m == ErrorModeLegacy || m == ErrorModeStrict
}

func (s *TaskHandler) handleError(w http.ResponseWriter, r *http.Request, endpointStatus int, op string, err error) {
	status := endpointStatus
	message := err.Error()

	businessErr, isBusiness := service.AsBusinessError(err)
	if isBusiness {
		message = businessErr.Message
	}
	if s.mode == ErrorModeStrict {
		status = http.StatusInternalServerError
		if isBusiness {
			status = mapBusinessErrorToHTTP(businessErr.Code)
		}
	}

	fields := []zap.Field{
		zap.String("operation", op),
		zap.Int("http_status", status),
		zap.String("client_ip", r.RemoteAddr),
	}
	if isBusiness {
		fields = append(fields, zap.String("error_code", businessErr.Code))
	}
	if status >= http.StatusInternalServerError {
		logger.Error("HTTP: service error", err, fields...)
	} else {
		logger.Warn("HTTP: request rejected", append(fields, zap.Error(err))...)
	}

	responseWithError(w, status, message)
}

func mapBusinessErrorToHTTP(code string) int {
	switch code {
	case service.CodeNotFound:
		return http.StatusNotFound
	case service.CodeValidation:
		return http.StatusBadRequest
	case service.CodeStore:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
