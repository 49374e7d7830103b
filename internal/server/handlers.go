package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"meow/internal/api"
)

const fallbackInternalMessage = "Internal server error"

func (s *Server) writeErrorReq(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatusFromError(err)
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	code := errorCode(status, err)
	numericCode := errorNumericCode(status, err)
	message := publicMessage(status, err)

	fields := []any{"status", status, "code", code, "error_code", numericCode, "error", err}
	if r != nil {
		fields = append(fields, "method", r.Method, "path", r.URL.Path, "remote_addr", r.RemoteAddr)
	}

	switch {
	case status >= 500:
		s.log().Error("request error", fields...)
	case status >= 400:
		s.log().Debug("request rejected", fields...)
	}

	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("write json response", "status", status, "error", err)
	}
}

// apiError carries the HTTP mapping of a failure. public is the only text
// that reaches the client.
type apiError struct {
	status  int
	code    string
	errCode int
	public  string
	err     error
}

func (e apiError) Error() string {
	if e.err == nil {
		return e.public
	}
	return e.err.Error()
}

func (e apiError) Unwrap() error {
	return e.err
}

func makeAPIError(status int, code string, errCode int, public string, err error) error {
	if err == nil {
		err = errors.New(http.StatusText(status))
	}

	var existing apiError
	if errors.As(err, &existing) {
		if existing.status != 0 {
			return existing
		}
	}

	return apiError{status: status, code: code, errCode: errCode, public: public, err: err}
}

func badRequestCode(err error, public string, code int) error {
	return makeAPIError(http.StatusBadRequest, "invalid_argument", code, public, err)
}

func notFoundCode(err error, public string, code int) error {
	return makeAPIError(http.StatusNotFound, "not_found", code, public, err)
}

func storeFailure(err error, public string) error {
	return makeAPIError(http.StatusInternalServerError, "internal", ErrCodeStoreFailure, public, err)
}

func httpStatusFromError(err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) {
		return apiErr.status
	}
	return http.StatusInternalServerError
}

func errorCode(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.code != "" {
		return apiErr.code
	}
	switch status {
	case http.StatusBadRequest:
		return "invalid_argument"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusInternalServerError:
		return "internal"
	default:
		return ""
	}
}

func errorNumericCode(status int, err error) int {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.errCode > 0 {
		return apiErr.errCode
	}
	return defaultErrorCodeByStatus(status)
}

func publicMessage(status int, err error) string {
	var apiErr apiError
	if errors.As(err, &apiErr) && apiErr.public != "" {
		return apiErr.public
	}
	if status >= 500 {
		return fallbackInternalMessage
	}
	return http.StatusText(status)
}
