package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/dharsanguruparan/booktracker/internal/apperr"
)

type messageBody struct {
	Message string `json:"message"`
}

func message(msg string) messageBody {
	return messageBody{Message: msg}
}

type errorBody struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Error   string            `json:"error,omitempty"`
}

// handlerFunc is a handler that reports failures instead of writing them.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

// handle adapts h to net/http, routing any returned error through the
// translator.
func (s *Server) handle(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			s.writeError(w, r, err)
		}
	}
}

// writeError maps err to a status code and JSON body. Every error is logged;
// the detail only reaches the client for 500s in development.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var e *apperr.Error
	errors.As(err, &e)

	status := http.StatusInternalServerError
	body := errorBody{Message: "Something went wrong!"}
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
		body = errorBody{Message: e.Message, Errors: e.Fields}
	case apperr.KindBadRequest:
		status = http.StatusBadRequest
		body = errorBody{Message: e.Message}
	case apperr.KindUnauthorized:
		status = http.StatusUnauthorized
		body = errorBody{Message: orDefault(e.Message, "Unauthorized Access")}
	case apperr.KindForbidden:
		status = http.StatusForbidden
		body = errorBody{Message: orDefault(e.Message, "Forbidden")}
	case apperr.KindNotFound:
		status = http.StatusNotFound
		body = errorBody{Message: orDefault(e.Message, "Not found")}
	default:
		if s.opts.Development {
			body.Error = err.Error()
		}
	}

	var ev *zerolog.Event
	if status >= http.StatusInternalServerError {
		ev = s.log.Error()
	} else {
		ev = s.log.Warn()
	}
	ev.Err(err).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Msg("Request failed")

	respondJSON(w, status, body)
}

func orDefault(msg, def string) string {
	if msg == "" {
		return def
	}
	return msg
}

// decodeJSON reads a single JSON object from the request body into dst.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			return apperr.BadRequest("Request body too large")
		case errors.Is(err, io.EOF):
			return apperr.BadRequest("Request body is required")
		default:
			return apperr.BadRequest("Invalid JSON body")
		}
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// A failed write means the client went away; there is nobody to tell.
	_ = json.NewEncoder(w).Encode(payload)
}
