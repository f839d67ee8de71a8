package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Responder writes JSON bodies, domain errors and the session cookie.
type Responder struct {
	logger        *logrus.Logger
	secureCookies bool
}

// NewResponder builds a Responder. secureCookies marks the session cookie
// Secure and should be set in production.
func NewResponder(logger *logrus.Logger, secureCookies bool) *Responder {
	return &Responder{logger: logger, secureCookies: secureCookies}
}

func (rs *Responder) JSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// Error maps err to its status and public body. Causes of service and
// internal errors are logged, never sent. Unauthorized responses always
// clear the session cookie.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		appErr = apperr.Internal(err)
	}

	entry := rs.logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	switch appErr.Kind {
	case apperr.KindValidation, apperr.KindNotFound, apperr.KindMethodNotAllowed:
	case apperr.KindForbidden:
		entry.WithField("feature", appErr.Feature).Debug("missing feature")
	case apperr.KindUnauthorized:
		rs.ClearSessionCookie(w)
	case apperr.KindService:
		entry.WithError(appErr.Cause).Warn(appErr.Message)
	case apperr.KindInternal:
		entry.WithError(err).Error("internal error")
	default:
		entry.WithError(err).Errorf("unhandled error kind %d", appErr.Kind)
		appErr = apperr.Internal(err)
	}

	rs.JSON(w, appErr.Kind.StatusCode(), apperr.ToPublic(appErr))
}

// MethodNotAllowed answers requests to a known route with the wrong method.
func (rs *Responder) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, apperr.MethodNotAllowed())
}

func (rs *Responder) NotFound(w http.ResponseWriter, r *http.Request) {
	rs.Error(w, r, apperr.NotFound("Route not found.", "Verify the requested path."))
}

var errInvalidBody = apperr.Validation("Request body is invalid.", "Send a valid JSON body and try again.")

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errInvalidBody
	}
	return nil
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}
