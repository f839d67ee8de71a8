package handlers

import (
	"net/http"

	"github.com/bioespinhanews/apiserver/internal/services"
)

const (
	sessionCookieName = "session_id"

	// clearedSessionValue replaces the token when the cookie is cleared.
	clearedSessionValue = "invalid"
)

func (rs *Responder) SetSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(services.SessionTTL.Seconds()),
		HttpOnly: true,
		Secure:   rs.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie expires the cookie immediately.
func (rs *Responder) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    clearedSessionValue,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   rs.secureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func sessionToken(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
