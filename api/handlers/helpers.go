package handlers

import (
	"encoding/json"
	"net/http"
	"net/url"

	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/store"
)

const (
	SessionCookieName   = "ugel_session"
	FlashCookieName     = "ugel_flash"
	bloqueadoCookieName = "ugel_bloqueado"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func sessionFrom(r *http.Request) *store.SessionRecord {
	return auth.SessionFromContext(r.Context())
}

// setFlash stores a one-shot message; readFlash consumes it. The
// cookie replaces Flask-style server-side flashes now that templates
// are rendered client side.
func setFlash(w http.ResponseWriter, mensaje string) {
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    url.QueryEscape(mensaje),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
}

func readFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(FlashCookieName)
	if err != nil || c.Value == "" {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     FlashCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	mensaje, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return mensaje
}

func setBloqueado(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     bloqueadoCookieName,
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   300,
	})
}

func readBloqueado(w http.ResponseWriter, r *http.Request) bool {
	c, err := r.Cookie(bloqueadoCookieName)
	if err != nil || c.Value == "" {
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     bloqueadoCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
	return true
}
