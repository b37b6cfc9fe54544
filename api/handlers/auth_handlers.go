package handlers

import (
	"crypto/subtle"
	"net"
	"net/http"
	"strings"

	"ugel-incidentes/config"
	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/rbac"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"
)

const (
	mensajeBloqueado       = "Demasiados intentos fallidos. Intente más tarde."
	mensajeCredenciales    = "Credenciales incorrectas."
	mensajeSesionRequerida = "Debes iniciar sesión para registrar un incidente."
)

type AuthHandler struct {
	cfg            *config.AppConfig
	users          store.UsersStore
	sessions       store.SessionStore
	sessionManager *auth.SessionManager
	limiter        *auth.LoginLimiter
	audits         store.AuditStore
	logger         *utils.Logger
}

func NewAuthHandler(cfg *config.AppConfig, users store.UsersStore, sessions store.SessionStore, sm *auth.SessionManager, limiter *auth.LoginLimiter, audits store.AuditStore, logger *utils.Logger) *AuthHandler {
	return &AuthHandler{cfg: cfg, users: users, sessions: sessions, sessionManager: sm, limiter: limiter, audits: audits, logger: logger}
}

// Estado reports the login page state: the pending flash message and
// whether the last attempt left the identity locked.
func (h *AuthHandler) Estado(w http.ResponseWriter, r *http.Request) {
	bloqueado := readBloqueado(w, r)
	mensaje := readFlash(w, r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"bloqueado": bloqueado,
		"mensaje":   mensaje,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	correo := strings.ToLower(strings.TrimSpace(r.FormValue("correo")))
	if correo == "" {
		correo = strings.ToLower(strings.TrimSpace(r.FormValue("usuario")))
	}
	clave := r.FormValue("clave")

	// Lockout wins over everything, including correct credentials.
	if h.limiter.IsLocked(correo) {
		h.audits.Log(r.Context(), correo, "auth.login_bloqueado", "")
		setFlash(w, mensajeBloqueado)
		setBloqueado(w)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}

	if h.esAdmin(correo, clave) {
		admin := &store.Usuario{
			ID:          0,
			Nombre:      "Administrador",
			Apellido:    "Principal",
			Correo:      h.cfg.Admin.Correo,
			Institucion: "UGEL",
		}
		h.limiter.Reset(correo)
		h.abrirSesion(w, r, admin, []string{rbac.RolAdmin}, "/dashboard")
		return
	}

	user, err := h.users.FindByCorreo(r.Context(), correo)
	if err == nil && user != nil && auth.VerificarClave(clave, h.cfg.Pepper, user.ClaveHash) {
		h.limiter.Reset(correo)
		h.abrirSesion(w, r, user, []string{rbac.RolInstitucion}, "/dashboard_colegios")
		return
	}
	if err != nil && h.logger != nil {
		h.logger.Errorf("login busca usuario %s: %v", correo, err)
	}

	fallos := h.limiter.RecordFailure(correo)
	if fallos >= h.cfg.Security.LoginMaxIntentos {
		h.audits.Log(r.Context(), correo, "auth.lockout", "")
		setFlash(w, mensajeBloqueado)
		setBloqueado(w)
	} else {
		h.audits.Log(r.Context(), correo, "auth.login_fallido", "")
		setFlash(w, mensajeCredenciales)
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (h *AuthHandler) esAdmin(correo, clave string) bool {
	if h.cfg.Admin.Correo == "" || h.cfg.Admin.Clave == "" {
		return false
	}
	correoOK := subtle.ConstantTimeCompare([]byte(correo), []byte(strings.ToLower(h.cfg.Admin.Correo))) == 1
	claveOK := subtle.ConstantTimeCompare([]byte(clave), []byte(h.cfg.Admin.Clave)) == 1
	return correoOK && claveOK
}

func (h *AuthHandler) abrirSesion(w http.ResponseWriter, r *http.Request, u *store.Usuario, roles []string, destino string) {
	var trusted []string
	if h.cfg != nil {
		trusted = h.cfg.Security.TrustedProxies
	}
	sess, err := h.sessionManager.Create(r.Context(), u, roles, utils.ClientIP(r, trusted), r.UserAgent())
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("crear sesión para %s: %v", u.Correo, err)
		}
		setFlash(w, "Error interno del servidor.")
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	h.audits.Log(r.Context(), u.Correo, "auth.login_ok", strings.Join(roles, ","))
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecureRequest(r, h.cfg),
		SameSite: http.SameSiteLaxMode,
		Expires:  sess.ExpiraEn,
	})
	http.Redirect(w, r, destino, http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	actor := ""
	if sr := sessionFrom(r); sr != nil {
		actor = sr.Correo
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil && cookie.Value != "" {
		_ = h.sessions.DeleteSession(r.Context(), cookie.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   isSecureRequest(r, h.cfg),
		SameSite: http.SameSiteLaxMode,
	})
	h.audits.Log(r.Context(), actor, "auth.logout", "")
	http.Redirect(w, r, "/", http.StatusFound)
}

func isSecureRequest(r *http.Request, cfg *config.AppConfig) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	if cfg == nil {
		return false
	}
	remoteIP, _, _ := net.SplitHostPort(r.RemoteAddr)
	if remoteIP == "" {
		remoteIP = strings.TrimSpace(r.RemoteAddr)
	}
	if !utils.IsTrustedProxy(strings.TrimSpace(remoteIP), cfg.Security.TrustedProxies) {
		return false
	}
	xffProto := strings.ToLower(strings.TrimSpace(strings.SplitN(r.Header.Get("X-Forwarded-Proto"), ",", 2)[0]))
	return xffProto == "https"
}
