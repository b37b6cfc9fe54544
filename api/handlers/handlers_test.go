package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ugel-incidentes/config"
	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/uploads"
	"ugel-incidentes/core/utils"
)

type handlerEnv struct {
	cfg       *config.AppConfig
	db        *sql.DB
	users     store.UsersStore
	sessions  store.SessionStore
	incidents store.IncidentsStore
	metrics   store.MetricsStore
	audits    store.AuditStore
	sm        *auth.SessionManager
	limiter   *auth.LoginLimiter
	saver     *uploads.Saver
}

func setupHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBPath:     filepath.Join(dir, "handlers.db"),
		Pepper:     "pepper",
		SessionTTL: time.Hour,
		Admin: config.AdminConfig{
			Correo: "admin@gmail.com",
			Clave:  "priuge450",
		},
		Uploads: config.UploadsConfig{
			Dir:      filepath.Join(dir, "uploads"),
			MaxBytes: 1 << 20,
		},
		Security: config.SecurityConfig{
			LoginMaxIntentos: 3,
			LoginBloqueoTTL:  time.Minute,
		},
	}
	logger := utils.NewLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, cfg, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	sessions := store.NewSessionsStore(db)
	return &handlerEnv{
		cfg:       cfg,
		db:        db,
		users:     store.NewUsersStore(db),
		sessions:  sessions,
		incidents: store.NewIncidentsStore(db),
		metrics:   store.NewMetricsStore(db),
		audits:    store.NewAuditStore(db),
		sm:        auth.NewSessionManager(sessions, cfg, logger),
		limiter:   auth.NewLoginLimiter(cfg.Security.LoginMaxIntentos, cfg.Security.LoginBloqueoTTL),
		saver:     uploads.NewSaver(cfg.Uploads),
	}
}

func (env *handlerEnv) authHandler() *AuthHandler {
	return NewAuthHandler(env.cfg, env.users, env.sessions, env.sm, env.limiter, env.audits, nil)
}

func (env *handlerEnv) usersHandler() *UsersHandler {
	return NewUsersHandler(env.cfg, env.users, env.audits, nil)
}

func (env *handlerEnv) incidentsHandler() *IncidentsHandler {
	return NewIncidentsHandler(env.cfg, env.incidents, env.users, env.sessions, env.saver, env.audits, nil)
}

func (env *handlerEnv) metricsHandler() *MetricsHandler {
	return NewMetricsHandler(env.metrics, nil)
}

func (env *handlerEnv) registrarUsuario(t *testing.T, correo, institucion, clave string) *store.Usuario {
	t.Helper()
	u := &store.Usuario{
		Nombre:      "Ana",
		Apellido:    "Quispe",
		Correo:      correo,
		Institucion: institucion,
		ClaveHash:   auth.MustHashClave(clave, env.cfg.Pepper),
	}
	if _, err := env.users.Create(context.Background(), u); err != nil {
		t.Fatalf("crear usuario %s: %v", correo, err)
	}
	return u
}

func (env *handlerEnv) abrirSesion(t *testing.T, u *store.Usuario, roles []string) *store.SessionRecord {
	t.Helper()
	sr, err := env.sm.Create(context.Background(), u, roles, "127.0.0.1", "test-agent")
	if err != nil {
		t.Fatalf("crear sesión: %v", err)
	}
	return sr
}

func conSesion(req *http.Request, sr *store.SessionRecord) *http.Request {
	return req.WithContext(context.WithValue(req.Context(), auth.SessionContextKey, sr))
}

func formRequest(target string, vals url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(vals.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func cookieValue(t *testing.T, rr *httptest.ResponseRecorder, name string) string {
	t.Helper()
	for _, c := range rr.Result().Cookies() {
		if c.Name == name && c.MaxAge >= 0 {
			val, err := url.QueryUnescape(c.Value)
			if err != nil {
				t.Fatalf("unescape cookie %s: %v", name, err)
			}
			return val
		}
	}
	return ""
}
