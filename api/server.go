package api

import (
	"net/http"
	"strings"

	"ugel-incidentes/config"
	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/rbac"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/uploads"
	"ugel-incidentes/core/utils"

	"github.com/go-chi/chi/v5"
)

type ServerDeps struct {
	Users          store.UsersStore
	Sessions       store.SessionStore
	Incidents      store.IncidentsStore
	Metrics        store.MetricsStore
	Audits         store.AuditStore
	SessionManager *auth.SessionManager
	LoginLimiter   *auth.LoginLimiter
	Policy         *rbac.Policy
	Saver          *uploads.Saver
}

type Server struct {
	cfg             *config.AppConfig
	logger          *utils.Logger
	users           store.UsersStore
	sessions        store.SessionStore
	incidents       store.IncidentsStore
	metrics         store.MetricsStore
	audits          store.AuditStore
	sessionManager  *auth.SessionManager
	loginLimiter    *auth.LoginLimiter
	policy          *rbac.Policy
	saver           *uploads.Saver
	activityTracker *sessionActivity
}

func NewServer(cfg *config.AppConfig, deps ServerDeps, logger *utils.Logger) *Server {
	return &Server{
		cfg:             cfg,
		logger:          logger,
		users:           deps.Users,
		sessions:        deps.Sessions,
		incidents:       deps.Incidents,
		metrics:         deps.Metrics,
		audits:          deps.Audits,
		sessionManager:  deps.SessionManager,
		loginLimiter:    deps.LoginLimiter,
		policy:          deps.Policy,
		saver:           deps.Saver,
		activityTracker: newSessionActivity(),
	}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware)
	r.Use(s.securityHeadersMiddleware)
	r.Use(s.loggingMiddleware)

	h := s.newRouteHandlers()

	r.MethodFunc("GET", "/", h.auth.Estado)
	r.MethodFunc("POST", "/", s.rateLimitMiddleware(h.auth.Login))
	r.MethodFunc("GET", "/logout", s.withSession(h.auth.Logout))

	r.MethodFunc("GET", "/dashboard", s.withSession(s.requirePermission(rbac.PermMetricasGlobal)(h.metrics.Dashboard)))
	r.MethodFunc("GET", "/dashboard_colegios", s.withSession(h.metrics.DashboardColegios))

	r.MethodFunc("GET", "/registro_login_usuarios", h.users.RegistroEstado)
	r.MethodFunc("POST", "/registro_login_usuarios", h.users.Registro)

	r.MethodFunc("POST", "/guardar_incidente", s.withSession(h.incidents.GuardarIncidente))
	r.MethodFunc("POST", "/guardar_infraestructura", s.withSession(h.incidents.GuardarInfraestructura))
	r.MethodFunc("POST", "/guardar_incidencia_colegios", s.withSession(h.incidents.GuardarIncidenciaColegios))

	r.MethodFunc("POST", "/filtrar_estado", h.incidents.FiltrarEstado)
	r.MethodFunc("POST", "/actualizar_usuario", s.withSession(s.requirePermission(rbac.PermUsuariosManage)(h.users.Actualizar)))
	r.MethodFunc("PUT", "/actualizar_usuario", s.withSession(s.requirePermission(rbac.PermUsuariosManage)(h.users.Actualizar)))

	r.Route("/api", func(apiRouter chi.Router) {
		apiRouter.MethodFunc("GET", "/metricas", h.metrics.Metricas)
		apiRouter.MethodFunc("GET", "/metricas_usuario", s.withSession(h.metrics.MetricasUsuario))
		apiRouter.MethodFunc("GET", "/incidentes", h.incidents.Listar)
		apiRouter.MethodFunc("POST", "/incidentes/{id:[0-9]+}/estado", h.incidents.ActualizarEstado)
		apiRouter.MethodFunc("GET", "/incidencias/nuevas", h.incidents.Nuevas)
		apiRouter.MethodFunc("PUT", "/incidencias/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermIncidenciasManage)(h.incidents.Actualizar)))
		apiRouter.MethodFunc("GET", "/ultima_incidencia", s.withSession(h.incidents.UltimaIncidencia))
		apiRouter.MethodFunc("GET", "/usuarios", s.withSession(s.requirePermission(rbac.PermUsuariosManage)(h.users.Listar)))
		apiRouter.MethodFunc("GET", "/usuarios/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermUsuariosManage)(h.users.Obtener)))
		apiRouter.MethodFunc("DELETE", "/usuarios/{id:[0-9]+}", s.withSession(s.requirePermission(rbac.PermUsuariosManage)(h.users.Eliminar)))
		apiRouter.MethodFunc("GET", "/instituciones", h.evidence.Instituciones)
		apiRouter.MethodFunc("POST", "/evidencias", h.evidence.Evidencias)
	})

	// Uploaded evidence is served straight from disk. The route prefix
	// mirrors the path stored on each record.
	if dir := strings.Trim(s.cfg.Uploads.Dir, "/"); dir != "" {
		prefix := "/" + dir + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(s.cfg.Uploads.Dir))))
	}

	return r
}
