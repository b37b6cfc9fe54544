package api

import "ugel-incidentes/api/handlers"

type routeHandlers struct {
	auth      *handlers.AuthHandler
	users     *handlers.UsersHandler
	incidents *handlers.IncidentsHandler
	metrics   *handlers.MetricsHandler
	evidence  *handlers.EvidenceHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		auth:      handlers.NewAuthHandler(s.cfg, s.users, s.sessions, s.sessionManager, s.loginLimiter, s.audits, s.logger),
		users:     handlers.NewUsersHandler(s.cfg, s.users, s.audits, s.logger),
		incidents: handlers.NewIncidentsHandler(s.cfg, s.incidents, s.users, s.sessions, s.saver, s.audits, s.logger),
		metrics:   handlers.NewMetricsHandler(s.metrics, s.logger),
		evidence:  handlers.NewEvidenceHandler(s.incidents, s.users, s.logger),
	}
}
