package appbootstrap

import (
	"database/sql"

	"ugel-incidentes/api"
	"ugel-incidentes/config"
	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/rbac"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/uploads"
	"ugel-incidentes/core/utils"
)

type runtimeComposition struct {
	serverDeps    api.ServerDeps
	mantenimiento *Mantenimiento
}

func composeRuntime(cfg *config.AppConfig, db *sql.DB, logger *utils.Logger) (*runtimeComposition, error) {
	users := store.NewUsersStore(db)
	sessions := store.NewSessionsStore(db)
	incidents := store.NewIncidentsStore(db)
	metrics := store.NewMetricsStore(db)
	audits := store.NewAuditStore(db)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}
	sessionManager := auth.NewSessionManager(sessions, cfg, logger)
	limiter := auth.NewLoginLimiter(cfg.Security.LoginMaxIntentos, cfg.Security.LoginBloqueoTTL)
	saver := uploads.NewSaver(cfg.Uploads)

	return &runtimeComposition{
		serverDeps: api.ServerDeps{
			Users:          users,
			Sessions:       sessions,
			Incidents:      incidents,
			Metrics:        metrics,
			Audits:         audits,
			SessionManager: sessionManager,
			LoginLimiter:   limiter,
			Policy:         policy,
			Saver:          saver,
		},
		mantenimiento: NewMantenimiento(cfg.Mantenimiento, sessions, audits, logger),
	}, nil
}
