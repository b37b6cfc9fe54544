package auth

import (
	"context"

	"ugel-incidentes/config"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"

	"github.com/gofrs/uuid/v5"
)

type contextKey string

// SessionContextKey carries the *store.SessionRecord through request
// contexts.
const SessionContextKey contextKey = "session"

type SessionManager struct {
	store  store.SessionStore
	cfg    *config.AppConfig
	logger *utils.Logger
}

func NewSessionManager(st store.SessionStore, cfg *config.AppConfig, logger *utils.Logger) *SessionManager {
	return &SessionManager{store: st, cfg: cfg, logger: logger}
}

func (m *SessionManager) Create(ctx context.Context, u *store.Usuario, roles []string, ip, userAgent string) (*store.SessionRecord, error) {
	id := uuid.Must(uuid.NewV4()).String()
	now := utils.NowUTC()
	sr := &store.SessionRecord{
		ID:              id,
		UsuarioID:       u.ID,
		Correo:          u.Correo,
		Nombre:          u.Nombre,
		Apellido:        u.Apellido,
		Institucion:     u.Institucion,
		Roles:           roles,
		IP:              ip,
		UserAgent:       userAgent,
		CreadoEn:        now,
		UltimaActividad: now,
		ExpiraEn:        now.Add(m.cfg.EffectiveSessionTTL()),
	}
	if err := m.store.SaveSession(ctx, sr); err != nil {
		return nil, err
	}
	return sr, nil
}

func (m *SessionManager) Refresh(ctx context.Context, sessID string) error {
	return m.store.UpdateActivity(ctx, sessID, utils.NowUTC(), m.cfg.EffectiveSessionTTL())
}

func (m *SessionManager) Delete(ctx context.Context, sessID string) error {
	return m.store.DeleteSession(ctx, sessID)
}

// SessionFromContext returns the request session, or nil.
func SessionFromContext(ctx context.Context) *store.SessionRecord {
	if v := ctx.Value(SessionContextKey); v != nil {
		if sr, ok := v.(*store.SessionRecord); ok {
			return sr
		}
	}
	return nil
}
