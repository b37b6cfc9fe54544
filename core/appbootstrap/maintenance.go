package appbootstrap

import (
	"context"
	"time"

	"ugel-incidentes/config"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"

	"github.com/robfig/cron/v3"
)

// Mantenimiento runs the background cleanup jobs: expired session
// rows and old audit entries.
type Mantenimiento struct {
	cfg      config.MantenimientoConfig
	sessions store.SessionStore
	audits   store.AuditStore
	logger   *utils.Logger
	cron     *cron.Cron
}

func NewMantenimiento(cfg config.MantenimientoConfig, sessions store.SessionStore, audits store.AuditStore, logger *utils.Logger) *Mantenimiento {
	return &Mantenimiento{cfg: cfg, sessions: sessions, audits: audits, logger: logger}
}

func (m *Mantenimiento) Start() error {
	if m == nil || !m.cfg.Enabled {
		return nil
	}
	c := cron.New()
	if _, err := c.AddFunc(m.cfg.SesionesCron, m.purgarSesiones); err != nil {
		return err
	}
	if _, err := c.AddFunc(m.cfg.AuditoriaCron, m.purgarAuditoria); err != nil {
		return err
	}
	m.cron = c
	c.Start()
	if m.logger != nil {
		m.logger.Printf("mantenimiento programado sesiones=%q auditoria=%q", m.cfg.SesionesCron, m.cfg.AuditoriaCron)
	}
	return nil
}

func (m *Mantenimiento) Stop(ctx context.Context) error {
	if m == nil || m.cron == nil {
		return nil
	}
	done := m.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Mantenimiento) purgarSesiones() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	n, err := m.sessions.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		if m.logger != nil {
			m.logger.Errorf("purgar sesiones: %v", err)
		}
		return
	}
	if n > 0 && m.logger != nil {
		m.logger.Printf("sesiones expiradas eliminadas: %d", n)
	}
}

func (m *Mantenimiento) purgarAuditoria() {
	dias := m.cfg.AuditoriaRetencionDias
	if dias <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	cutoff := time.Now().UTC().AddDate(0, 0, -dias)
	n, err := m.audits.TrimBefore(ctx, cutoff)
	if err != nil {
		if m.logger != nil {
			m.logger.Errorf("purgar auditoría: %v", err)
		}
		return
	}
	if n > 0 && m.logger != nil {
		m.logger.Printf("entradas de auditoría eliminadas: %d", n)
	}
}
