package store

import (
	"context"
	"database/sql"
)

type Metricas struct {
	TotalIncidentes    int64 `json:"total_incidentes"`
	TotalResueltos     int64 `json:"total_resueltos"`
	TotalEnProceso     int64 `json:"total_en_proceso"`
	TotalInstituciones int64 `json:"total_instituciones"`
}

type MetricsStore interface {
	Globales(ctx context.Context) (*Metricas, error)
	PorUsuario(ctx context.Context, usuarioID int64) (*Metricas, error)
}

type metricsStore struct {
	db *sql.DB
}

func NewMetricsStore(db *sql.DB) MetricsStore {
	return &metricsStore{db: db}
}

// Globales sums per-table counters. Institutions come from the
// usuarios table; a denormalized seguimiento value never counts.
func (s *metricsStore) Globales(ctx context.Context) (*Metricas, error) {
	var m Metricas
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&m.TotalIncidentes, "SELECT (SELECT COUNT(*) FROM registro_infraestructura) + (SELECT COUNT(*) FROM registro_academico)", nil},
		{&m.TotalResueltos, "SELECT (SELECT COUNT(*) FROM registro_infraestructura WHERE estado = ?) + (SELECT COUNT(*) FROM registro_academico WHERE estado = ?)", []any{EstadoResuelto, EstadoResuelto}},
		{&m.TotalEnProceso, "SELECT (SELECT COUNT(*) FROM registro_infraestructura WHERE estado = ?) + (SELECT COUNT(*) FROM registro_academico WHERE estado = ?)", []any{EstadoEnProceso, EstadoEnProceso}},
		{&m.TotalInstituciones, "SELECT COUNT(DISTINCT institucion) FROM usuarios WHERE institucion != ''", nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &m, nil
}

func (s *metricsStore) PorUsuario(ctx context.Context, usuarioID int64) (*Metricas, error) {
	var m Metricas
	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&m.TotalIncidentes, "SELECT (SELECT COUNT(*) FROM registro_infraestructura WHERE usuario_id = ?) + (SELECT COUNT(*) FROM registro_academico WHERE usuario_id = ?)", []any{usuarioID, usuarioID}},
		{&m.TotalResueltos, "SELECT (SELECT COUNT(*) FROM registro_infraestructura WHERE usuario_id = ? AND estado = ?) + (SELECT COUNT(*) FROM registro_academico WHERE usuario_id = ? AND estado = ?)", []any{usuarioID, EstadoResuelto, usuarioID, EstadoResuelto}},
		{&m.TotalEnProceso, "SELECT (SELECT COUNT(*) FROM registro_infraestructura WHERE usuario_id = ? AND estado = ?) + (SELECT COUNT(*) FROM registro_academico WHERE usuario_id = ? AND estado = ?)", []any{usuarioID, EstadoEnProceso, usuarioID, EstadoEnProceso}},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, err
		}
	}
	return &m, nil
}
