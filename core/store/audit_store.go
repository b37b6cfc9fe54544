package store

import (
	"context"
	"database/sql"
	"time"
)

type AuditEntry struct {
	ID       int64     `json:"id"`
	Correo   string    `json:"correo"`
	Accion   string    `json:"accion"`
	Detalles string    `json:"detalles"`
	CreadoEn time.Time `json:"creado_en"`
}

type AuditStore interface {
	// Log is fire and forget; a failed audit write never blocks the
	// operation it describes.
	Log(ctx context.Context, correo, accion, detalles string)
	Recent(ctx context.Context, limit int) ([]AuditEntry, error)
	TrimBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type auditStore struct {
	db *sql.DB
}

func NewAuditStore(db *sql.DB) AuditStore {
	return &auditStore{db: db}
}

func (s *auditStore) Log(ctx context.Context, correo, accion, detalles string) {
	_, _ = s.db.ExecContext(ctx,
		"INSERT INTO registro_auditoria (correo, accion, detalles, creado_en) VALUES (?, ?, ?, ?)",
		correo, accion, detalles, time.Now().UTC())
}

func (s *auditStore) Recent(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, correo, accion, detalles, creado_en FROM registro_auditoria ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Correo, &e.Accion, &e.Detalles, &e.CreadoEn); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *auditStore) TrimBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM registro_auditoria WHERE creado_en < ?", cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
