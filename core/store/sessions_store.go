package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"
)

// SessionRecord carries the public user fields so handlers rarely
// need a second lookup, plus the watermark of the newest incident the
// session has already been notified about.
type SessionRecord struct {
	ID                    string    `json:"id"`
	UsuarioID             int64     `json:"usuario_id"`
	Correo                string    `json:"correo"`
	Nombre                string    `json:"nombre"`
	Apellido              string    `json:"apellido"`
	Institucion           string    `json:"institucion"`
	Roles                 []string  `json:"roles"`
	UltimaIncidenciaVista int64     `json:"ultima_incidencia_vista"`
	IP                    string    `json:"ip"`
	UserAgent             string    `json:"user_agent"`
	CreadoEn              time.Time `json:"creado_en"`
	UltimaActividad       time.Time `json:"ultima_actividad"`
	ExpiraEn              time.Time `json:"expira_en"`
}

type SessionStore interface {
	SaveSession(ctx context.Context, sr *SessionRecord) error
	GetSession(ctx context.Context, id string) (*SessionRecord, error)
	UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error
	SetUltimaIncidenciaVista(ctx context.Context, id string, incidenciaID int64) error
	DeleteSession(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type sessionsStore struct {
	db *sql.DB
}

func NewSessionsStore(db *sql.DB) SessionStore {
	return &sessionsStore{db: db}
}

func (s *sessionsStore) SaveSession(ctx context.Context, sr *SessionRecord) error {
	roles, err := json.Marshal(sr.Roles)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO sesiones (id, usuario_id, correo, nombre, apellido, institucion, roles, ultima_incidencia_vista, ip, user_agent, creado_en, ultima_actividad, expira_en)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sr.ID, sr.UsuarioID, sr.Correo, sr.Nombre, sr.Apellido, sr.Institucion, string(roles),
		sr.UltimaIncidenciaVista, sr.IP, sr.UserAgent, sr.CreadoEn, sr.UltimaActividad, sr.ExpiraEn)
	return err
}

func (s *sessionsStore) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, usuario_id, correo, nombre, apellido, institucion, roles, ultima_incidencia_vista, ip, user_agent, creado_en, ultima_actividad, expira_en
		 FROM sesiones WHERE id = ?`, id)
	var sr SessionRecord
	var roles string
	err := row.Scan(&sr.ID, &sr.UsuarioID, &sr.Correo, &sr.Nombre, &sr.Apellido, &sr.Institucion, &roles,
		&sr.UltimaIncidenciaVista, &sr.IP, &sr.UserAgent, &sr.CreadoEn, &sr.UltimaActividad, &sr.ExpiraEn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(roles), &sr.Roles); err != nil {
		sr.Roles = nil
	}
	if time.Now().UTC().After(sr.ExpiraEn) {
		_, _ = s.db.ExecContext(ctx, "DELETE FROM sesiones WHERE id = ?", id)
		return nil, nil
	}
	return &sr, nil
}

func (s *sessionsStore) UpdateActivity(ctx context.Context, id string, now time.Time, ttl time.Duration) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sesiones SET ultima_actividad = ?, expira_en = ? WHERE id = ?",
		now, now.Add(ttl), id)
	return err
}

func (s *sessionsStore) SetUltimaIncidenciaVista(ctx context.Context, id string, incidenciaID int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE sesiones SET ultima_incidencia_vista = ? WHERE id = ?", incidenciaID, id)
	return err
}

func (s *sessionsStore) DeleteSession(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM sesiones WHERE id = ?", id)
	return err
}

func (s *sessionsStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sesiones WHERE expira_en < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
