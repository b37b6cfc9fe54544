package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrSinUsuario             = errors.New("registro sin usuario")
	ErrIncidenciaNoEncontrada = errors.New("incidencia no encontrada")
	ErrCampoFaltante          = errors.New("campo obligatorio faltante")
	ErrTipoInvalido           = errors.New("tipo de incidencia inválido")
)

const (
	TipoAcademico       = "Académico"
	TipoInfraestructura = "Infraestructura"

	EstadoPendiente = "Pendiente"
	EstadoEnProceso = "En proceso"
	EstadoResuelto  = "Resuelto"
)

type RegistroAcademico struct {
	ID               int64     `json:"id"`
	NombreEstudiante string    `json:"nombre_estudiante"`
	Motivo           string    `json:"motivo"`
	Fecha            string    `json:"fecha"`
	Hora             string    `json:"hora"`
	Estado           string    `json:"estado"`
	Evidencia        *string   `json:"evidencia,omitempty"`
	Comentarios      string    `json:"comentarios,omitempty"`
	UsuarioID        int64     `json:"usuario_id"`
	FechaRegistro    time.Time `json:"fecha_registro"`
}

type RegistroInfraestructura struct {
	ID                  int64     `json:"id"`
	Problema            string    `json:"problema"`
	DescripcionProblema string    `json:"descripcion_problema"`
	ImagenProblema      *string   `json:"imagen_problema,omitempty"`
	Seguimiento         string    `json:"seguimiento"`
	Estado              string    `json:"estado"`
	Alerta              bool      `json:"alerta"`
	Comentarios         string    `json:"comentarios,omitempty"`
	UsuarioID           int64     `json:"usuario_id"`
	FechaRegistro       time.Time `json:"fecha_registro"`
}

// IncidenteResumen is the /api/incidentes row shape: infrastructure
// records with seguimiento surfaced as institucion.
type IncidenteResumen struct {
	ID          int64     `json:"id"`
	Fecha       time.Time `json:"fecha"`
	Descripcion string    `json:"descripcion"`
	Institucion string    `json:"institucion"`
	Estado      string    `json:"estado"`
}

// IncidenciaEstado is one row of the cross-table status listing.
type IncidenciaEstado struct {
	Institucion   string `json:"institucion"`
	RegistradoPor string `json:"registrado_por"`
	Correo        string `json:"correo"`
	Estado        string `json:"estado"`
	Tipo          string `json:"tipo"`
}

// EvidenciaAcademica is an academic record joined with its reporter.
type EvidenciaAcademica struct {
	NombreEstudiante string  `json:"nombre_estudiante"`
	Motivo           string  `json:"motivo"`
	Fecha            string  `json:"fecha"`
	Hora             string  `json:"hora"`
	Estado           string  `json:"estado"`
	Institucion      string  `json:"institucion"`
	Evidencia        *string `json:"evidencia"`
}

type UltimaIncidencia struct {
	ID            int64     `json:"id"`
	Tipo          string    `json:"tipo"`
	FechaRegistro time.Time `json:"fecha_registro"`
}

// ActualizacionIncidencia updates one record by id and type. The
// acting user is re-resolved from Correo, never trusted from the
// payload id.
type ActualizacionIncidencia struct {
	Correo              string `json:"correo"`
	Estado              string `json:"estado"`
	Comentarios         string `json:"comentarios"`
	Problema            string `json:"problema"`
	DescripcionProblema string `json:"descripcion_problema"`
	Seguimiento         string `json:"seguimiento"`
	Motivo              string `json:"motivo"`
	NombreEstudiante    string `json:"nombre_estudiante"`
}

type IncidentsStore interface {
	CrearAcademico(ctx context.Context, reg *RegistroAcademico) (int64, error)
	CrearInfraestructura(ctx context.Context, reg *RegistroInfraestructura) (int64, error)
	ListarInfraestructura(ctx context.Context) ([]IncidenteResumen, error)
	ActualizarEstadoInfraestructura(ctx context.Context, id int64, estado string) error
	ListarPorEstado(ctx context.Context, estado string) ([]IncidenciaEstado, error)
	PorInstitucion(ctx context.Context, institucion string) ([]EvidenciaAcademica, error)
	UltimaPorInstitucion(ctx context.Context, tipo, institucion string) (*UltimaIncidencia, error)
	Ultima(ctx context.Context) (*UltimaIncidencia, error)
	ContarPendientes(ctx context.Context) (int64, error)
	ActualizarPorID(ctx context.Context, id int64, tipo string, cambio ActualizacionIncidencia, usuarioID int64) error
}

type incidentsStore struct {
	db *sql.DB
}

func NewIncidentsStore(db *sql.DB) IncidentsStore {
	return &incidentsStore{db: db}
}

func (s *incidentsStore) CrearAcademico(ctx context.Context, reg *RegistroAcademico) (int64, error) {
	if reg.UsuarioID <= 0 {
		return 0, ErrSinUsuario
	}
	if strings.TrimSpace(reg.NombreEstudiante) == "" || strings.TrimSpace(reg.Motivo) == "" {
		return 0, ErrCampoFaltante
	}
	if reg.Estado == "" {
		reg.Estado = EstadoPendiente
	}
	if reg.FechaRegistro.IsZero() {
		reg.FechaRegistro = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registro_academico (nombre_estudiante, motivo, fecha, hora, estado, evidencia, comentarios, usuario_id, fecha_registro)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.NombreEstudiante, reg.Motivo, reg.Fecha, reg.Hora, reg.Estado, reg.Evidencia, reg.Comentarios, reg.UsuarioID, reg.FechaRegistro)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	reg.ID = id
	return id, nil
}

func (s *incidentsStore) CrearInfraestructura(ctx context.Context, reg *RegistroInfraestructura) (int64, error) {
	if reg.UsuarioID <= 0 {
		return 0, ErrSinUsuario
	}
	if strings.TrimSpace(reg.Problema) == "" {
		return 0, ErrCampoFaltante
	}
	if reg.Estado == "" {
		reg.Estado = EstadoPendiente
	}
	if reg.FechaRegistro.IsZero() {
		reg.FechaRegistro = time.Now().UTC()
	}
	alerta := 0
	if reg.Alerta {
		alerta = 1
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO registro_infraestructura (problema, descripcion_problema, imagen_problema, seguimiento, estado, alerta, comentarios, usuario_id, fecha_registro)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		reg.Problema, reg.DescripcionProblema, reg.ImagenProblema, reg.Seguimiento, reg.Estado, alerta, reg.Comentarios, reg.UsuarioID, reg.FechaRegistro)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	reg.ID = id
	return id, nil
}

func (s *incidentsStore) ListarInfraestructura(ctx context.Context) ([]IncidenteResumen, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fecha_registro, descripcion_problema, seguimiento, estado
		 FROM registro_infraestructura ORDER BY fecha_registro DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []IncidenteResumen
	for rows.Next() {
		var r IncidenteResumen
		if err := rows.Scan(&r.ID, &r.Fecha, &r.Descripcion, &r.Institucion, &r.Estado); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *incidentsStore) ActualizarEstadoInfraestructura(ctx context.Context, id int64, estado string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE registro_infraestructura SET estado = ? WHERE id = ?", estado, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIncidenciaNoEncontrada
	}
	return nil
}

// ListarPorEstado unions both record tables, tagging each row with its
// tipo. NULLs from the LEFT JOIN collapse to "Desconocido".
func (s *incidentsStore) ListarPorEstado(ctx context.Context, estado string) ([]IncidenciaEstado, error) {
	var out []IncidenciaEstado
	queries := []struct {
		tipo string
		sql  string
	}{
		{TipoInfraestructura, `SELECT u.institucion, u.nombre || ' ' || u.apellido AS registrado_por, u.correo_electronico, ri.estado
			FROM registro_infraestructura ri
			LEFT JOIN usuarios u ON ri.usuario_id = u.id
			WHERE ri.estado = ?`},
		{TipoAcademico, `SELECT u.institucion, u.nombre || ' ' || u.apellido AS registrado_por, u.correo_electronico, ra.estado
			FROM registro_academico ra
			LEFT JOIN usuarios u ON ra.usuario_id = u.id
			WHERE ra.estado = ?`},
	}
	for _, q := range queries {
		rows, err := s.db.QueryContext(ctx, q.sql, estado)
		if err != nil {
			return nil, err
		}
		for rows.Next() {
			var institucion, registradoPor, correo sql.NullString
			var r IncidenciaEstado
			if err := rows.Scan(&institucion, &registradoPor, &correo, &r.Estado); err != nil {
				rows.Close()
				return nil, err
			}
			r.Institucion = orDesconocido(institucion)
			r.RegistradoPor = orDesconocido(registradoPor)
			r.Correo = orDesconocido(correo)
			r.Tipo = q.tipo
			out = append(out, r)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, err
		}
		rows.Close()
	}
	return out, nil
}

func (s *incidentsStore) PorInstitucion(ctx context.Context, institucion string) ([]EvidenciaAcademica, error) {
	query := `SELECT ra.nombre_estudiante, ra.motivo, ra.fecha, ra.hora, ra.estado, u.institucion, ra.evidencia
		FROM registro_academico ra
		JOIN usuarios u ON ra.usuario_id = u.id`
	var args []any
	if strings.TrimSpace(institucion) != "" {
		query += " WHERE u.institucion = ?"
		args = append(args, institucion)
	}
	query += " ORDER BY ra.fecha_registro DESC"
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EvidenciaAcademica
	for rows.Next() {
		var e EvidenciaAcademica
		if err := rows.Scan(&e.NombreEstudiante, &e.Motivo, &e.Fecha, &e.Hora, &e.Estado, &e.Institucion, &e.Evidencia); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// UltimaPorInstitucion returns the newest record of one tipo for an
// institution. Academic rows resolve the institution through the
// reporting usuario; infrastructure rows carry it in seguimiento.
func (s *incidentsStore) UltimaPorInstitucion(ctx context.Context, tipo, institucion string) (*UltimaIncidencia, error) {
	var row *sql.Row
	canonico := normalizaTipo(tipo)
	switch canonico {
	case TipoAcademico:
		row = s.db.QueryRowContext(ctx,
			`SELECT ra.id, ra.fecha_registro FROM registro_academico ra
			 JOIN usuarios u ON ra.usuario_id = u.id
			 WHERE u.institucion = ?
			 ORDER BY ra.fecha_registro DESC LIMIT 1`, institucion)
	case TipoInfraestructura:
		row = s.db.QueryRowContext(ctx,
			`SELECT id, fecha_registro FROM registro_infraestructura
			 WHERE seguimiento = ?
			 ORDER BY fecha_registro DESC LIMIT 1`, institucion)
	default:
		return nil, ErrTipoInvalido
	}
	var u UltimaIncidencia
	err := row.Scan(&u.ID, &u.FechaRegistro)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Tipo = canonico
	return &u, nil
}

// Ultima returns the newer of the two tables' latest rows.
func (s *incidentsStore) Ultima(ctx context.Context) (*UltimaIncidencia, error) {
	infra, err := s.ultimaDe(ctx, "registro_infraestructura", TipoInfraestructura)
	if err != nil {
		return nil, err
	}
	acad, err := s.ultimaDe(ctx, "registro_academico", TipoAcademico)
	if err != nil {
		return nil, err
	}
	switch {
	case infra == nil:
		return acad, nil
	case acad == nil:
		return infra, nil
	case infra.FechaRegistro.After(acad.FechaRegistro):
		return infra, nil
	default:
		return acad, nil
	}
}

func (s *incidentsStore) ultimaDe(ctx context.Context, table, tipo string) (*UltimaIncidencia, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, fecha_registro FROM "+table+" ORDER BY fecha_registro DESC LIMIT 1")
	var u UltimaIncidencia
	err := row.Scan(&u.ID, &u.FechaRegistro)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	u.Tipo = tipo
	return &u, nil
}

func (s *incidentsStore) ContarPendientes(ctx context.Context) (int64, error) {
	var infra, acad int64
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registro_infraestructura WHERE estado = ?", EstadoPendiente).Scan(&infra); err != nil {
		return 0, err
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM registro_academico WHERE estado = ?", EstadoPendiente).Scan(&acad); err != nil {
		return 0, err
	}
	return infra + acad, nil
}

func (s *incidentsStore) ActualizarPorID(ctx context.Context, id int64, tipo string, cambio ActualizacionIncidencia, usuarioID int64) error {
	if usuarioID <= 0 {
		return ErrSinUsuario
	}
	switch normalizaTipo(tipo) {
	case TipoInfraestructura:
		if strings.TrimSpace(cambio.Problema) == "" {
			return ErrCampoFaltante
		}
		res, err := s.db.ExecContext(ctx,
			`UPDATE registro_infraestructura
			 SET problema = ?, descripcion_problema = ?, seguimiento = ?, estado = ?, comentarios = ?, usuario_id = ?
			 WHERE id = ?`,
			cambio.Problema, cambio.DescripcionProblema, cambio.Seguimiento, cambio.Estado, cambio.Comentarios, usuarioID, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	case TipoAcademico:
		if strings.TrimSpace(cambio.Motivo) == "" {
			return ErrCampoFaltante
		}
		res, err := s.db.ExecContext(ctx,
			`UPDATE registro_academico
			 SET nombre_estudiante = ?, motivo = ?, estado = ?, comentarios = ?, usuario_id = ?
			 WHERE id = ?`,
			cambio.NombreEstudiante, cambio.Motivo, cambio.Estado, cambio.Comentarios, usuarioID, id)
		if err != nil {
			return err
		}
		return requireRow(res)
	default:
		return ErrTipoInvalido
	}
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrIncidenciaNoEncontrada
	}
	return nil
}

func normalizaTipo(tipo string) string {
	switch strings.ToLower(strings.TrimSpace(tipo)) {
	case "infraestructura":
		return TipoInfraestructura
	case "académico", "academico":
		return TipoAcademico
	default:
		return ""
	}
}

func orDesconocido(v sql.NullString) string {
	if v.Valid && strings.TrimSpace(v.String) != "" {
		return v.String
	}
	return "Desconocido"
}
