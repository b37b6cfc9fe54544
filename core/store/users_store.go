package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

var (
	ErrCorreoDuplicado     = errors.New("correo duplicado")
	ErrUsuarioNoEncontrado = errors.New("usuario no encontrado")
)

type Usuario struct {
	ID            int64     `json:"id"`
	Nombre        string    `json:"nombre"`
	Apellido      string    `json:"apellido"`
	DNI           string    `json:"dni"`
	Telefono      string    `json:"telefono"`
	Correo        string    `json:"correo_electronico"`
	Institucion   string    `json:"institucion"`
	ClaveHash     string    `json:"-"`
	CreadoEn      time.Time `json:"creado_en"`
	ActualizadoEn time.Time `json:"actualizado_en"`
}

type UsersStore interface {
	Create(ctx context.Context, u *Usuario) (int64, error)
	Get(ctx context.Context, id int64) (*Usuario, error)
	FindByCorreo(ctx context.Context, correo string) (*Usuario, error)
	List(ctx context.Context) ([]Usuario, error)
	Update(ctx context.Context, u *Usuario) error
	Delete(ctx context.Context, id int64) error
	Instituciones(ctx context.Context) ([]string, error)
}

type usersStore struct {
	db *sql.DB
}

func NewUsersStore(db *sql.DB) UsersStore {
	return &usersStore{db: db}
}

const usuarioColumns = "id, nombre, apellido, dni, telefono, correo_electronico, institucion, clave_hash, creado_en, actualizado_en"

func (s *usersStore) Create(ctx context.Context, u *Usuario) (int64, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO usuarios (nombre, apellido, dni, telefono, correo_electronico, institucion, clave_hash, creado_en, actualizado_en)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.Nombre, u.Apellido, u.DNI, u.Telefono, u.Correo, u.Institucion, u.ClaveHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrCorreoDuplicado
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	u.ID = id
	u.CreadoEn = now
	u.ActualizadoEn = now
	return id, nil
}

func (s *usersStore) Get(ctx context.Context, id int64) (*Usuario, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+usuarioColumns+" FROM usuarios WHERE id = ?", id)
	return scanUsuario(row)
}

func (s *usersStore) FindByCorreo(ctx context.Context, correo string) (*Usuario, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+usuarioColumns+" FROM usuarios WHERE correo_electronico = ?", correo)
	return scanUsuario(row)
}

func (s *usersStore) List(ctx context.Context) ([]Usuario, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+usuarioColumns+" FROM usuarios ORDER BY apellido, nombre")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Usuario
	for rows.Next() {
		u, err := scanUsuario(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (s *usersStore) Update(ctx context.Context, u *Usuario) error {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE usuarios SET nombre = ?, apellido = ?, dni = ?, telefono = ?, correo_electronico = ?, institucion = ?, clave_hash = ?, actualizado_en = ?
		 WHERE id = ?`,
		u.Nombre, u.Apellido, u.DNI, u.Telefono, u.Correo, u.Institucion, u.ClaveHash, now, u.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrCorreoDuplicado
		}
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUsuarioNoEncontrado
	}
	return nil
}

func (s *usersStore) Delete(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM usuarios WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUsuarioNoEncontrado
	}
	return nil
}

func (s *usersStore) Instituciones(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT institucion FROM usuarios WHERE institucion IS NOT NULL AND institucion != '' ORDER BY institucion")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var inst string
		if err := rows.Scan(&inst); err != nil {
			return nil, err
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUsuario(row rowScanner) (*Usuario, error) {
	var u Usuario
	err := row.Scan(&u.ID, &u.Nombre, &u.Apellido, &u.DNI, &u.Telefono, &u.Correo, &u.Institucion, &u.ClaveHash, &u.CreadoEn, &u.ActualizadoEn)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key")
}
