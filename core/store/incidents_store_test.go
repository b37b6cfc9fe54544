package store

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"ugel-incidentes/config"
	"ugel-incidentes/core/utils"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBPath:     filepath.Join(dir, "test.db"),
		SessionTTL: time.Hour,
	}
	logger := utils.NewLogger()
	db, err := NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := ApplyMigrations(context.Background(), db, cfg, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return db
}

func crearUsuarioPrueba(t *testing.T, db *sql.DB, correo, institucion string) int64 {
	t.Helper()
	users := NewUsersStore(db)
	u := &Usuario{
		Nombre:      "Ana",
		Apellido:    "Quispe",
		Correo:      correo,
		Institucion: institucion,
		ClaveHash:   "hash",
	}
	id, err := users.Create(context.Background(), u)
	if err != nil {
		t.Fatalf("crear usuario %s: %v", correo, err)
	}
	return id
}

func TestCrearAcademicoRequiereUsuario(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()

	reg := &RegistroAcademico{NombreEstudiante: "Luis", Motivo: "Inasistencia"}
	if _, err := incidents.CrearAcademico(ctx, reg); !errors.Is(err, ErrSinUsuario) {
		t.Fatalf("expected ErrSinUsuario, got %v", err)
	}
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM registro_academico").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("row written despite missing usuario")
	}
}

func TestCrearAcademicoDefaultsAndFields(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid := crearUsuarioPrueba(t, db, "colegio@example.com", "IE San Martín")

	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{UsuarioID: uid}); !errors.Is(err, ErrCampoFaltante) {
		t.Fatalf("expected ErrCampoFaltante, got %v", err)
	}

	reg := &RegistroAcademico{
		NombreEstudiante: "Luis Torres",
		Motivo:           "Inasistencia",
		Fecha:            "2026-08-31",
		Hora:             "10:00",
		UsuarioID:        uid,
	}
	id, err := incidents.CrearAcademico(ctx, reg)
	if err != nil {
		t.Fatalf("crear: %v", err)
	}
	if id <= 0 || reg.ID != id {
		t.Fatalf("bad id %d (reg.ID=%d)", id, reg.ID)
	}
	if reg.Estado != EstadoPendiente {
		t.Fatalf("estado default = %q", reg.Estado)
	}
	if reg.FechaRegistro.IsZero() {
		t.Fatalf("fecha_registro not set")
	}
}

func TestActualizarEstadoInfraestructura(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid := crearUsuarioPrueba(t, db, "colegio@example.com", "IE San Martín")

	reg := &RegistroInfraestructura{
		Problema:    "Fuga de agua",
		Seguimiento: "IE San Martín",
		UsuarioID:   uid,
	}
	id, err := incidents.CrearInfraestructura(ctx, reg)
	if err != nil {
		t.Fatalf("crear: %v", err)
	}

	if err := incidents.ActualizarEstadoInfraestructura(ctx, id, EstadoResuelto); err != nil {
		t.Fatalf("actualizar: %v", err)
	}
	lista, err := incidents.ListarInfraestructura(ctx)
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(lista) != 1 || lista[0].Estado != EstadoResuelto {
		t.Fatalf("estado not persisted: %+v", lista)
	}
	if lista[0].Institucion != "IE San Martín" {
		t.Fatalf("seguimiento not surfaced as institucion: %+v", lista[0])
	}

	if err := incidents.ActualizarEstadoInfraestructura(ctx, 9999, EstadoResuelto); !errors.Is(err, ErrIncidenciaNoEncontrada) {
		t.Fatalf("expected ErrIncidenciaNoEncontrada, got %v", err)
	}
}

func TestListarPorEstadoCruzaTablasYCoerceDesconocido(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	conInst := crearUsuarioPrueba(t, db, "con@example.com", "IE San Martín")
	sinInst := crearUsuarioPrueba(t, db, "sin@example.com", "")

	if _, err := incidents.CrearInfraestructura(ctx, &RegistroInfraestructura{
		Problema: "Techo dañado", UsuarioID: conInst,
	}); err != nil {
		t.Fatalf("crear infra: %v", err)
	}
	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Luis", Motivo: "Inasistencia", UsuarioID: sinInst,
	}); err != nil {
		t.Fatalf("crear academico: %v", err)
	}
	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Rosa", Motivo: "Tardanza", Estado: EstadoResuelto, UsuarioID: conInst,
	}); err != nil {
		t.Fatalf("crear academico resuelto: %v", err)
	}

	pendientes, err := incidents.ListarPorEstado(ctx, EstadoPendiente)
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(pendientes) != 2 {
		t.Fatalf("expected 2 pendientes, got %d: %+v", len(pendientes), pendientes)
	}
	tipos := map[string]IncidenciaEstado{}
	for _, p := range pendientes {
		tipos[p.Tipo] = p
	}
	infra, ok := tipos[TipoInfraestructura]
	if !ok {
		t.Fatalf("missing infraestructura row: %+v", pendientes)
	}
	if infra.Institucion != "IE San Martín" || infra.RegistradoPor != "Ana Quispe" {
		t.Fatalf("bad infra row: %+v", infra)
	}
	acad, ok := tipos[TipoAcademico]
	if !ok {
		t.Fatalf("missing académico row: %+v", pendientes)
	}
	if acad.Institucion != "Desconocido" {
		t.Fatalf("empty institucion not coerced: %+v", acad)
	}

	resueltos, err := incidents.ListarPorEstado(ctx, EstadoResuelto)
	if err != nil {
		t.Fatalf("listar resueltos: %v", err)
	}
	if len(resueltos) != 1 || resueltos[0].Tipo != TipoAcademico {
		t.Fatalf("bad resueltos: %+v", resueltos)
	}
}

func TestUltimaYContarPendientes(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid := crearUsuarioPrueba(t, db, "colegio@example.com", "IE San Martín")

	ultima, err := incidents.Ultima(ctx)
	if err != nil {
		t.Fatalf("ultima vacía: %v", err)
	}
	if ultima != nil {
		t.Fatalf("expected nil on empty tables, got %+v", ultima)
	}

	base := time.Now().UTC().Truncate(time.Second)
	if _, err := incidents.CrearInfraestructura(ctx, &RegistroInfraestructura{
		Problema: "Fuga", UsuarioID: uid, FechaRegistro: base.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("crear infra: %v", err)
	}
	acadID, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Luis", Motivo: "Inasistencia", UsuarioID: uid, FechaRegistro: base,
	})
	if err != nil {
		t.Fatalf("crear academico: %v", err)
	}

	ultima, err = incidents.Ultima(ctx)
	if err != nil {
		t.Fatalf("ultima: %v", err)
	}
	if ultima == nil || ultima.ID != acadID || ultima.Tipo != TipoAcademico {
		t.Fatalf("expected newest académico row, got %+v", ultima)
	}

	n, err := incidents.ContarPendientes(ctx)
	if err != nil {
		t.Fatalf("contar: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 pendientes, got %d", n)
	}
}

func TestUltimaPorInstitucion(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid := crearUsuarioPrueba(t, db, "colegio@example.com", "IE San Martín")
	otro := crearUsuarioPrueba(t, db, "otro@example.com", "IE Los Andes")

	base := time.Now().UTC().Truncate(time.Second)
	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Luis", Motivo: "Inasistencia", UsuarioID: uid, FechaRegistro: base.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("crear academico viejo: %v", err)
	}
	acadID, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Rosa", Motivo: "Tardanza", UsuarioID: uid, FechaRegistro: base,
	})
	if err != nil {
		t.Fatalf("crear academico nuevo: %v", err)
	}
	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Pedro", Motivo: "Falta", UsuarioID: otro, FechaRegistro: base.Add(time.Hour),
	}); err != nil {
		t.Fatalf("crear academico ajeno: %v", err)
	}
	infraID, err := incidents.CrearInfraestructura(ctx, &RegistroInfraestructura{
		Problema: "Fuga", Seguimiento: "IE San Martín", UsuarioID: uid, FechaRegistro: base,
	})
	if err != nil {
		t.Fatalf("crear infra: %v", err)
	}

	acad, err := incidents.UltimaPorInstitucion(ctx, "académico", "IE San Martín")
	if err != nil {
		t.Fatalf("academico: %v", err)
	}
	if acad == nil || acad.ID != acadID || acad.Tipo != TipoAcademico {
		t.Fatalf("bad academico row: %+v", acad)
	}

	infra, err := incidents.UltimaPorInstitucion(ctx, "infraestructura", "IE San Martín")
	if err != nil {
		t.Fatalf("infraestructura: %v", err)
	}
	if infra == nil || infra.ID != infraID || infra.Tipo != TipoInfraestructura {
		t.Fatalf("bad infra row: %+v", infra)
	}

	vacio, err := incidents.UltimaPorInstitucion(ctx, "académico", "IE Inexistente")
	if err != nil || vacio != nil {
		t.Fatalf("expected nil for unknown institucion: %v %+v", err, vacio)
	}
	if _, err := incidents.UltimaPorInstitucion(ctx, "mantenimiento", "IE San Martín"); !errors.Is(err, ErrTipoInvalido) {
		t.Fatalf("expected ErrTipoInvalido, got %v", err)
	}
}

func TestActualizarPorID(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid := crearUsuarioPrueba(t, db, "colegio@example.com", "IE San Martín")
	id, err := incidents.CrearInfraestructura(ctx, &RegistroInfraestructura{
		Problema: "Fuga", Seguimiento: "IE San Martín", UsuarioID: uid,
	})
	if err != nil {
		t.Fatalf("crear: %v", err)
	}

	cambio := ActualizacionIncidencia{
		Problema:            "Fuga de agua",
		DescripcionProblema: "Tubería rota en el patio",
		Seguimiento:         "IE San Martín",
		Estado:              EstadoEnProceso,
	}
	if err := incidents.ActualizarPorID(ctx, id, "infraestructura", cambio, uid); err != nil {
		t.Fatalf("actualizar: %v", err)
	}
	lista, err := incidents.ListarInfraestructura(ctx)
	if err != nil {
		t.Fatalf("listar: %v", err)
	}
	if len(lista) != 1 || lista[0].Estado != EstadoEnProceso || lista[0].Descripcion != "Tubería rota en el patio" {
		t.Fatalf("update not persisted: %+v", lista)
	}

	if err := incidents.ActualizarPorID(ctx, id, "mantenimiento", cambio, uid); !errors.Is(err, ErrTipoInvalido) {
		t.Fatalf("expected ErrTipoInvalido, got %v", err)
	}
	if err := incidents.ActualizarPorID(ctx, 9999, "infraestructura", cambio, uid); !errors.Is(err, ErrIncidenciaNoEncontrada) {
		t.Fatalf("expected ErrIncidenciaNoEncontrada, got %v", err)
	}
	if err := incidents.ActualizarPorID(ctx, id, "infraestructura", ActualizacionIncidencia{}, uid); !errors.Is(err, ErrCampoFaltante) {
		t.Fatalf("expected ErrCampoFaltante, got %v", err)
	}
	if err := incidents.ActualizarPorID(ctx, id, "infraestructura", cambio, 0); !errors.Is(err, ErrSinUsuario) {
		t.Fatalf("expected ErrSinUsuario, got %v", err)
	}
}

func TestPorInstitucionFiltra(t *testing.T) {
	db := newTestDB(t)
	incidents := NewIncidentsStore(db)
	ctx := context.Background()
	uid1 := crearUsuarioPrueba(t, db, "a@example.com", "IE San Martín")
	uid2 := crearUsuarioPrueba(t, db, "b@example.com", "IE Los Andes")

	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Luis", Motivo: "Inasistencia", UsuarioID: uid1,
	}); err != nil {
		t.Fatalf("crear 1: %v", err)
	}
	if _, err := incidents.CrearAcademico(ctx, &RegistroAcademico{
		NombreEstudiante: "Rosa", Motivo: "Tardanza", UsuarioID: uid2,
	}); err != nil {
		t.Fatalf("crear 2: %v", err)
	}

	solo, err := incidents.PorInstitucion(ctx, "IE San Martín")
	if err != nil {
		t.Fatalf("por institucion: %v", err)
	}
	if len(solo) != 1 || solo[0].NombreEstudiante != "Luis" {
		t.Fatalf("bad filtered rows: %+v", solo)
	}

	todas, err := incidents.PorInstitucion(ctx, "")
	if err != nil {
		t.Fatalf("todas: %v", err)
	}
	if len(todas) != 2 {
		t.Fatalf("expected 2 rows without filter, got %d", len(todas))
	}
}
