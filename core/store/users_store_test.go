package store

import (
	"context"
	"errors"
	"testing"
)

func TestUsersCreateAndFind(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	ctx := context.Background()

	u := &Usuario{
		Nombre:      "Ana",
		Apellido:    "Quispe",
		DNI:         "12345678",
		Telefono:    "999888777",
		Correo:      "ana@example.com",
		Institucion: "IE San Martín",
		ClaveHash:   "hash",
	}
	id, err := users.Create(ctx, u)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id <= 0 {
		t.Fatalf("bad id %d", id)
	}

	found, err := users.FindByCorreo(ctx, "ana@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if found == nil || found.ID != id || found.Institucion != "IE San Martín" {
		t.Fatalf("bad user: %+v", found)
	}

	missing, err := users.FindByCorreo(ctx, "nadie@example.com")
	if err != nil {
		t.Fatalf("find missing: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for unknown correo, got %+v", missing)
	}

	if _, err := users.Create(ctx, &Usuario{
		Nombre: "Otra", Apellido: "Persona", Correo: "ana@example.com", ClaveHash: "h",
	}); !errors.Is(err, ErrCorreoDuplicado) {
		t.Fatalf("expected ErrCorreoDuplicado, got %v", err)
	}
}

func TestUsersUpdateAndDelete(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	ctx := context.Background()
	id := crearUsuarioPrueba(t, db, "ana@example.com", "IE San Martín")

	u, err := users.Get(ctx, id)
	if err != nil || u == nil {
		t.Fatalf("get: %v (%+v)", err, u)
	}
	u.Telefono = "911222333"
	u.Institucion = "IE Los Andes"
	if err := users.Update(ctx, u); err != nil {
		t.Fatalf("update: %v", err)
	}
	after, _ := users.Get(ctx, id)
	if after.Telefono != "911222333" || after.Institucion != "IE Los Andes" {
		t.Fatalf("update not persisted: %+v", after)
	}

	if err := users.Update(ctx, &Usuario{ID: 9999, Nombre: "x", Apellido: "y", Correo: "z@example.com"}); !errors.Is(err, ErrUsuarioNoEncontrado) {
		t.Fatalf("expected ErrUsuarioNoEncontrado, got %v", err)
	}

	if err := users.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := users.Get(ctx, id)
	if err != nil {
		t.Fatalf("get after delete: %v", err)
	}
	if gone != nil {
		t.Fatalf("user survived delete: %+v", gone)
	}
	if err := users.Delete(ctx, id); !errors.Is(err, ErrUsuarioNoEncontrado) {
		t.Fatalf("expected ErrUsuarioNoEncontrado on second delete, got %v", err)
	}
}

func TestInstitucionesDistinct(t *testing.T) {
	db := newTestDB(t)
	users := NewUsersStore(db)
	ctx := context.Background()
	crearUsuarioPrueba(t, db, "a@example.com", "IE San Martín")
	crearUsuarioPrueba(t, db, "b@example.com", "IE San Martín")
	crearUsuarioPrueba(t, db, "c@example.com", "IE Los Andes")
	crearUsuarioPrueba(t, db, "d@example.com", "")

	insts, err := users.Instituciones(ctx)
	if err != nil {
		t.Fatalf("instituciones: %v", err)
	}
	if len(insts) != 2 {
		t.Fatalf("expected 2 instituciones, got %v", insts)
	}
	if insts[0] != "IE Los Andes" || insts[1] != "IE San Martín" {
		t.Fatalf("unexpected order: %v", insts)
	}
}
