package store

import (
	"context"
	"testing"
	"time"
)

func TestSessionRoundTripAndWatermark(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionsStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	sr := &SessionRecord{
		ID:              "sess-1",
		UsuarioID:       7,
		Correo:          "ana@example.com",
		Nombre:          "Ana",
		Apellido:        "Quispe",
		Institucion:     "IE San Martín",
		Roles:           []string{"institucion"},
		IP:              "127.0.0.1",
		UserAgent:       "test-agent",
		CreadoEn:        now,
		UltimaActividad: now,
		ExpiraEn:        now.Add(time.Hour),
	}
	if err := sessions.SaveSession(ctx, sr); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := sessions.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil || got.Correo != "ana@example.com" || got.Institucion != "IE San Martín" {
		t.Fatalf("bad session: %+v", got)
	}
	if len(got.Roles) != 1 || got.Roles[0] != "institucion" {
		t.Fatalf("roles not restored: %v", got.Roles)
	}
	if got.UltimaIncidenciaVista != 0 {
		t.Fatalf("fresh watermark = %d", got.UltimaIncidenciaVista)
	}

	if err := sessions.SetUltimaIncidenciaVista(ctx, "sess-1", 42); err != nil {
		t.Fatalf("set watermark: %v", err)
	}
	got, _ = sessions.GetSession(ctx, "sess-1")
	if got.UltimaIncidenciaVista != 42 {
		t.Fatalf("watermark = %d, want 42", got.UltimaIncidenciaVista)
	}

	if err := sessions.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	gone, err := sessions.GetSession(ctx, "sess-1")
	if err != nil || gone != nil {
		t.Fatalf("session survived delete: %v %+v", err, gone)
	}
}

func TestGetSessionDropsExpired(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionsStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	if err := sessions.SaveSession(ctx, &SessionRecord{
		ID:              "sess-expired",
		UsuarioID:       1,
		Correo:          "ana@example.com",
		Roles:           []string{"institucion"},
		CreadoEn:        now.Add(-2 * time.Hour),
		UltimaActividad: now.Add(-2 * time.Hour),
		ExpiraEn:        now.Add(-time.Hour),
	}); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := sessions.GetSession(ctx, "sess-expired")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Fatalf("expired session returned: %+v", got)
	}
	var n int64
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sesiones WHERE id = ?", "sess-expired").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expired row not purged")
	}
}

func TestDeleteExpired(t *testing.T) {
	db := newTestDB(t)
	sessions := NewSessionsStore(db)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, s := range []*SessionRecord{
		{ID: "viva", UsuarioID: 1, Correo: "a@example.com", CreadoEn: now, UltimaActividad: now, ExpiraEn: now.Add(time.Hour)},
		{ID: "muerta-1", UsuarioID: 2, Correo: "b@example.com", CreadoEn: now, UltimaActividad: now, ExpiraEn: now.Add(-time.Minute)},
		{ID: "muerta-2", UsuarioID: 3, Correo: "c@example.com", CreadoEn: now, UltimaActividad: now, ExpiraEn: now.Add(-time.Hour)},
	} {
		if err := sessions.SaveSession(ctx, s); err != nil {
			t.Fatalf("save %s: %v", s.ID, err)
		}
	}

	n, err := sessions.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("delete expired: %v", err)
	}
	if n != 2 {
		t.Fatalf("deleted %d, want 2", n)
	}
	alive, err := sessions.GetSession(ctx, "viva")
	if err != nil || alive == nil {
		t.Fatalf("live session lost: %v %+v", err, alive)
	}
}
