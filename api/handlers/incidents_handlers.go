package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ugel-incidentes/config"
	"ugel-incidentes/core/rbac"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/uploads"
	"ugel-incidentes/core/utils"
)

const maxFormMemory = 8 << 20

// Canonical estados, with the casing stored in the database.
var validEstados = map[string]string{
	"pendiente":  store.EstadoPendiente,
	"en proceso": store.EstadoEnProceso,
	"resuelto":   store.EstadoResuelto,
}

func normalizaEstado(estado string) (string, bool) {
	canonical, ok := validEstados[strings.ToLower(strings.TrimSpace(estado))]
	return canonical, ok
}

type IncidentsHandler struct {
	cfg       *config.AppConfig
	incidents store.IncidentsStore
	users     store.UsersStore
	sessions  store.SessionStore
	saver     *uploads.Saver
	audits    store.AuditStore
	logger    *utils.Logger
}

func NewIncidentsHandler(cfg *config.AppConfig, incidents store.IncidentsStore, users store.UsersStore, sessions store.SessionStore, saver *uploads.Saver, audits store.AuditStore, logger *utils.Logger) *IncidentsHandler {
	return &IncidentsHandler{cfg: cfg, incidents: incidents, users: users, sessions: sessions, saver: saver, audits: audits, logger: logger}
}

// guardarArchivo saves an uploaded file when present and allowed,
// mirroring the permissive form flow: a missing or disallowed file
// leaves the record without evidence instead of failing the request.
func (h *IncidentsHandler) guardarArchivo(r *http.Request, field string) *string {
	if r.MultipartForm == nil {
		return nil
	}
	files := r.MultipartForm.File[field]
	if len(files) == 0 {
		return nil
	}
	fh := files[0]
	if !uploads.AllowedFile(fh.Filename) {
		if h.logger != nil {
			h.logger.Printf("archivo rechazado %s campo=%s", fh.Filename, field)
		}
		return nil
	}
	url, err := h.saver.Save(fh)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("guardar archivo %s: %v", fh.Filename, err)
		}
		return nil
	}
	return &url
}

func (h *IncidentsHandler) GuardarIncidente(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	if sr == nil || sr.UsuarioID <= 0 {
		setFlash(w, mensajeSesionRequerida)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	estado, ok := normalizaEstado(r.FormValue("estado"))
	if !ok {
		estado = store.EstadoPendiente
	}
	reg := store.RegistroAcademico{
		NombreEstudiante: strings.TrimSpace(r.FormValue("nombre_estudiante")),
		Motivo:           strings.TrimSpace(r.FormValue("motivo")),
		Fecha:            strings.TrimSpace(r.FormValue("fecha")),
		Hora:             strings.TrimSpace(r.FormValue("hora")),
		Estado:           estado,
		Evidencia:        h.guardarArchivo(r, "evidencia"),
		UsuarioID:        sr.UsuarioID,
	}
	destino := "/dashboard_colegios"
	if esAdminSesion(sr) {
		destino = "/dashboard"
	}
	if _, err := h.incidents.CrearAcademico(r.Context(), &reg); err != nil {
		if h.logger != nil {
			h.logger.Errorf("guardar registro académico: %v", err)
		}
		setFlash(w, "Error al guardar el registro académico.")
		http.Redirect(w, r, destino, http.StatusFound)
		return
	}
	h.audits.Log(r.Context(), sr.Correo, "incidencias.academica_creada", reg.Motivo)
	setFlash(w, "Registro académico guardado exitosamente.")
	http.Redirect(w, r, destino, http.StatusFound)
}

func (h *IncidentsHandler) GuardarInfraestructura(w http.ResponseWriter, r *http.Request) {
	h.guardarInfra(w, r,
		"Incidente de infraestructura registrado correctamente.",
		"Error al registrar el incidente. Verifica los datos y vuelve a intentarlo.")
}

func (h *IncidentsHandler) GuardarIncidenciaColegios(w http.ResponseWriter, r *http.Request) {
	h.guardarInfra(w, r,
		"Incidente registrado correctamente.",
		"Error al registrar incidente.")
}

func (h *IncidentsHandler) guardarInfra(w http.ResponseWriter, r *http.Request, okMsg, errMsg string) {
	sr := sessionFrom(r)
	if sr == nil || sr.UsuarioID <= 0 {
		setFlash(w, mensajeSesionRequerida)
		http.Redirect(w, r, "/", http.StatusFound)
		return
	}
	if err := r.ParseMultipartForm(maxFormMemory); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	estado, ok := normalizaEstado(r.FormValue("estado"))
	if !ok {
		estado = store.EstadoPendiente
	}
	reg := store.RegistroInfraestructura{
		Problema:            strings.TrimSpace(r.FormValue("problema")),
		DescripcionProblema: strings.TrimSpace(r.FormValue("descripcion_problema")),
		ImagenProblema:      h.guardarArchivo(r, "imagen_problema"),
		Seguimiento:         strings.TrimSpace(r.FormValue("seguimiento")),
		Estado:              estado,
		Alerta:              r.FormValue("alerta") == "on",
		UsuarioID:           sr.UsuarioID,
	}
	destino := "/dashboard_colegios"
	if esAdminSesion(sr) {
		destino = "/dashboard"
	}
	if _, err := h.incidents.CrearInfraestructura(r.Context(), &reg); err != nil {
		if h.logger != nil {
			h.logger.Errorf("guardar registro infraestructura: %v", err)
		}
		setFlash(w, errMsg)
		http.Redirect(w, r, destino, http.StatusFound)
		return
	}
	h.audits.Log(r.Context(), sr.Correo, "incidencias.infraestructura_creada", reg.Problema)
	setFlash(w, okMsg)
	http.Redirect(w, r, destino, http.StatusFound)
}

func (h *IncidentsHandler) Listar(w http.ResponseWriter, r *http.Request) {
	incidentes, err := h.incidents.ListarInfraestructura(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if incidentes == nil {
		incidentes = []store.IncidenteResumen{}
	}
	writeJSON(w, http.StatusOK, incidentes)
}

func (h *IncidentsHandler) ActualizarEstado(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id inválido"})
		return
	}
	var payload struct {
		Estado string `json:"estado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	estado, valido := normalizaEstado(payload.Estado)
	if !valido {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Estado inválido: '" + payload.Estado + "'. Los válidos son: Pendiente, En proceso, Resuelto",
		})
		return
	}
	if err := h.incidents.ActualizarEstadoInfraestructura(r.Context(), id, estado); err != nil {
		if errors.Is(err, store.ErrIncidenciaNoEncontrada) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Incidencia no encontrada"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	actor := ""
	if sr := sessionFrom(r); sr != nil {
		actor = sr.Correo
	}
	h.audits.Log(r.Context(), actor, "incidencias.estado_actualizado", estado)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *IncidentsHandler) Nuevas(w http.ResponseWriter, r *http.Request) {
	n, err := h.incidents.ContarPendientes(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"nuevas": n})
}

// UltimaIncidencia compares the newest record against the session
// watermark so each session is notified about a record at most once.
func (h *IncidentsHandler) UltimaIncidencia(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	if sr == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	ultima, err := h.incidents.Ultima(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if ultima == nil || ultima.ID == sr.UltimaIncidenciaVista {
		writeJSON(w, http.StatusOK, map[string]bool{"nueva": false})
		return
	}
	if err := h.sessions.SetUltimaIncidenciaVista(r.Context(), sr.ID, ultima.ID); err != nil && h.logger != nil {
		h.logger.Errorf("actualizar marca de sesión %s: %v", sr.ID, err)
	}
	sr.UltimaIncidenciaVista = ultima.ID
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"nueva": true,
		"id":    ultima.ID,
		"fecha": ultima.FechaRegistro,
	})
}

func (h *IncidentsHandler) FiltrarEstado(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Estado *string `json:"estado"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil || payload.Estado == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "El campo 'estado' es obligatorio."})
		return
	}
	estado := *payload.Estado
	if !esEstadoCanonico(estado) {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Estado inválido: '" + estado + "'. Los válidos son: Pendiente, En proceso, Resuelto",
		})
		return
	}
	datos, err := h.incidents.ListarPorEstado(r.Context(), estado)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"error":   "Error interno del servidor.",
			"detalle": err.Error(),
		})
		return
	}
	if len(datos) == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{
			"error": "No se encontraron registros con estado '" + estado + "'",
		})
		return
	}
	writeJSON(w, http.StatusOK, datos)
}

// esEstadoCanonico requires the exact stored casing, matching the
// values the filter endpoint documents.
func esEstadoCanonico(estado string) bool {
	switch estado {
	case store.EstadoPendiente, store.EstadoEnProceso, store.EstadoResuelto:
		return true
	}
	return false
}

func (h *IncidentsHandler) Actualizar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id inválido"})
		return
	}
	var payload struct {
		Tipo string `json:"tipo"`
		store.ActualizacionIncidencia
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	if estado, valido := normalizaEstado(payload.Estado); valido {
		payload.Estado = estado
	} else if payload.Estado != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "Estado inválido: '" + payload.Estado + "'. Los válidos son: Pendiente, En proceso, Resuelto",
		})
		return
	}
	// The acting user is resolved from the payload correo, never from
	// a client-supplied id.
	correo := strings.ToLower(strings.TrimSpace(payload.Correo))
	usuario, err := h.users.FindByCorreo(r.Context(), correo)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if usuario == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Usuario no encontrado"})
		return
	}
	err = h.incidents.ActualizarPorID(r.Context(), id, payload.Tipo, payload.ActualizacionIncidencia, usuario.ID)
	switch {
	case errors.Is(err, store.ErrIncidenciaNoEncontrada):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Incidencia no encontrada"})
	case errors.Is(err, store.ErrCampoFaltante), errors.Is(err, store.ErrTipoInvalido):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	default:
		h.audits.Log(r.Context(), correo, "incidencias.actualizada", payload.Tipo)
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func esAdminSesion(sr *store.SessionRecord) bool {
	for _, role := range sr.Roles {
		if role == rbac.RolAdmin {
			return true
		}
	}
	return false
}
