package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"ugel-incidentes/config"
	"ugel-incidentes/core/auth"
	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"
)

type UsersHandler struct {
	cfg    *config.AppConfig
	users  store.UsersStore
	audits store.AuditStore
	logger *utils.Logger
}

func NewUsersHandler(cfg *config.AppConfig, users store.UsersStore, audits store.AuditStore, logger *utils.Logger) *UsersHandler {
	return &UsersHandler{cfg: cfg, users: users, audits: audits, logger: logger}
}

// RegistroEstado serves the registration page state (flash only).
func (h *UsersHandler) RegistroEstado(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": readFlash(w, r)})
}

func (h *UsersHandler) Registro(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	u := store.Usuario{
		Nombre:      strings.TrimSpace(r.FormValue("nombre")),
		Apellido:    strings.TrimSpace(r.FormValue("apellido")),
		DNI:         strings.TrimSpace(r.FormValue("dni")),
		Telefono:    strings.TrimSpace(r.FormValue("telefono")),
		Correo:      strings.ToLower(strings.TrimSpace(r.FormValue("correo"))),
		Institucion: strings.TrimSpace(r.FormValue("institucion")),
	}
	clave := r.FormValue("clave")
	if u.Nombre == "" || u.Apellido == "" || u.Correo == "" || clave == "" {
		setFlash(w, "Hubo un error al registrar el usuario.")
		http.Redirect(w, r, "/registro_login_usuarios", http.StatusFound)
		return
	}
	hash, err := auth.HashClave(clave, h.cfg.Pepper)
	if err != nil {
		setFlash(w, "Hubo un error al registrar el usuario.")
		http.Redirect(w, r, "/registro_login_usuarios", http.StatusFound)
		return
	}
	u.ClaveHash = hash
	if _, err := h.users.Create(r.Context(), &u); err != nil {
		if h.logger != nil && !errors.Is(err, store.ErrCorreoDuplicado) {
			h.logger.Errorf("registrar usuario %s: %v", u.Correo, err)
		}
		setFlash(w, "Hubo un error al registrar el usuario.")
		http.Redirect(w, r, "/registro_login_usuarios", http.StatusFound)
		return
	}
	h.audits.Log(r.Context(), u.Correo, "usuarios.creado", u.Institucion)
	setFlash(w, "Usuario registrado exitosamente.")
	http.Redirect(w, r, "/registro_login_usuarios", http.StatusFound)
}

func (h *UsersHandler) Listar(w http.ResponseWriter, r *http.Request) {
	usuarios, err := h.users.List(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if usuarios == nil {
		usuarios = []store.Usuario{}
	}
	writeJSON(w, http.StatusOK, usuarios)
}

func (h *UsersHandler) Obtener(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id inválido"})
		return
	}
	u, err := h.users.Get(r.Context(), id)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if u == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Usuario no encontrado"})
		return
	}
	writeJSON(w, http.StatusOK, u)
}

type actualizarUsuarioPayload struct {
	ID          int64  `json:"id"`
	Nombre      string `json:"nombre"`
	Apellido    string `json:"apellido"`
	DNI         string `json:"dni"`
	Telefono    string `json:"telefono"`
	Correo      string `json:"correo_electronico"`
	Institucion string `json:"institucion"`
	Clave       string `json:"clave"`
}

func (h *UsersHandler) Actualizar(w http.ResponseWriter, r *http.Request) {
	var payload actualizarUsuarioPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]interface{}{"success": false, "error": "bad request"})
		return
	}
	existing, err := h.users.Get(r.Context(), payload.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]interface{}{"success": false})
		return
	}
	existing.Nombre = strings.TrimSpace(payload.Nombre)
	existing.Apellido = strings.TrimSpace(payload.Apellido)
	existing.DNI = strings.TrimSpace(payload.DNI)
	existing.Telefono = strings.TrimSpace(payload.Telefono)
	existing.Correo = strings.ToLower(strings.TrimSpace(payload.Correo))
	existing.Institucion = strings.TrimSpace(payload.Institucion)
	// An empty clave keeps the current hash.
	if payload.Clave != "" {
		hash, hashErr := auth.HashClave(payload.Clave, h.cfg.Pepper)
		if hashErr != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
			return
		}
		existing.ClaveHash = hash
	}
	if err := h.users.Update(r.Context(), existing); err != nil {
		if h.logger != nil {
			h.logger.Errorf("actualizar usuario %d: %v", payload.ID, err)
		}
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{"success": false})
		return
	}
	h.audits.Log(r.Context(), existing.Correo, "usuarios.actualizado", "")
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *UsersHandler) Eliminar(w http.ResponseWriter, r *http.Request) {
	id, ok := urlParamInt64(r, "id")
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "id inválido"})
		return
	}
	if err := h.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrUsuarioNoEncontrado) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "Usuario no encontrado"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "No se pudo eliminar el usuario"})
		return
	}
	actor := ""
	if sr := sessionFrom(r); sr != nil {
		actor = sr.Correo
	}
	h.audits.Log(r.Context(), actor, "usuarios.eliminado", "")
	writeJSON(w, http.StatusOK, map[string]string{"mensaje": "Usuario eliminado correctamente"})
}
