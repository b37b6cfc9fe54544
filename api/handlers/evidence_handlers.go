package handlers

import (
	"encoding/json"
	"net/http"

	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"
)

type EvidenceHandler struct {
	incidents store.IncidentsStore
	users     store.UsersStore
	logger    *utils.Logger
}

func NewEvidenceHandler(incidents store.IncidentsStore, users store.UsersStore, logger *utils.Logger) *EvidenceHandler {
	return &EvidenceHandler{incidents: incidents, users: users, logger: logger}
}

func (h *EvidenceHandler) Instituciones(w http.ResponseWriter, r *http.Request) {
	instituciones, err := h.users.Instituciones(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if instituciones == nil {
		instituciones = []string{}
	}
	writeJSON(w, http.StatusOK, instituciones)
}

// Evidencias lists academic records for one institution, or all when
// institucion is empty.
func (h *EvidenceHandler) Evidencias(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Institucion string `json:"institucion"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "bad request"})
		return
	}
	registros, err := h.incidents.PorInstitucion(r.Context(), payload.Institucion)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if registros == nil {
		registros = []store.EvidenciaAcademica{}
	}
	writeJSON(w, http.StatusOK, registros)
}
