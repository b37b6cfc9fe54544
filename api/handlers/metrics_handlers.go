package handlers

import (
	"net/http"

	"ugel-incidentes/core/store"
	"ugel-incidentes/core/utils"
)

type MetricsHandler struct {
	metrics store.MetricsStore
	logger  *utils.Logger
}

func NewMetricsHandler(metrics store.MetricsStore, logger *utils.Logger) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, logger: logger}
}

// Dashboard serves the global metrics for the admin view.
func (h *MetricsHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	m, err := h.metrics.Globales(r.Context())
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("métricas globales: %v", err)
		}
		// The dashboard renders with zeroed counters rather than
		// failing outright.
		m = &store.Metricas{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mensaje":  readFlash(w, r),
		"metricas": m,
	})
}

// DashboardColegios serves metrics scoped to the session's user.
func (h *MetricsHandler) DashboardColegios(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	if sr == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	m, err := h.metrics.PorUsuario(r.Context(), sr.UsuarioID)
	if err != nil {
		if h.logger != nil {
			h.logger.Errorf("métricas de usuario %d: %v", sr.UsuarioID, err)
		}
		m = &store.Metricas{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"mensaje":     readFlash(w, r),
		"metricas":    m,
		"institucion": sr.Institucion,
	})
}

func (h *MetricsHandler) Metricas(w http.ResponseWriter, r *http.Request) {
	m, err := h.metrics.Globales(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *MetricsHandler) MetricasUsuario(w http.ResponseWriter, r *http.Request) {
	sr := sessionFrom(r)
	if sr == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	m, err := h.metrics.PorUsuario(r.Context(), sr.UsuarioID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, m)
}
