package controllers

import (
	"bizcard/utils"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

// OpsController служебные эндпоинты на отдельном порту: здоровье и метрики
type OpsController struct {
	db      Pinger
	metrics *utils.Metrics
	log     *utils.Logger
}

func NewOpsController(db Pinger, metrics *utils.Metrics, log *utils.Logger) *OpsController {
	return &OpsController{db: db, metrics: metrics, log: log.With("controller", "ops")}
}

// Router собирает mux роутер служебного порта
func (oc *OpsController) Router() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", oc.Health).Methods(http.MethodGet)
	router.HandleFunc("/metrics", oc.Metrics).Methods(http.MethodGet)
	return router
}

// Health отвечает 200, если база доступна, иначе 503
func (oc *OpsController) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := oc.db.Ping(ctx); err != nil {
		oc.log.Warn("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Metrics отдает снимок метрик процесса
func (oc *OpsController) Metrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, oc.metrics.GetMetricsSnapshot())
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
