package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	pkghttp "github.com/kadirbarquet/usuarios-api/pkg/http"
)

// HealthChecker reports whether the database answers
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db      HealthChecker
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

func NewHealthHandler(db HealthChecker, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		db:      db,
		logger:  logger,
		now:     time.Now,
		timeout: 2 * time.Second,
	}
}

type BannerResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Root is the service banner
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	pkghttp.WriteJSON(w, http.StatusOK, BannerResponse{
		Message:   "API de usuarios funcionando",
		Timestamp: h.now().UTC().Format(time.RFC3339),
	})
}

// Health reports 503 while the database is unreachable
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	if err := h.db.HealthCheck(ctx); err != nil {
		h.logger.Warn("health check failed", slog.Any("error", err))
		pkghttp.WriteJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable", Database: "down"})
		return
	}
	pkghttp.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok", Database: "up"})
}
