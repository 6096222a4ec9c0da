package health

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/careconnect/portal-api/internal/api"
)

// HandlerImpl reports liveness plus database reachability.
type HandlerImpl struct {
	logger *slog.Logger
	pgpool *pgxpool.Pool
	mode   string
}

func NewHandlerImpl(pgpool *pgxpool.Pool, mode string, logger *slog.Logger) *HandlerImpl {
	return &HandlerImpl{
		logger: logger,
		pgpool: pgpool,
		mode:   mode,
	}
}

type status struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	Environment string `json:"environment"`
	Timestamp   string `json:"timestamp"`
}

func (h *HandlerImpl) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := status{
		Status:      "ok",
		Database:    "ok",
		Environment: h.mode,
		Timestamp:   time.Now().UTC().Format(time.RFC3339),
	}

	httpStatus := http.StatusOK
	if err := h.pgpool.Ping(ctx); err != nil {
		h.logger.WarnContext(ctx, "Health check: database unreachable", slog.Any("error", err))
		s.Status = "degraded"
		s.Database = "unreachable"
		httpStatus = http.StatusServiceUnavailable
	}

	api.WriteJSONResponse(w, r, httpStatus, api.Response{
		Success: httpStatus == http.StatusOK,
		Message: "CareConnect portal API",
		Data:    s,
	})
}
