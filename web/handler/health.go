package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/screwyprof/distributor/pkg/httpkit"
	"github.com/screwyprof/distributor/web/api"
)

const HealthRoute = http.MethodGet + " " + "/healthz"

const healthTimeout = 2 * time.Second

var ErrDatabaseUnavailable = errors.New("ledger database unavailable")

// Pinger is satisfied by *pgxpool.Pool
type Pinger interface {
	Ping(ctx context.Context) error
}

type Health struct {
	db Pinger
}

func NewHealth(db Pinger) *Health {
	return &Health{db: db}
}

func (h *Health) AddRoutes(m *http.ServeMux) {
	m.Handle(HealthRoute, httpkit.HandlerFunc(h.Check))
}

func (h *Health) Check(_ http.ResponseWriter, r *http.Request) http.HandlerFunc {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		return httpkit.JsonError(api.ServiceUnavailable(fmt.Errorf("%w: %w", ErrDatabaseUnavailable, err)))
	}
	return httpkit.JSON(api.HealthResponse{Status: "ok"})
}
