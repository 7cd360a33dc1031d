package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping calls f.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports dependency health.
type HealthHandler struct {
	checks   map[string]Pinger
	optional map[string]bool
	timeout  time.Duration
}

// NewHealthHandler creates a health handler. Failing optional checks are reported but do not fail the check.
func NewHealthHandler(timeout time.Duration) *HealthHandler {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &HealthHandler{
		checks:   make(map[string]Pinger),
		optional: make(map[string]bool),
		timeout:  timeout,
	}
}

// Require adds a check that must pass.
func (h *HealthHandler) Require(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	return h
}

// Optional adds a check whose failure only degrades the report.
func (h *HealthHandler) Optional(name string, p Pinger) *HealthHandler {
	h.checks[name] = p
	h.optional[name] = true
	return h
}

// HealthResponse is the body of /healthz.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Health godoc
// @Summary Health check
// @Tags health
// @Produce json
// @Success 200 {object} HealthResponse
// @Failure 503 {object} HealthResponse
// @Router /healthz [get]
func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	res := HealthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	code := http.StatusOK
	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			res.Checks[name] = err.Error()
			if h.optional[name] {
				if res.Status == "ok" {
					res.Status = "degraded"
				}
				continue
			}
			res.Status = "unavailable"
			code = http.StatusServiceUnavailable
			continue
		}
		res.Checks[name] = "ok"
	}
	return c.JSON(code, res)
}
