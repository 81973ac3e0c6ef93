// Package router configures the plotviz HTTP API.
//
// Routes configured:
//   - GET /health - Service status and number of stored plots
//   - POST /plots - Render a JSON series to PNG and store it
//   - GET /plots/{id} - Download a stored PNG
//   - GET /plots/{id}/meta - Metadata of a stored plot
//   - GET /healthz - Liveness probe (plain "OK")
//   - GET /readyz - Readiness probe, fails while blob storage is unusable
//   - GET /metrics - Prometheus metrics endpoint
//
// Any other path answers 404 with a JSON error body.
package router

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/HatiCode/plotviz/cmd/plotviz/metrics"
	"github.com/HatiCode/plotviz/pkg/httpx"
	"github.com/HatiCode/plotviz/pkg/plotstore"
	"github.com/HatiCode/plotviz/pkg/render"
)

const (
	// ServiceName is reported by the health endpoint.
	ServiceName = "data-plot-visualizer"

	maxBodyBytes = 4 << 20
	readyTimeout = 2 * time.Second
)

// Plots is the subset of *plotstore.Store the handlers need.
type Plots interface {
	Save(ctx context.Context, png []byte, meta plotstore.Metadata) (plotstore.Record, error)
	Load(ctx context.Context, id string) ([]byte, error)
	Get(id string) (plotstore.Record, error)
	Exists(ctx context.Context, id string) (bool, error)
	Count() int
	Ping(ctx context.Context) error
}

// Renderer is implemented by *render.Renderer.
type Renderer interface {
	Render(s render.Series, labels render.Labels) ([]byte, error)
	MaxPoints() int
}

type HealthResponse struct {
	Status      string `json:"status"`
	Service     string `json:"service"`
	StoredPlots int    `json:"stored_plots"`
}

type CreatedResponse struct {
	PlotID     string `json:"plot_id"`
	CreatedAt  string `json:"created_at"`
	PointCount int    `json:"point_count"`
}

type MetaResponse struct {
	PlotID     string `json:"plot_id"`
	CreatedAt  string `json:"created_at"`
	PointCount int    `json:"point_count"`
	Available  bool   `json:"available"`
}

type handlers struct {
	plots    Plots
	renderer Renderer
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// SetupRoutes configures HTTP endpoints for plotviz.
func SetupRoutes(plots Plots, renderer Renderer, m *metrics.Metrics, logger *slog.Logger) *http.ServeMux {
	h := &handlers{plots: plots, renderer: renderer, metrics: m, logger: logger}
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.health)
	mux.HandleFunc("POST /plots", h.createPlot)
	mux.HandleFunc("GET /plots/{id}", h.downloadPlot)
	mux.HandleFunc("GET /plots/{id}/meta", h.plotMeta)

	mux.Handle("GET /healthz", httpx.HealthHandler())
	mux.Handle("GET /readyz", httpx.HealthHandlerWithCheck(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), readyTimeout)
		defer cancel()
		return plots.Ping(ctx)
	}))

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteErrorMessage(w, http.StatusNotFound, "endpoint not found")
	})

	return mux
}

// WithPlotRateLimit throttles POST /plots on limiter and passes every other
// request straight to next.
func WithPlotRateLimit(next http.Handler, limiter *rate.Limiter, m *metrics.Metrics) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("POST /plots", httpx.RateLimitMiddleware(limiter, m.RecordRateLimited)(next))
	mux.Handle("/", next)
	return mux
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:      "ok",
		Service:     ServiceName,
		StoredPlots: h.plots.Count(),
	})
}

func (h *handlers) createPlot(w http.ResponseWriter, r *http.Request) {
	if !isJSON(r) {
		h.rejectMsg(w, reasonNotJSON, "expected json body")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.metrics.RecordValidationError("too_large")
			httpx.WriteErrorMessage(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		h.rejectMsg(w, reasonMalformed, "request body must be a json object")
		return
	}

	req, err := decodePlotRequest(body, h.renderer.MaxPoints())
	if err != nil {
		h.reject(w, err)
		return
	}

	start := time.Now()
	png, err := h.renderer.Render(req.Series, req.Labels)
	h.metrics.ObserveRender(time.Since(start).Seconds())
	if err != nil {
		var verr *render.ValidationError
		if errors.As(err, &verr) {
			h.reject(w, err)
			return
		}
		h.logger.Error("failed to render plot", "points", req.Series.Len(), "error", err)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "render failed")
		return
	}

	rec, err := h.plots.Save(r.Context(), png, plotstore.Metadata{PointCount: req.Series.Len()})
	if err != nil {
		h.metrics.RecordStorageError("save")
		h.logger.Error("failed to store plot", "error", err)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "failed to store plot")
		return
	}
	h.metrics.RecordGenerated(h.plots.Count())

	h.logger.Info("plot generated",
		"plot_id", rec.ID,
		"points", rec.PointCount,
		"bytes", len(png),
	)

	httpx.WriteJSON(w, http.StatusCreated, CreatedResponse{
		PlotID:     rec.ID,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		PointCount: rec.PointCount,
	})
}

func (h *handlers) downloadPlot(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	data, err := h.plots.Load(r.Context(), id)
	if errors.Is(err, plotstore.ErrNotFound) {
		h.metrics.RecordDownload("not_found")
		httpx.WriteErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		h.metrics.RecordDownload("error")
		h.metrics.RecordStorageError("load")
		h.logger.Error("failed to load plot", "plot_id", id, "error", err)
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "plot file is missing or unavailable")
		return
	}
	h.metrics.RecordDownload("ok")

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "plot-"+id+".png"))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Debug("client went away during download", "plot_id", id, "error", err)
	}
}

func (h *handlers) plotMeta(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	rec, err := h.plots.Get(id)
	if errors.Is(err, plotstore.ErrNotFound) {
		httpx.WriteErrorMessage(w, http.StatusNotFound, "not found")
		return
	}
	if err != nil {
		httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
		return
	}

	available, err := h.plots.Exists(r.Context(), id)
	if err != nil {
		h.metrics.RecordStorageError("exists")
		h.logger.Warn("failed to check plot blob", "plot_id", id, "error", err)
	}

	httpx.WriteJSON(w, http.StatusOK, MetaResponse{
		PlotID:     rec.ID,
		CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
		PointCount: rec.PointCount,
		Available:  available,
	})
}

func (h *handlers) reject(w http.ResponseWriter, err error) {
	var verr *render.ValidationError
	if errors.As(err, &verr) {
		h.rejectMsg(w, verr.Reason, verr.Msg)
		return
	}
	h.rejectMsg(w, reasonMalformed, err.Error())
}

func (h *handlers) rejectMsg(w http.ResponseWriter, reason, msg string) {
	h.metrics.RecordValidationError(reason)
	httpx.WriteErrorMessage(w, http.StatusBadRequest, msg)
}
