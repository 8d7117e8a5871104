// Package api wires the HTTP surface: the landing page that records a
// visit and renders the accumulated data, plus the locate/users helpers.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/visitmap/visitmap/internal/config"
	"github.com/visitmap/visitmap/internal/events"
	"github.com/visitmap/visitmap/internal/geo"
	mylog "github.com/visitmap/visitmap/internal/logger"
	"github.com/visitmap/visitmap/internal/model"
	"github.com/visitmap/visitmap/internal/observability"
	"github.com/visitmap/visitmap/internal/render"
	"github.com/visitmap/visitmap/internal/rendercache"
)

// Store is the persistence surface the handlers need.
type Store interface {
	RecordVisit(ctx context.Context, loc model.Location) (newCoordinate bool, err error)
	Counter(ctx context.Context) (model.ResultSet, error)
	Coordinates(ctx context.Context) (model.ResultSet, error)
	Users(ctx context.Context) (model.ResultSet, error)
	AddUser(ctx context.Context, email string) error
}

// Publisher is the optional visit-event sink.
type Publisher interface {
	Publish(ev events.Event)
}

type Handlers struct {
	Cfg    config.Config
	Logger *slog.Logger
	Store  Store
	// ConfigErr holds the fatal configuration error (missing secret);
	// when set, every database-backed endpoint answers 500 before any
	// remote call.
	ConfigErr error
	Cache     *rendercache.Cache
	Events    Publisher
}

// Index records the visit and renders the map canvas plus scoreboard.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	if h.ConfigErr != nil {
		http.Error(w, h.ConfigErr.Error(), http.StatusInternalServerError)
		return
	}

	loc := geo.FromRequest(r)
	ctx := mylog.WithColo(r.Context(), loc.Airport)

	body, err := h.serve(ctx, loc)
	if err != nil {
		h.Logger.ErrorContext(ctx, "serve failed", "err", err)
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		// Earlier deployments answered 200 with an "Error: ..." body.
		// The corrected status is the default; LEGACY_ERROR_STATUS
		// restores the old behavior.
		if !h.Cfg.LegacyErrorStatus {
			w.WriteHeader(http.StatusInternalServerError)
		}
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

func (h *Handlers) serve(ctx context.Context, loc model.Location) (string, error) {
	newCoord, err := h.Store.RecordVisit(ctx, loc)
	if err != nil {
		return "", err
	}

	if h.Events != nil {
		h.Events.Publish(events.FromLocation(loc, h.Cfg.Events.H3Res))
	}
	if newCoord && h.Cache != nil {
		h.Cache.Invalidate(ctx)
	}

	scoreboardRS, err := h.Store.Counter(ctx)
	if err != nil {
		return "", err
	}
	scoreboard, err := render.HTMLTable(scoreboardRS)
	if err != nil {
		return "", err
	}

	canvas, err := h.canvas(ctx)
	if err != nil {
		return "", err
	}

	return render.Page(canvas, scoreboard), nil
}

func (h *Handlers) canvas(ctx context.Context) (string, error) {
	if h.Cache != nil {
		if cached, ok := h.Cache.Get(ctx); ok {
			observability.IncCanvasCacheHit()
			return cached, nil
		}
		observability.IncCanvasCacheMiss()
	}

	rs, err := h.Store.Coordinates(ctx)
	if err != nil {
		return "", err
	}
	canvas, err := render.MapCanvas(rs)
	if err != nil {
		return "", err
	}
	if h.Cache != nil {
		h.Cache.Set(ctx, canvas)
	}
	return canvas, nil
}

// WorkerVersion reports the deployment version string.
func (h *Handlers) WorkerVersion(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(h.Cfg.WorkerVersion))
}

// Locate echoes the extracted geolocation facts without persisting.
func (h *Handlers) Locate(w http.ResponseWriter, r *http.Request) {
	loc := geo.FromRequest(r)
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprintf(w, "%s;%s;%s;%v;%v", loc.Airport, loc.Country, loc.City, loc.Lat, loc.Lon)
}

// Users lists the user table as {"columns": [...], "rows": [...]}.
func (h *Handlers) Users(w http.ResponseWriter, r *http.Request) {
	if h.ConfigErr != nil {
		http.Error(w, h.ConfigErr.Error(), http.StatusInternalServerError)
		return
	}

	rs, err := h.Store.Users(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	doc, err := render.JSONDocument(rs)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, doc)
}

// AddUser inserts one row into the user table. A missing email query
// parameter is a 400 and performs no insert.
func (h *Handlers) AddUser(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		http.Error(w, "No email", http.StatusBadRequest)
		return
	}

	if h.ConfigErr != nil {
		http.Error(w, h.ConfigErr.Error(), http.StatusInternalServerError)
		return
	}

	if err := h.Store.AddUser(r.Context(), email); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]string{"result": "Added"})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
