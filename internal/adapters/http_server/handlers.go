package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"stayscore/internal/app"
	"stayscore/internal/domain"
)

type Handlers struct{ Agg *app.AggregationService }

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/v1/properties/{id}/summary", h.getSummary)
	s.mux.Get("/v1/properties/{id}/highlights", h.getHighlights)
	s.mux.Get("/v1/properties/{id}/trend", h.getTrend)
	s.mux.Post("/v1/properties/{id}/indicators", h.computeIndicator)
	s.mux.Get("/v1/indicators/table", h.getTable)
	s.mux.Get("/v1/indicators/platforms", h.getPlatforms)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	// If client already has this version, short-circuit.
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag) // include ETag on 304
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write response body")
	}
}

func propertyID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// parseWindow reads optional from/to query params (RFC3339 or YYYY-MM-DD).
func parseWindow(r *http.Request) (domain.Window, error) {
	var w domain.Window
	parse := func(s string) (time.Time, error) {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t, nil
		}
		return time.Parse("2006-01-02", s)
	}
	if s := r.URL.Query().Get("from"); s != "" {
		t, err := parse(s)
		if err != nil {
			return w, err
		}
		w.Start = &t
	}
	if s := r.URL.Query().Get("to"); s != "" {
		t, err := parse(s)
		if err != nil {
			return w, err
		}
		w.End = &t
	}
	return w, nil
}

func (h *Handlers) getSummary(w http.ResponseWriter, r *http.Request) {
	id, err := propertyID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	win, err := parseWindow(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "from/to must be RFC3339 or YYYY-MM-DD")
		return
	}
	out, err := h.Agg.Summary(r.Context(), id, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "summary unavailable")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getHighlights(w http.ResponseWriter, r *http.Request) {
	id, err := propertyID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	win, err := parseWindow(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "from/to must be RFC3339 or YYYY-MM-DD")
		return
	}
	out, err := h.Agg.Highlights(r.Context(), id, win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "highlights unavailable")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getTrend(w http.ResponseWriter, r *http.Request) {
	id, err := propertyID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	months := 12
	if ms := r.URL.Query().Get("months"); ms != "" {
		m, err := strconv.Atoi(ms)
		if err != nil || m <= 0 || m > 60 {
			writeProblem(w, http.StatusBadRequest, "Invalid months", "months must be an integer between 1 and 60")
			return
		}
		months = m
	}
	out, err := h.Agg.Trend(r.Context(), id, months)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "trend unavailable")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) computeIndicator(w http.ResponseWriter, r *http.Request) {
	id, err := propertyID(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a UUID")
		return
	}
	win, err := parseWindow(r)
	if err != nil || win.Start == nil || win.End == nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "from and to are both required")
		return
	}
	out, err := h.Agg.ComputeIndicator(r.Context(), id, *win.Start, *win.End)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "property not found")
			return
		}
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "indicator computation failed")
		return
	}
	writeJSON(w, r, out)
}

// getTable serves the comparison table. Criterion floors come in as
// min_<code> query params, e.g. ?min_sustainability=3.5
func (h *Handlers) getTable(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "from/to must be RFC3339 or YYYY-MM-DD")
		return
	}
	f := app.TableFilter{Window: win}
	for key, vals := range r.URL.Query() {
		if !strings.HasPrefix(key, "min_") || len(vals) == 0 {
			continue
		}
		v, err := strconv.ParseFloat(vals[0], 64)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid filter", key+" must be a number")
			return
		}
		if f.MinCriteria == nil {
			f.MinCriteria = map[string]float64{}
		}
		f.MinCriteria[strings.ToUpper(strings.TrimPrefix(key, "min_"))] = v
	}
	out, err := h.Agg.Table(r.Context(), f)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "table unavailable")
		return
	}
	writeJSON(w, r, out)
}

func (h *Handlers) getPlatforms(w http.ResponseWriter, r *http.Request) {
	win, err := parseWindow(r)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid window", "from/to must be RFC3339 or YYYY-MM-DD")
		return
	}
	out, err := h.Agg.PlatformDistribution(r.Context(), win)
	if err != nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Error", "platform distribution unavailable")
		return
	}
	writeJSON(w, r, out)
}
