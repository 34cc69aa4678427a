// Package server exposes the correlation pipeline over HTTP.
package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/threatbridge/threatbridge/internal/alerts"
	"github.com/threatbridge/threatbridge/internal/correlate"
	"github.com/threatbridge/threatbridge/internal/httputil"
	"github.com/threatbridge/threatbridge/internal/logging"
	"github.com/threatbridge/threatbridge/internal/metrics"
	"github.com/threatbridge/threatbridge/internal/ontology"
	"github.com/threatbridge/threatbridge/internal/retrieval"
)

// maxBodyBytes caps alert payload bodies at 10 MiB.
const maxBodyBytes = 10 << 20

// Handlers holds the pipeline components behind the API routes.
type Handlers struct {
	loader *alerts.Loader
	engine *correlate.Engine
	index  *retrieval.Index
	topK   int
	log    *logging.Logger
}

// NewHandlers wires the pipeline into an API handler set. A non-positive
// topK falls back to the retrieval default.
func NewHandlers(loader *alerts.Loader, engine *correlate.Engine, index *retrieval.Index, topK int, log *logging.Logger) *Handlers {
	if topK <= 0 {
		topK = retrieval.DefaultTopK
	}
	if log == nil {
		log = logging.Default()
	}
	return &Handlers{
		loader: loader,
		engine: engine,
		index:  index,
		topK:   topK,
		log:    log,
	}
}

// HealthCheck handles GET /healthz.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type extractResponse struct {
	Kind         string            `json:"kind"`
	Records      int               `json:"records"`
	TechniqueIDs []string          `json:"technique_ids"`
	Alerts       []alerts.Metadata `json:"alerts"`
}

// Extract handles POST /api/v1/extract: parse an alert payload and return
// the normalized technique identifiers plus per-alert metadata.
func (h *Handlers) Extract(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	batch, ok := h.readBatch(w, r)
	if !ok {
		return
	}

	ids := batchTechniqueIDs(batch)
	httputil.WriteJSON(w, http.StatusOK, extractResponse{
		Kind:         batch.Kind.String(),
		Records:      len(batch.Records()),
		TechniqueIDs: ids,
		Alerts:       alerts.ExtractAllMetadata(batch),
	})
}

type actionView struct {
	IRI            string `json:"iri"`
	Label          string `json:"label"`
	Technique      string `json:"technique,omitempty"`
	TechniqueLabel string `json:"technique_label,omitempty"`
}

type techniqueView struct {
	IRI   string `json:"iri"`
	Label string `json:"label"`
}

type incidentView struct {
	IRI        string          `json:"iri"`
	Label      string          `json:"label"`
	Actions    []actionView    `json:"actions"`
	Techniques []techniqueView `json:"techniques"`
}

type correlateResponse struct {
	TechniqueIDs []string           `json:"technique_ids"`
	Path         correlate.Path     `json:"path"`
	Incidents    []incidentView     `json:"incidents"`
	Alerts       []alerts.Metadata  `json:"alerts,omitempty"`
	Context      []retrieval.Result `json:"context,omitempty"`
}

// Correlate handles POST /api/v1/correlate: parse an alert payload, extract
// its technique identifiers, match them against the knowledge graph and
// return ranked incidents with supporting context passages.
func (h *Handlers) Correlate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	batch, ok := h.readBatch(w, r)
	if !ok {
		return
	}

	ids := batchTechniqueIDs(batch)
	meta := alerts.ExtractAllMetadata(batch)

	res, err := h.engine.IncidentsForTechniques(r.Context(), ids)
	if err != nil {
		h.log.ErrorContext(r.Context(), "correlation failed", "error", err)
		httputil.WriteError(w, http.StatusInternalServerError, "correlation failed")
		return
	}

	ranked := h.engine.RankIncidents(r.Context(), res.Incidents)
	resp := correlateResponse{
		TechniqueIDs: ids,
		Path:         res.Path,
		Incidents:    make([]incidentView, 0, len(ranked)),
		Alerts:       meta,
	}
	for _, inc := range ranked {
		resp.Incidents = append(resp.Incidents, h.incidentView(r, inc))
	}
	if h.index != nil && len(ids) > 0 {
		resp.Context = h.index.Search(contextQuery(ids, ranked), h.topK)
	}

	h.log.InfoContext(r.Context(), "correlation request served",
		"technique_ids", len(ids), "incidents", len(ranked), "path", res.Path)
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/v1/search: rank corpus passages against a free
// text query.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.WriteError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if h.index == nil {
		httputil.WriteError(w, http.StatusServiceUnavailable, "no retrieval corpus configured")
		return
	}
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		httputil.WriteError(w, http.StatusBadRequest, "missing query parameter 'q'")
		return
	}

	topK := h.topK
	if k := r.URL.Query().Get("k"); k != "" {
		n, err := strconv.Atoi(k)
		if err != nil {
			httputil.WriteError(w, http.StatusBadRequest, "parameter 'k' must be an integer")
			return
		}
		topK = n
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"query":   query,
		"results": h.index.Search(query, topK),
	})
}

// readBatch reads and parses the request body into an alert batch.
func (h *Handlers) readBatch(w http.ResponseWriter, r *http.Request) (alerts.Batch, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		httputil.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return alerts.Batch{}, false
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		httputil.WriteError(w, http.StatusBadRequest, "empty request body")
		return alerts.Batch{}, false
	}

	batch := h.loader.LoadBytes(body)
	metrics.BatchesLoaded.WithLabelValues(batch.Kind.String()).Inc()
	return batch, true
}

// incidentView enriches a ranked incident with display labels and the
// action-to-technique relation.
func (h *Handlers) incidentView(r *http.Request, inc correlate.RankedIncident) incidentView {
	view := incidentView{
		IRI:        string(inc.IRI),
		Label:      inc.Label,
		Actions:    make([]actionView, 0, len(inc.Actions)),
		Techniques: make([]techniqueView, 0, len(inc.Techniques)),
	}

	pairs := h.engine.ActionTechniquePairs(r.Context(), inc.Actions)
	byAction := make(map[ontology.IRI]correlate.Pair, len(pairs))
	for _, p := range pairs {
		if _, dup := byAction[p.Action]; !dup {
			byAction[p.Action] = p
		}
	}
	for _, a := range inc.Actions {
		av := actionView{IRI: string(a), Label: h.engine.Label(a)}
		if p, ok := byAction[a]; ok {
			av.Technique = string(p.Technique)
			av.TechniqueLabel = h.engine.Label(p.Technique)
		}
		view.Actions = append(view.Actions, av)
	}
	for _, t := range inc.Techniques {
		view.Techniques = append(view.Techniques, techniqueView{
			IRI:   string(t),
			Label: h.engine.Label(t),
		})
	}
	return view
}

// batchTechniqueIDs extracts the batch's normalized identifiers and records
// the extraction metric.
func batchTechniqueIDs(batch alerts.Batch) []string {
	ids := alerts.ExtractTechniqueIDs(batch)
	metrics.IdentifiersExtracted.Add(float64(len(ids)))
	return ids
}

// contextQuery builds the retrieval query from the matched identifiers and
// incident labels.
func contextQuery(ids []string, ranked []correlate.RankedIncident) string {
	parts := make([]string, 0, len(ids)+len(ranked))
	parts = append(parts, ids...)
	for _, inc := range ranked {
		parts = append(parts, inc.Label)
	}
	return strings.Join(parts, " ")
}
