package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/deepdhani/kmrl/internal/certificates"
	"github.com/deepdhani/kmrl/internal/export"
	"github.com/deepdhani/kmrl/internal/ingestion"
	"github.com/deepdhani/kmrl/internal/jobcards"
)

// Ingestor merges a tabular source into a store.
type Ingestor interface {
	UpsertFromFile(ctx context.Context, path string) ingestion.Result
}

// SeedPaths are the default import sources for the /import endpoints.
type SeedPaths struct {
	Certificates string
	JobCards     string
}

// Handler routes the maintenance-operations REST API. Core results carry
// their own error fields; the handler only maps them onto transport status
// codes.
type Handler struct {
	certs      *certificates.Service
	jobs       *jobcards.Service
	certIngest Ingestor
	jobIngest  Ingestor
	seeds      SeedPaths
}

// NewHandler creates the API handler.
func NewHandler(
	certs *certificates.Service,
	jobs *jobcards.Service,
	certIngest Ingestor,
	jobIngest Ingestor,
	seeds SeedPaths,
) *Handler {
	return &Handler{
		certs:      certs,
		jobs:       jobs,
		certIngest: certIngest,
		jobIngest:  jobIngest,
		seeds:      seeds,
	}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/expiring", h.handleExpiring)
	mux.HandleFunc("GET /api/expiring/export", h.handleExpiringExport)
	mux.HandleFunc("GET /api/total", h.handleTotal)

	mux.HandleFunc("POST /api/certs/import", h.handleCertsImport)
	mux.HandleFunc("GET /api/certs", h.handleCertsList)
	mux.HandleFunc("POST /api/certs", h.handleCertsAdd)
	mux.HandleFunc("PATCH /api/certs/{id}", h.handleCertsUpdate)
	mux.HandleFunc("DELETE /api/certs/{id}", h.handleCertsDelete)

	mux.HandleFunc("POST /api/jobcards/import", h.handleJobCardsImport)
	mux.HandleFunc("GET /api/jobcards", h.handleJobCardsList)
	mux.HandleFunc("POST /api/jobcards", h.handleJobCardsAdd)
	mux.HandleFunc("PATCH /api/jobcards/{id}", h.handleJobCardsUpdate)
	mux.HandleFunc("DELETE /api/jobcards/{id}", h.handleJobCardsDelete)
	mux.HandleFunc("GET /api/jobstatus", h.handleJobStatus)

	mux.HandleFunc("GET /healthz", h.handleHealth)

	return mux
}

func (h *Handler) handleExpiring(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	rows, err := h.certs.ExpiringWithin(r.Context(), days, h.seeds.Certificates)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) handleExpiringExport(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	rows, err := h.certs.ExpiringWithin(r.Context(), days, h.seeds.Certificates)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	workbook, err := export.ExpiringWorkbook(rows)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	defer workbook.Close()

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="expiring_certificates.xlsx"`)
	_ = workbook.Write(w)
}

func (h *Handler) handleTotal(w http.ResponseWriter, r *http.Request) {
	result, err := h.certs.TotalActive(r.Context(), h.seeds.Certificates)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type importPayload struct {
	Path string `json:"path"`
}

func (h *Handler) handleCertsImport(w http.ResponseWriter, r *http.Request) {
	h.handleImport(w, r, h.certIngest, h.seeds.Certificates)
}

func (h *Handler) handleJobCardsImport(w http.ResponseWriter, r *http.Request) {
	h.handleImport(w, r, h.jobIngest, h.seeds.JobCards)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request, ingest Ingestor, defaultPath string) {
	defer r.Body.Close()

	path := defaultPath
	var payload importPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err == nil {
		if p := strings.TrimSpace(payload.Path); p != "" {
			path = p
		}
	}

	result := ingest.UpsertFromFile(r.Context(), path)
	status := http.StatusOK
	if result.Error != "" {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, result)
}

func (h *Handler) handleCertsList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 200)
	offset := queryInt(r, "offset", 0)
	result, err := h.certs.List(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleCertsAdd(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req certificates.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.certs.Add(r.Context(), req))
}

func (h *Handler) handleCertsUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch certificates.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.certs.Update(r.Context(), id, patch))
}

func (h *Handler) handleCertsDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.certs.Delete(r.Context(), id))
}

func (h *Handler) handleJobCardsList(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 1000)
	offset := queryInt(r, "offset", 0)
	result, err := h.jobs.List(r.Context(), limit, offset)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleJobCardsAdd(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	var req jobcards.AddRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.jobs.Add(r.Context(), req))
}

func (h *Handler) handleJobCardsUpdate(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var patch jobcards.Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	writeJSON(w, http.StatusOK, h.jobs.Update(r.Context(), id, patch))
}

func (h *Handler) handleJobCardsDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.jobs.Delete(r.Context(), id))
}

func (h *Handler) handleJobStatus(w http.ResponseWriter, r *http.Request) {
	trainID := strings.TrimSpace(r.URL.Query().Get("train_id"))
	summary, err := h.jobs.SummaryForTrain(r.Context(), trainID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
