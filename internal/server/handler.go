// Package server exposes lookups and the lookup history as a JSON HTTP API for the extension UI.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/at-ishikawa/popdict/internal/history"
	"github.com/at-ishikawa/popdict/internal/lookup"
)

type Lookuper interface {
	Lookup(ctx context.Context, text, targetLanguage string) (lookup.Result, error)
}

type Handler struct {
	lookuper Lookuper
	history  *history.Store
}

func NewHandler(lookuper Lookuper, store *history.Store) *Handler {
	return &Handler{
		lookuper: lookuper,
		history:  store,
	}
}

// Routes registers every endpoint on a new mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/lookup", h.lookup)
	mux.HandleFunc("GET /api/history", h.searchHistory)
	mux.HandleFunc("DELETE /api/history", h.clearHistory)
	mux.HandleFunc("GET /api/history/usage", h.usage)
	mux.HandleFunc("POST /api/history/delete", h.removeEntries)
	mux.HandleFunc("GET /api/history/{id}", h.getEntry)
	mux.HandleFunc("DELETE /api/history/{id}", h.removeEntry)
	mux.HandleFunc("POST /api/history/{id}/pin", h.togglePin)
	return mux
}

type LookupRequest struct {
	Text           string `json:"text"`
	TargetLanguage string `json:"targetLanguage"`
}

type LookupResponse struct {
	lookup.Result
	DisplayText *history.DisplayText `json:"displayText,omitempty"`
}

// EntryResponse is an entry with the label the UI shows for it.
type EntryResponse struct {
	history.Entry
	DisplayText history.DisplayText `json:"displayText"`
}

type HistoryResponse struct {
	Entries []EntryResponse `json:"entries"`
}

type UsageResponse struct {
	history.Usage
	MaxEntries int `json:"maxEntries"`
}

type RemoveEntriesRequest struct {
	IDs []string `json:"ids"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func newEntryResponse(e history.Entry) EntryResponse {
	return EntryResponse{Entry: e, DisplayText: history.DisplayTextOf(e)}
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	var req LookupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with text")
		return
	}

	result, err := h.lookuper.Lookup(r.Context(), req.Text, req.TargetLanguage)
	if err != nil {
		if errors.Is(err, lookup.ErrEmptyText) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		slog.Default().Error("lookup failed", "text", req.Text, "error", err)
		writeError(w, http.StatusBadGateway, "translation failed")
		return
	}

	resp := LookupResponse{Result: result}
	if result.Saved {
		dt := history.DisplayTextOf(result.Entry)
		resp.DisplayText = &dt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) searchHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.history.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	resp := HistoryResponse{Entries: make([]EntryResponse, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, newEntryResponse(e))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	entry, ok, err := h.history.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, history.ErrEntryNotFound.Error())
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

func (h *Handler) removeEntry(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Remove(r.Context(), r.PathValue("id")); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeEntries(w http.ResponseWriter, r *http.Request) {
	var req RemoveEntriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "request body must be a JSON object with ids")
		return
	}
	if err := h.history.RemoveMany(r.Context(), req.IDs); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) clearHistory(w http.ResponseWriter, r *http.Request) {
	if err := h.history.Clear(r.Context()); err != nil {
		writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) togglePin(w http.ResponseWriter, r *http.Request) {
	entry, err := h.history.TogglePin(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEntryResponse(entry))
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	usage, err := h.history.Usage(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, UsageResponse{Usage: usage, MaxEntries: h.history.MaxEntries()})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, history.ErrEntryNotFound) {
		writeError(w, http.StatusNotFound, history.ErrEntryNotFound.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, "history storage is unavailable")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Default().Warn("failed to write response", "error", err)
	}
}
