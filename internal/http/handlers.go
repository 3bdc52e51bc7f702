package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"kanisa/internal/core"
	"kanisa/internal/export"
)

func (s *Server) handleContributions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createContribution(w, r)
	case http.MethodGet:
		s.listContributions(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleContributionByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/contributions/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusNotFound, "contribution not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		s.getContribution(w, r, id)
	case http.MethodPut:
		s.updateContribution(w, r, id)
	case http.MethodDelete:
		s.deleteContribution(w, r, id)
	default:
		w.Header().Set("Allow", "GET, PUT, DELETE")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) createContribution(w http.ResponseWriter, r *http.Request) {
	var req contributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	draft, err := req.toDraft()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := s.ledger.Create(r.Context(), draft)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toResponse(entry))
}

func (s *Server) getContribution(w http.ResponseWriter, r *http.Request, id string) {
	entry, err := s.ledger.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (s *Server) updateContribution(w http.ResponseWriter, r *http.Request, id string) {
	var req contributionPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	patch, err := req.toPatch()
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	entry, err := s.ledger.Update(r.Context(), id, patch)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toResponse(entry))
}

func (s *Server) deleteContribution(w http.ResponseWriter, r *http.Request, id string) {
	if err := s.ledger.Delete(r.Context(), id); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) listContributions(w http.ResponseWriter, r *http.Request) {
	page := parsePage(r)
	result, err := s.ledger.List(r.Context(), parseFilter(r), page)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	items := make([]contributionResponse, 0, len(result.Items))
	for _, entry := range result.Items {
		items = append(items, toResponse(entry))
	}

	writeJSON(w, http.StatusOK, listResponse{
		Items:         items,
		TotalMatching: result.TotalMatching,
		Page:          page.Index,
		PageSize:      page.Size,
	})
}

func (s *Server) handleTotal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	scopeID := strings.TrimSpace(r.URL.Query().Get("scope_id"))
	total, err := s.ledger.AggregateTotal(r.Context(), scopeID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, totalResponse{
		ScopeID:  scopeID,
		Currency: string(s.ledger.ReportingCurrency()),
		Total:    total.String(),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	formatParam := r.URL.Query().Get("format")
	if formatParam == "" {
		formatParam = string(export.FormatCSV)
	}
	format, err := export.ParseFormat(formatParam)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	entries, err := s.collectAll(r, parseFilter(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	data, err := export.Export(entries, format)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	filename := fmt.Sprintf("contributions-%s.%s", time.Now().UTC().Format("2006-01-02"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.ErrorContext(r.Context(), "Failed to write export", "error", err, "export_format", format)
	}
}

// collectAll walks the filtered ledger page by page so exports carry every
// matching entry, not just the first page.
func (s *Server) collectAll(r *http.Request, filter core.Filter) ([]core.Contribution, error) {
	var entries []core.Contribution
	page := core.Page{Index: 0, Size: core.MaxPageSize}

	for {
		result, err := s.ledger.List(r.Context(), filter, page)
		if err != nil {
			return nil, err
		}
		entries = append(entries, result.Items...)
		if len(entries) >= result.TotalMatching || len(result.Items) == 0 {
			return entries, nil
		}
		page.Index++
	}
}
