package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kanisa/internal/core"
)

const paymentDateLayout = "2006-01-02"

type contributionRequest struct {
	ScopeID       string `json:"scope_id"`
	ContributorID string `json:"contributor_id"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	PaymentMethod string `json:"payment_method"`
	PaymentDate   string `json:"payment_date"`
	Reference     string `json:"reference"`
	Notes         string `json:"notes"`
}

type contributionPatchRequest struct {
	ScopeID       *string `json:"scope_id"`
	ContributorID *string `json:"contributor_id"`
	Amount        *string `json:"amount"`
	Currency      *string `json:"currency"`
	PaymentMethod *string `json:"payment_method"`
	PaymentDate   *string `json:"payment_date"`
	Reference     *string `json:"reference"`
	Notes         *string `json:"notes"`
}

type contributionResponse struct {
	ID               string    `json:"id"`
	ScopeID          string    `json:"scope_id"`
	ScopeName        string    `json:"scope_name,omitempty"`
	ContributorID    string    `json:"contributor_id,omitempty"`
	Contributor      string    `json:"contributor"`
	Amount           string    `json:"amount"`
	Currency         string    `json:"currency"`
	NormalizedAmount string    `json:"normalized_amount"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentDate      string    `json:"payment_date"`
	Reference        string    `json:"reference,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

type listResponse struct {
	Items         []contributionResponse `json:"items"`
	TotalMatching int                    `json:"total_matching"`
	Page          int                    `json:"page"`
	PageSize      int                    `json:"page_size"`
}

type totalResponse struct {
	ScopeID  string `json:"scope_id,omitempty"`
	Currency string `json:"currency"`
	Total    string `json:"total"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func toResponse(c core.Contribution) contributionResponse {
	return contributionResponse{
		ID:               c.ID,
		ScopeID:          c.ScopeID,
		ScopeName:        c.ScopeName,
		ContributorID:    c.ContributorID,
		Contributor:      c.DisplayContributor(),
		Amount:           c.Amount.String(),
		Currency:         string(c.Currency),
		NormalizedAmount: c.NormalizedAmount.String(),
		PaymentMethod:    c.PaymentMethod,
		PaymentDate:      c.PaymentDate.Format(paymentDateLayout),
		Reference:        c.Reference,
		Notes:            c.Notes,
		CreatedAt:        c.CreatedAt,
	}
}

func (req contributionRequest) toDraft() (core.Draft, error) {
	amount, err := core.ParseAmount(req.Amount)
	if err != nil {
		return core.Draft{}, err
	}

	paymentDate, err := parsePaymentDate(req.PaymentDate)
	if err != nil {
		return core.Draft{}, err
	}

	return core.Draft{
		ScopeID:       strings.TrimSpace(req.ScopeID),
		ContributorID: strings.TrimSpace(req.ContributorID),
		Amount:        amount,
		Currency:      core.CurrencyCode(req.Currency),
		PaymentMethod: strings.TrimSpace(req.PaymentMethod),
		PaymentDate:   paymentDate,
		Reference:     strings.TrimSpace(req.Reference),
		Notes:         strings.TrimSpace(req.Notes),
	}, nil
}

func (req contributionPatchRequest) toPatch() (core.Patch, error) {
	patch := core.Patch{
		ScopeID:       req.ScopeID,
		ContributorID: req.ContributorID,
		PaymentMethod: req.PaymentMethod,
		Reference:     req.Reference,
		Notes:         req.Notes,
	}

	if req.Amount != nil {
		amount, err := core.ParseAmount(*req.Amount)
		if err != nil {
			return core.Patch{}, err
		}
		patch.Amount = &amount
	}
	if req.Currency != nil {
		currency := core.CurrencyCode(*req.Currency)
		patch.Currency = &currency
	}
	if req.PaymentDate != nil {
		paymentDate, err := parsePaymentDate(*req.PaymentDate)
		if err != nil {
			return core.Patch{}, err
		}
		patch.PaymentDate = &paymentDate
	}

	return patch, nil
}

func parsePaymentDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrMissingPaymentDate
	}
	if t, err := time.Parse(paymentDateLayout, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid payment date %q: %w", s, core.ErrMissingPaymentDate)
}

func parsePage(r *http.Request) core.Page {
	page := core.Page{}
	if v := r.URL.Query().Get("page"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			page.Index = i
		}
	}
	if v := r.URL.Query().Get("page_size"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			page.Size = i
		}
	}
	return page.Clamped()
}

func parseFilter(r *http.Request) core.Filter {
	return core.Filter{
		ScopeID: strings.TrimSpace(r.URL.Query().Get("scope_id")),
		Search:  strings.TrimSpace(r.URL.Query().Get("q")),
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeDomainError maps ledger errors onto HTTP statuses: missing entries to
// 404, rejected input to 422, unavailable rates to 503 with a retry hint.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "contribution not found")
	case errors.Is(err, core.ErrRateUnavailable):
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusServiceUnavailable, "exchange rate unavailable, entry not saved")
	case errors.Is(err, core.ErrInvalidAmount),
		errors.Is(err, core.ErrInvalidCurrency),
		errors.Is(err, core.ErrMissingScope),
		errors.Is(err, core.ErrMissingPaymentDate),
		errors.Is(err, core.ErrFieldTooLong):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed",
			"error", err, "method", r.Method, "path", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
