package http

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"buste/internal/core"
)

const defaultHistoryLimit = 100

type (
	fundRequest struct {
		Amount     float64 `json:"amount"`
		PaycheckID string  `json:"paycheckId,omitempty"`
	}

	moveRequest struct {
		FromCategoryID string  `json:"fromCategoryId"`
		ToCategoryID   string  `json:"toCategoryId"`
		Amount         float64 `json:"amount"`
		Note           string  `json:"note,omitempty"`
	}

	transferRequest struct {
		Source      string  `json:"source"`
		Destination string  `json:"destination"`
		Amount      float64 `json:"amount"`
		Note        string  `json:"note,omitempty"`
		PaycheckID  string  `json:"paycheckId,omitempty"`
	}

	autoFundRequest struct {
		Amount     float64 `json:"amount"`
		PaycheckID string  `json:"paycheckId,omitempty"`
	}

	receiveRequest struct {
		ActualAmount float64 `json:"actualAmount"`
		Notes        string  `json:"notes,omitempty"`
	}

	transactionPayload struct {
		ID         string  `json:"id,omitempty"`
		CategoryID string  `json:"categoryId,omitempty"`
		Amount     float64 `json:"amount"`
		Inflow     bool    `json:"inflow,omitempty"`
		Date       string  `json:"date,omitempty"`
	}

	applyTransactionRequest struct {
		Transaction transactionPayload  `json:"transaction"`
		Old         *transactionPayload `json:"old,omitempty"`
	}
)

func (p transactionPayload) toTransaction() core.Transaction {
	tx := core.Transaction{
		ID:         p.ID,
		CategoryID: p.CategoryID,
		Amount:     p.Amount,
		Inflow:     p.Inflow,
	}
	if t, err := time.Parse("2006-01-02", p.Date); err == nil {
		tx.Date = t
	}
	return tx
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"categories": s.api.Categories()})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.api.Items()})
}

func (s *Server) handleFundCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("id")
	var req fundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.api.FundCategory(r.Context(), categoryID, req.Amount, req.PaycheckID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleMoveMoney(w http.ResponseWriter, r *http.Request) {
	var req moveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.api.MoveMoney(r.Context(), req.FromCategoryID, req.ToCategoryID, req.Amount, req.Note)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleTransferFunds(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ok, err := s.api.TransferFunds(r.Context(), req.Source, req.Destination, req.Amount, req.Note, req.PaycheckID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"ok": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAutoFund(w http.ResponseWriter, r *http.Request) {
	var req autoFundRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.api.AutoFund(r.Context(), req.Amount, req.PaycheckID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"totalFunded":         result.TotalFunded,
		"fundingResults":      result.FundingResults,
		"remainingToAllocate": result.RemainingToAllocate,
	})
}

func (s *Server) handleReceivePaycheck(w http.ResponseWriter, r *http.Request) {
	paycheckID := r.PathValue("id")
	var req receiveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.api.ReceivePaycheck(r.Context(), paycheckID, req.ActualAmount, req.Notes)
	if err == core.ErrUnknownPaycheck {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":                  true,
		"totalFunded":         result.TotalFunded,
		"fundingResults":      result.FundingResults,
		"remainingToAllocate": result.RemainingToAllocate,
	})
}

func (s *Server) handleApplyTransaction(w http.ResponseWriter, r *http.Request) {
	var req applyTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var old *core.Transaction
	if req.Old != nil {
		tx := req.Old.toTransaction()
		old = &tx
	}
	if err := s.api.ApplyTransaction(r.Context(), req.Transaction.toTransaction(), old); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleRecompute(w http.ResponseWriter, r *http.Request) {
	if err := s.api.RecomputeBalances(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleToBeAllocated(w http.ResponseWriter, r *http.Request) {
	if amount, ok := s.poolCache.Get("pool"); ok {
		writeJSON(w, http.StatusOK, map[string]any{"toBeAllocated": amount})
		return
	}

	amount, err := s.api.ToBeAllocated(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.poolCache.Set("pool", amount)
	writeJSON(w, http.StatusOK, map[string]any{"toBeAllocated": amount})
}

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	itemID := r.PathValue("id")
	paycheckID := r.URL.Query().Get("paycheck")
	perPaycheck := parseFloatParam(r, "perPaycheck")

	key := fmt.Sprintf("%s|%s|%g", itemID, paycheckID, perPaycheck)
	if tl, ok := s.timelineCache.Get(key); ok {
		writeJSON(w, http.StatusOK, tl)
		return
	}

	tl, err := s.api.Timeline(r.Context(), itemID, paycheckID, perPaycheck)
	if err == core.ErrUnknownItem || err == core.ErrUnknownPaycheck {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.timelineCache.Set(key, tl)
	writeJSON(w, http.StatusOK, tl)
}

func (s *Server) handlePaycheckDates(w http.ResponseWriter, r *http.Request) {
	paycheckID := r.PathValue("id")
	count := parseIntParam(r, "count", 12)

	dates, err := s.api.PaycheckDates(r.Context(), paycheckID, count)
	if err == core.ErrUnknownPaycheck {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format("2006-01-02")
	}
	writeJSON(w, http.StatusOK, map[string]any{"dates": out})
}

func (s *Server) handleFundingHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := s.api.FundingHistory(r.Context(), parseIntParam(r, "limit", defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries})
}

func (s *Server) handleTransferHistory(w http.ResponseWriter, r *http.Request) {
	transfers, err := s.api.TransferHistory(r.Context(), parseIntParam(r, "limit", defaultHistoryLimit))
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"transfers": transfers})
}

func (s *Server) handleGetMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	budget, err := s.api.MonthlyBudget(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"budget": budget})
}

func (s *Server) handleSetMonthlyBudget(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Budget map[string]float64 `json:"budget"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.api.SetMonthlyBudget(r.Context(), req.Budget); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func parseFloatParam(r *http.Request, name string) float64 {
	v := r.URL.Query().Get(name)
	if v == "" {
		return 0
	}
	f, err := core.ParseAmount(v)
	if err != nil {
		return 0
	}
	return f
}
