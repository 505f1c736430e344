package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"metas/internal/core"
)

type transactionJSON struct {
	ID          int64  `json:"id"`
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Date        string `json:"date"`
}

type summaryJSON struct {
	Balance      string `json:"balance"`
	Year         int    `json:"year"`
	Month        int    `json:"month"`
	MonthIncome  string `json:"monthIncome"`
	MonthExpense string `json:"monthExpense"`
}

type addTransactionRequest struct {
	Kind        string      `json:"kind"`
	Amount      json.Number `json:"amount"`
	Description string      `json:"description"`
	Category    string      `json:"category"`
	Date        string      `json:"date"`
}

func toTransactionJSON(t core.Transaction) transactionJSON {
	return transactionJSON{
		ID:          t.ID,
		Kind:        string(t.Kind),
		Amount:      t.Amount.String(),
		Description: t.Description,
		Category:    t.Category,
		Date:        t.Date.String(),
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request, ownerID string) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	txs, err := s.ledger.List(r.Context(), ownerID, limit)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]transactionJSON, len(txs))
	for i, t := range txs {
		out[i] = toTransactionJSON(t)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleAddTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	var req addTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	amount, err := parseMoney(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}
	date, err := parseOptionalDate(req.Date)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid date")
		return
	}

	saved, err := s.ledger.Add(r.Context(), core.Transaction{
		OwnerID:     ownerID,
		Kind:        core.TransactionKind(req.Kind),
		Amount:      amount,
		Description: req.Description,
		Category:    req.Category,
		Date:        date,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toTransactionJSON(saved))
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request, ownerID string) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	if err := s.ledger.Delete(r.Context(), ownerID, id); err != nil {
		writeServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request, ownerID string) {
	var year, month int
	q := r.URL.Query()
	if v := q.Get("year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = n
	}
	if v := q.Get("month"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid month")
			return
		}
		month = n
	}

	summary, err := s.ledger.Summary(r.Context(), ownerID, year, month)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, summaryJSON{
		Balance:      summary.Balance.String(),
		Year:         summary.Year,
		Month:        summary.Month,
		MonthIncome:  summary.MonthIncome.String(),
		MonthExpense: summary.MonthExpense.String(),
	})
}
