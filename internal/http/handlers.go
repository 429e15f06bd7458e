package http

import (
	"context"
	"net/http"
	"time"

	"bearbudget/internal/core"
	"bearbudget/internal/ledger"
	"bearbudget/internal/log"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady checks the store answers a cheap query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()
	if _, err := s.store.ListCategories(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(txs))
}

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	var tx core.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, r, err)
		return
	}
	tx.ID = nil
	saved, err := s.store.CreateTransaction(r.Context(), tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logs.LogLedgerWrite(r.Context(), log.OpCreate, log.NewFields().
		WithTransactionID(saved.IDValue()).
		WithAccount(saved.Card).
		WithAmount(saved.Amount))
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var tx core.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, r, err)
		return
	}
	saved, err := s.store.UpdateTransaction(r.Context(), id, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logs.LogLedgerWrite(r.Context(), log.OpUpdate, log.NewFields().WithTransactionID(id).WithAccount(saved.Card))
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if _, err := s.store.DeleteTransaction(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	s.logs.LogLedgerWrite(r.Context(), log.OpDelete, log.NewFields().WithTransactionID(id))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.ListCards(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cards))
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(cats))
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var month core.Month
	if v := r.URL.Query().Get("month"); v != "" {
		m, err := core.ParseMonth(v)
		if err != nil {
			writeError(w, r, err)
			return
		}
		month = m
	}
	items, err := s.store.Summary(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(items))
}

type accountsResponse struct {
	Banks []core.Account `json:"banks"`
	Debts []core.Account `json:"debts"`
}

func (s *Server) handleAccounts(w http.ResponseWriter, r *http.Request) {
	banks, err := s.store.ListBanks(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	debts, err := s.store.ListDebts(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, accountsResponse{Banks: nonNil(banks), Debts: nonNil(debts)})
}

func (s *Server) handleCreateAccount(kind core.AccountKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var in ledger.Card
		if err := decodeJSON(w, r, &in); err != nil {
			writeError(w, r, err)
			return
		}
		create := s.store.CreateBank
		if kind == core.KindDebt {
			create = s.store.CreateDebt
		}
		if err := create(r.Context(), in.Name, in.Balance); err != nil {
			writeError(w, r, err)
			return
		}
		s.logs.LogLedgerWrite(r.Context(), log.OpCreate, log.NewFields().WithAccount(in.Name).WithAmount(in.Balance))
		writeJSON(w, http.StatusCreated, in)
	}
}

func (s *Server) handleDeleteAccount(del func(context.Context, string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := pathName(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if err := del(r.Context(), name); err != nil {
			writeError(w, r, err)
			return
		}
		s.logs.LogLedgerWrite(r.Context(), log.OpDelete, log.NewFields().WithAccount(name))
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) handleAdjust(w http.ResponseWriter, r *http.Request) {
	name, err := pathName(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req core.AdjustmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	row, err := s.store.Adjust(r.Context(), name, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logs.LogLedgerWrite(r.Context(), log.OpAdjust, log.NewFields().
		WithAccount(name).
		WithAction(string(req.Action)).
		WithAmount(req.Amount).
		WithTransactionID(row.IDValue()))
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req core.TransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	row, err := s.store.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.logs.LogLedgerWrite(r.Context(), log.OpTransfer, log.NewFields().
		WithAccount(req.FromAccount).
		WithAmount(req.Amount).
		WithTransactionID(row.IDValue()))
	writeJSON(w, http.StatusCreated, row)
}
