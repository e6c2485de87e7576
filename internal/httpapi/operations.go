package httpapi

import (
	"net/http"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// postDeposit appends a DEPOSIT operation and returns it.
func (s *Server) postDeposit(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyOperation).(validatedOperation)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	op, err := s.svc.Deposit(r.Context(), req.AccountID, req.Amount, time.Time{})
	if err != nil {
		s.log.Error("deposit failed", "account_id", req.AccountID, "err", err)
		internalError(w)
		return
	}
	toJSON(w, http.StatusCreated, toOperationResponse(op))
}

// postWithdraw appends a WITHDRAWAL operation when the balance covers it.
// Insufficient funds is a domain outcome, not a server fault: it maps to 422.
func (s *Server) postWithdraw(w http.ResponseWriter, r *http.Request) {
	req, ok := r.Context().Value(ctxKeyOperation).(validatedOperation)
	if !ok {
		badRequest(w, "missing validated request")
		return
	}
	op, ok, err := s.svc.Withdraw(r.Context(), req.AccountID, req.Amount, time.Time{})
	if err != nil {
		s.log.Error("withdraw failed", "account_id", req.AccountID, "err", err)
		internalError(w)
		return
	}
	if !ok {
		unprocessable(w, "insufficient funds", "insufficient_funds")
		return
	}
	toJSON(w, http.StatusCreated, toOperationResponse(op))
}

// getBalance returns the derived balance, zero for unknown accounts.
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		badRequest(w, "invalid uuid")
		return
	}
	bal, err := s.svc.Balance(r.Context(), accountID)
	if err != nil {
		s.log.Error("balance failed", "account_id", accountID, "err", err)
		internalError(w)
		return
	}
	toJSON(w, http.StatusOK, balanceResponse{Balance: bal.String()})
}

// getHistory returns the account's operations most recent first, an empty
// array for unknown accounts.
func (s *Server) getHistory(w http.ResponseWriter, r *http.Request) {
	accountID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		badRequest(w, "invalid uuid")
		return
	}
	ops, err := s.svc.History(r.Context(), accountID)
	if err != nil {
		s.log.Error("history failed", "account_id", accountID, "err", err)
		internalError(w)
		return
	}
	toJSON(w, http.StatusOK, toHistoryResponse(ops))
}
