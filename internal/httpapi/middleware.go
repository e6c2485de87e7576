package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

type ctxKey string

const ctxKeyOperation ctxKey = "validatedOperation"

// validateOperation parses and validates the shared deposit/withdraw body
// and stores the validated request in the context for the handler to use.
// Amounts are floored to ledger scale here, so the positivity check and the
// stored magnitude always agree.
func (s *Server) validateOperation() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req operationRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				badRequest(w, "invalid JSON: "+err.Error())
				return
			}
			if req.UUID == "" || req.Amount == "" {
				badRequest(w, "uuid and amount are required")
				return
			}
			accountID, err := uuid.Parse(req.UUID)
			if err != nil {
				badRequest(w, "invalid uuid")
				return
			}
			raw, err := decimal.Parse(req.Amount.String())
			if err != nil {
				badRequest(w, "invalid amount")
				return
			}
			amount := ledger.NormalizeAmount(raw)
			if !amount.IsPos() {
				badRequest(w, "amount must be positive")
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyOperation, validatedOperation{AccountID: accountID, Amount: amount})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
