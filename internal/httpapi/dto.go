package httpapi

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"

	"github.com/tinoosan/bankbook/internal/ledger"
)

// operationRequest is the body of POST /api/deposit and POST /api/withdraw.
// The amount arrives as a JSON number and is decoded through json.Number so
// no float artifact ever reaches the domain.
type operationRequest struct {
	UUID   string      `json:"uuid"`
	Amount json.Number `json:"amount"`
}

// operationResponse mirrors a created ledger operation on the wire. Amounts
// are rendered as strings at ledger scale.
type operationResponse struct {
	UUID      string    `json:"uuid"`
	Operation string    `json:"operation"`
	Amount    string    `json:"amount"`
	Time      time.Time `json:"time"`
}

type balanceResponse struct {
	Balance string `json:"balance"`
}

func toOperationResponse(op ledger.Operation) operationResponse {
	return operationResponse{
		UUID:      op.AccountID.String(),
		Operation: string(op.Kind),
		Amount:    op.Amount.String(),
		Time:      op.Time,
	}
}

func toHistoryResponse(ops []ledger.Operation) []operationResponse {
	out := make([]operationResponse, 0, len(ops))
	for _, op := range ops {
		out = append(out, toOperationResponse(op))
	}
	return out
}

// validatedOperation is what the validation middleware hands to the
// deposit/withdraw handlers.
type validatedOperation struct {
	AccountID uuid.UUID
	Amount    decimal.Decimal
}
