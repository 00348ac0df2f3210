package marketplace

import (
	"context"

	"github.com/shopspring/decimal"
)

// FacadeOption configures a Facade instance.
type FacadeOption func(*Facade)

// OperationLogger records every façade operation, successful or not.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes one façade call.
type OperationLog struct {
	Operation    string
	Mode         Mode
	NFTID        string
	Address      string
	Counterparty string
	Amount       decimal.Decimal
	TxHash       string
	Count        int
	Status       string
	Error        error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) FacadeOption {
	return func(facade *Facade) {
		facade.logger = logger
	}
}
