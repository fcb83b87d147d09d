// Package erp talks to the external general ledger. Reads feed the
// auto-match candidate pool; writes are fire-and-forget status pushes
// drained from the outbox by the relay.
package erp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/internal/matching"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

// Gateway is the ledger collaborator contract consumed by the core.
type Gateway interface {
	GetLedgerInfo(ctx context.Context, ledgerID string) (*matching.Candidate, error)
	GetOpenLedgers(ctx context.Context, from, to time.Time) ([]matching.Candidate, error)
	PushEvent(ctx context.Context, eventType enums.OutboxEventType, payload json.RawMessage) error
}

type ledgerResponse struct {
	LedgerID       string          `json:"ledgerId"`
	AccountCode    string          `json:"accountCode"`
	AccountName    string          `json:"accountName"`
	CostCenter     string          `json:"costCenter"`
	Amount         decimal.Decimal `json:"amount"`
	AccountingDate time.Time       `json:"accountingDate"`
	Description    string          `json:"description"`
	Status         string          `json:"status"`
}

type ledgerListResponse struct {
	Ledgers    []ledgerResponse `json:"ledgers"`
	TotalCount int              `json:"totalCount"`
	PageNo     int              `json:"pageNo"`
	PageSize   int              `json:"pageSize"`
}

type openLedgersRequest struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
	Status    string `json:"status"`
	PageSize  int    `json:"pageSize"`
}

func toCandidate(resp ledgerResponse) matching.Candidate {
	return matching.Candidate{
		LedgerID:       resp.LedgerID,
		AccountCode:    resp.AccountCode,
		AccountName:    resp.AccountName,
		CostCenter:     resp.CostCenter,
		Amount:         resp.Amount,
		AccountingDate: resp.AccountingDate,
		Description:    resp.Description,
		Status:         resp.Status,
	}
}
