// Package cardsync pulls corporate card transactions from issuer APIs and
// lands them as unverified receipts.
package cardsync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
)

// Transaction is one settled card transaction as reported by an issuer.
type Transaction struct {
	ApprovalNumber   string
	MerchantName     string
	MerchantCategory string
	Amount           decimal.Decimal
	Currency         string
	TransactionAt    time.Time
	Status           string
}

// Provider fetches transactions for one card issuer.
type Provider interface {
	Provider() enums.CardProvider
	FetchTransactions(ctx context.Context, card models.Card, from, to time.Time) ([]Transaction, error)
}

// Registry resolves the adapter for a card's issuer.
type Registry struct {
	providers map[enums.CardProvider]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	reg := &Registry{providers: make(map[enums.CardProvider]Provider, len(providers))}
	for _, p := range providers {
		reg.providers[p.Provider()] = p
	}
	return reg
}

func (r *Registry) Lookup(provider enums.CardProvider) (Provider, error) {
	p, ok := r.providers[provider]
	if !ok {
		return nil, apperrors.New(apperrors.CodeValidation, fmt.Sprintf("unsupported card provider %q", provider))
	}
	return p, nil
}

func (r *Registry) Supported() []enums.CardProvider {
	out := make([]enums.CardProvider, 0, len(r.providers))
	for provider := range r.providers {
		out = append(out, provider)
	}
	return out
}

// receiptNumberFor derives the stable receipt number the ingest upsert keys
// on. Approval numbers are unique per issuer, not globally.
func receiptNumberFor(provider enums.CardProvider, approvalNumber string) string {
	return strings.ToUpper(provider.String()) + "-" + approvalNumber
}
