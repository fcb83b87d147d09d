// Package automatch drives one batch reconciliation run: it resolves the
// eligible receipt set, fetches the open-ledger candidate pool once, scores
// every receipt against it, and creates matches for the winners.
package automatch

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
)

const (
	defaultMinConfidenceScore = 80
	defaultWorkers            = 4
	defaultReceiptCap         = 1000
)

var validate = validator.New()

// Config describes one batch run. ReceiptIDs, when set, overrides the
// window query entirely. Strategy and MaxMatchesPerReceipt are carried
// through to the report but do not alter scoring yet; CustomRules and
// Exclusions are accepted for forward compatibility and ignored.
type Config struct {
	From time.Time `validate:"required"`
	To   time.Time `validate:"required,gtefield=From"`

	ReceiptIDs []uuid.UUID
	CardIDs    []uuid.UUID

	MinConfidenceScore   float64                `validate:"gte=0,lte=100"`
	MaxMatchesPerReceipt int                    `validate:"gte=0,lte=1"`
	DryRun               bool
	RequireApproval      bool
	Strategy             enums.MatchingStrategy `validate:"omitempty,oneof=conservative balanced aggressive"`
	Workers              int                    `validate:"gte=0,lte=64"`
	ReceiptCap           int                    `validate:"gte=0,lte=1000"`

	CustomRules map[string]string
	Exclusions  []string

	// InitiatorID is the acting user recorded on created matches. Scheduled
	// runs pass the system account.
	InitiatorID   uuid.UUID `validate:"required"`
	InitiatorRole enums.UserRole
}

func (c *Config) normalize() {
	if c.MinConfidenceScore == 0 {
		c.MinConfidenceScore = defaultMinConfidenceScore
	}
	if c.MaxMatchesPerReceipt == 0 {
		c.MaxMatchesPerReceipt = 1
	}
	if c.Workers <= 0 {
		c.Workers = defaultWorkers
	}
	if c.ReceiptCap <= 0 {
		c.ReceiptCap = defaultReceiptCap
	}
	if c.Strategy == "" {
		c.Strategy = enums.MatchingStrategyBalanced
	}
	if c.InitiatorRole == "" {
		c.InitiatorRole = enums.UserRoleSystem
	}
}

func (c *Config) validateConfig() error {
	if len(c.ReceiptIDs) == 0 && (c.From.IsZero() || c.To.IsZero()) {
		return apperrors.New(apperrors.CodeValidation, "a batch window or explicit receipt ids are required")
	}
	if len(c.ReceiptIDs) > 0 {
		// Explicit ids bypass the window; only the remaining knobs apply.
		if err := validate.StructExcept(c, "From", "To"); err != nil {
			return apperrors.Wrap(apperrors.CodeValidation, err, "invalid batch config")
		}
		return nil
	}
	if err := validate.Struct(c); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "invalid batch config")
	}
	return nil
}
