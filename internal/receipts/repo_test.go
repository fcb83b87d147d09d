package receipts

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

func setupReceiptsTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:receiptsrepo?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	receipts := `
CREATE TABLE IF NOT EXISTS receipts (
  id TEXT PRIMARY KEY,
  receipt_number TEXT NOT NULL UNIQUE,
  card_id TEXT,
  total_amount NUMERIC NOT NULL,
  currency TEXT NOT NULL DEFAULT 'KRW',
  transaction_at DATETIME NOT NULL,
  merchant_name TEXT NOT NULL,
  merchant_category TEXT,
  approval_number TEXT,
  verified INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`
	matchesTable := `
CREATE TABLE IF NOT EXISTS accounting_matches (
  id TEXT PRIMARY KEY,
  receipt_id TEXT NOT NULL,
  erp_ledger_id TEXT NOT NULL,
  account_code TEXT NOT NULL,
  account_name TEXT,
  cost_center TEXT,
  project_code TEXT,
  matched_amount NUMERIC NOT NULL,
  match_status TEXT NOT NULL DEFAULT 'pending',
  match_type TEXT NOT NULL DEFAULT 'manual',
  approval_status TEXT NOT NULL DEFAULT 'pending',
  confidence_score REAL,
  match_criteria TEXT,
  match_reasons TEXT,
  notes TEXT,
  rejection_reason TEXT,
  matched_by TEXT NOT NULL,
  approved_by TEXT,
  matched_at DATETIME,
  approved_at DATETIME,
  version INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(receipts).Error)
	require.NoError(t, db.Exec(matchesTable).Error)

	t.Cleanup(func() {
		db.Exec("DELETE FROM accounting_matches")
		db.Exec("DELETE FROM receipts")
	})
	return db
}

func seedReceiptRow(t *testing.T, db *gorm.DB, verified bool, at time.Time) *models.Receipt {
	t.Helper()
	receipt := &models.Receipt{
		ID:            uuid.New(),
		ReceiptNumber: "R-" + uuid.NewString()[:8],
		CardID:        uuid.New(),
		TotalAmount:   decimal.NewFromInt(50000),
		Currency:      "KRW",
		TransactionAt: at,
		MerchantName:  "서울택시",
		Verified:      verified,
	}
	require.NoError(t, db.Create(receipt).Error)
	return receipt
}

func TestFindEligibleForAutoMatch(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	eligible := seedReceiptRow(t, db, true, now)
	unverified := seedReceiptRow(t, db, false, now)
	outsideWindow := seedReceiptRow(t, db, true, now.AddDate(0, 0, -30))
	alreadyMatched := seedReceiptRow(t, db, true, now)
	require.NoError(t, db.Create(&models.AccountingMatch{
		ID:            uuid.New(),
		ReceiptID:     alreadyMatched.ID,
		ErpLedgerID:   "L-1",
		AccountCode:   "51110",
		MatchedAmount: decimal.NewFromInt(50000),
		MatchStatus:   enums.MatchStatusMatched,
		MatchType:     enums.MatchTypeAuto,
		MatchedByID:   uuid.New(),
		Version:       1,
	}).Error)

	// A cancelled match must not disqualify a receipt.
	cancelledMatch := seedReceiptRow(t, db, true, now)
	require.NoError(t, db.Create(&models.AccountingMatch{
		ID:            uuid.New(),
		ReceiptID:     cancelledMatch.ID,
		ErpLedgerID:   "L-2",
		AccountCode:   "51110",
		MatchedAmount: decimal.NewFromInt(50000),
		MatchStatus:   enums.MatchStatusCancelled,
		MatchType:     enums.MatchTypeAuto,
		MatchedByID:   uuid.New(),
		Version:       1,
	}).Error)

	rows, err := repo.FindEligibleForAutoMatch(ctx, EligibilityFilter{
		From: now.AddDate(0, 0, -7),
		To:   now.AddDate(0, 0, 1),
		Cap:  1000,
	})
	require.NoError(t, err)

	ids := make(map[uuid.UUID]bool, len(rows))
	for _, row := range rows {
		ids[row.ID] = true
	}
	assert.True(t, ids[eligible.ID])
	assert.True(t, ids[cancelledMatch.ID])
	assert.False(t, ids[unverified.ID])
	assert.False(t, ids[outsideWindow.ID])
	assert.False(t, ids[alreadyMatched.ID])
}

func TestFindEligibleForAutoMatchHonorsCap(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		seedReceiptRow(t, db, true, now.Add(time.Duration(i)*time.Minute))
	}

	rows, err := repo.FindEligibleForAutoMatch(context.Background(), EligibilityFilter{
		From: now.AddDate(0, 0, -1),
		To:   now.AddDate(0, 0, 1),
		Cap:  3,
	})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestFindEligibleForAutoMatchExplicitIDs(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	first := seedReceiptRow(t, db, false, now)
	seedReceiptRow(t, db, true, now)

	rows, err := repo.FindEligibleForAutoMatch(context.Background(), EligibilityFilter{
		ReceiptIDs: []uuid.UUID{first.ID},
	})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, first.ID, rows[0].ID)
}

func TestMarkVerified(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	now := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	receipt := seedReceiptRow(t, db, false, now)

	affected, err := repo.MarkVerified(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = repo.MarkVerified(ctx, receipt.ID)
	require.NoError(t, err)
	assert.Zero(t, affected, "second verification is a no-op")
}

func TestListPaginates(t *testing.T) {
	db := setupReceiptsTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	// Transaction times spread an hour apart keep the keyset ordering
	// deterministic.
	for i := 0; i < 4; i++ {
		seedReceiptRow(t, db, true, base.Add(time.Duration(i)*time.Hour))
	}

	page, next, err := repo.List(ctx, SearchFilter{}, nil, 3)
	require.NoError(t, err)
	assert.Len(t, page, 3)
	require.NotNil(t, next)

	rest, last, err := repo.List(ctx, SearchFilter{}, next, 3)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
	assert.Nil(t, last)
}
