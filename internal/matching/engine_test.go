package matching

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := NewEngine(DefaultTaxonomy(), Params{
		DateToleranceDays: 3,
		AmountTolerance:   0.01,
	})
	require.NoError(t, err)
	return engine
}

func testReceipt(amount int64, merchant string, at time.Time) *models.Receipt {
	return &models.Receipt{
		TotalAmount:   decimal.NewFromInt(amount),
		Currency:      "KRW",
		TransactionAt: at,
		MerchantName:  merchant,
	}
}

func TestNewEngineValidatesParams(t *testing.T) {
	_, err := NewEngine(nil, Params{DateToleranceDays: 3, AmountTolerance: 0.01})
	assert.Error(t, err)

	_, err = NewEngine(DefaultTaxonomy(), Params{DateToleranceDays: 0, AmountTolerance: 0.01})
	assert.Error(t, err)

	_, err = NewEngine(DefaultTaxonomy(), Params{DateToleranceDays: 3, AmountTolerance: 1.5})
	assert.Error(t, err)
}

func TestAmountScoreBoundaries(t *testing.T) {
	engine := testEngine(t)
	base := decimal.NewFromInt(100000)

	assert.InDelta(t, 1.0, engine.amountScore(base, decimal.NewFromInt(100000)), 1e-9)

	// Difference of exactly the tolerance fraction decays to zero.
	assert.InDelta(t, 0.0, engine.amountScore(base, decimal.NewFromInt(99000)), 1e-9)

	// Half the tolerance lands halfway down the decay.
	assert.InDelta(t, 0.5, engine.amountScore(base, decimal.NewFromInt(99500)), 1e-9)

	// Beyond tolerance the score degrades by the raw ratio instead of
	// dropping straight to zero.
	assert.InDelta(t, 0.8, engine.amountScore(base, decimal.NewFromInt(80000)), 1e-9)

	assert.Equal(t, 0.0, engine.amountScore(decimal.Zero, base))
	assert.Equal(t, 0.0, engine.amountScore(base, decimal.Zero))
}

func TestDateScoreDecay(t *testing.T) {
	engine := testEngine(t)
	base := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)

	assert.InDelta(t, 1.0, engine.dateScore(base, base), 1e-9)
	assert.InDelta(t, 0.9, engine.dateScore(base, base.AddDate(0, 0, 1)), 1e-9)
	assert.InDelta(t, 0.7, engine.dateScore(base, base.AddDate(0, 0, 3)), 1e-9)
	assert.InDelta(t, 0.45, engine.dateScore(base, base.AddDate(0, 0, 4)), 1e-9)
	assert.InDelta(t, 0.35, engine.dateScore(base, base.AddDate(0, 0, 6)), 1e-9)
	assert.Equal(t, 0.0, engine.dateScore(base, base.AddDate(0, 0, 7)))
	assert.Equal(t, 0.0, engine.dateScore(base, base.AddDate(0, 0, -10)))
	assert.Equal(t, 0.0, engine.dateScore(time.Time{}, base))
}

func TestMerchantAccountScore(t *testing.T) {
	engine := testEngine(t)

	assert.InDelta(t, 1.0, engine.merchantAccountScore("서울택시", "51110"), 1e-9)
	assert.InDelta(t, 0.7, engine.merchantAccountScore("서울택시", "51190"), 1e-9)
	assert.InDelta(t, 0.3, engine.merchantAccountScore("서울택시", "62000"), 1e-9)
	assert.InDelta(t, 0.3, engine.merchantAccountScore("무명상회", "51110"), 1e-9)
	assert.Equal(t, 0.0, engine.merchantAccountScore("", "51110"))
}

func TestDescriptionScore(t *testing.T) {
	engine := testEngine(t)

	assert.InDelta(t, 1.0, engine.descriptionScore("스타벅스 강남점", "스타벅스 강남점 커피"), 1e-9)

	// Jaccard over token sets: one shared token of three distinct.
	score := engine.descriptionScore("스타벅스 강남점", "강남점 법인카드 결제")
	assert.InDelta(t, 0.25, score, 1e-9)

	assert.Equal(t, 0.0, engine.descriptionScore("스타벅스", "주유소 결제"))
	assert.Equal(t, 0.0, engine.descriptionScore("", "주유소"))
}

func TestScoreExactMatchScenario(t *testing.T) {
	engine := testEngine(t)
	at := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	result := engine.Score(testReceipt(50000, "Shinhan Taxi", at), Candidate{
		LedgerID:       "L-1001",
		AccountCode:    "51110",
		AccountName:    "교통비",
		Amount:         decimal.NewFromInt(50000),
		AccountingDate: at,
		Description:    "shinhan taxi 법인 이용",
	})

	assert.GreaterOrEqual(t, result.ConfidenceScore, 95.0)
	assert.Equal(t, enums.MatchingRuleExact, result.MatchingRule)
	assert.Contains(t, result.MatchReasons, ReasonAmountExact)
	assert.Contains(t, result.MatchReasons, ReasonDateExact)
	assert.Contains(t, result.MatchReasons, ReasonMerchantAccount)
	assert.Empty(t, result.MismatchReasons)
}

func TestScoreAmountMismatchScenario(t *testing.T) {
	engine := testEngine(t)
	at := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

	result := engine.Score(testReceipt(50000, "무명상회", at), Candidate{
		LedgerID:       "L-1002",
		AccountCode:    "51110",
		Amount:         decimal.NewFromInt(60000),
		AccountingDate: at,
		Description:    "거래처 정산",
	})

	assert.Less(t, result.ConfidenceScore, 80.0)
	assert.NotEqual(t, enums.MatchingRuleExact, result.MatchingRule)
}

func TestFindBestMatchHonorsThreshold(t *testing.T) {
	engine := testEngine(t)
	at := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	receipt := testReceipt(50000, "서울택시", at)

	weak := Candidate{
		LedgerID:       "L-weak",
		AccountCode:    "62000",
		Amount:         decimal.NewFromInt(90000),
		AccountingDate: at.AddDate(0, 0, 10),
	}
	strong := Candidate{
		LedgerID:       "L-strong",
		AccountCode:    "51110",
		Amount:         decimal.NewFromInt(50000),
		AccountingDate: at,
		Description:    "서울택시 이용",
	}

	best := engine.FindBestMatch(receipt, []Candidate{weak, strong}, 80)
	require.NotNil(t, best)
	assert.Equal(t, "L-strong", best.LedgerID)
	assert.GreaterOrEqual(t, best.ConfidenceScore, 80.0)

	assert.Nil(t, engine.FindBestMatch(receipt, []Candidate{weak}, 80))
	assert.Nil(t, engine.FindBestMatch(receipt, nil, 80))
	assert.Nil(t, engine.FindBestMatch(nil, []Candidate{strong}, 80))
}

func TestRankIsStableOnTies(t *testing.T) {
	engine := testEngine(t)
	at := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	receipt := testReceipt(50000, "서울택시", at)

	first := Candidate{
		LedgerID:       "L-first",
		AccountCode:    "51110",
		Amount:         decimal.NewFromInt(50000),
		AccountingDate: at,
	}
	second := first
	second.LedgerID = "L-second"

	ranked := engine.Rank(receipt, []Candidate{first, second})
	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].ConfidenceScore, ranked[1].ConfidenceScore)
	assert.Equal(t, "L-first", ranked[0].LedgerID)
	assert.Equal(t, "L-second", ranked[1].LedgerID)
}

func TestScoreIsDeterministic(t *testing.T) {
	engine := testEngine(t)
	at := time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)
	receipt := testReceipt(50000, "GS칼텍스 주유소", at)
	candidate := Candidate{
		LedgerID:       "L-2001",
		AccountCode:    "51310",
		Amount:         decimal.NewFromInt(49900),
		AccountingDate: at.AddDate(0, 0, 2),
		Description:    "주유소 결제",
	}

	a := engine.Score(receipt, candidate)
	b := engine.Score(receipt, candidate)
	assert.Equal(t, a, b)
}
