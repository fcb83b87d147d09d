// Package matching scores receipts against open ledger entries. The engine
// is deterministic and side-effect free; callers decide what to do with the
// ranked results.
package matching

import (
	"math"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
)

const (
	weightAmount      = 40.0
	weightDate        = 30.0
	weightMerchant    = 20.0
	weightDescription = 10.0
)

// Reason strings are kept in Korean to stay consistent with the accounting
// team's review screens.
const (
	ReasonAmountExact         = "금액 일치"
	ReasonAmountClose         = "금액 유사"
	ReasonAmountMismatch      = "금액 불일치"
	ReasonDateExact           = "날짜 일치"
	ReasonDateClose           = "날짜 근접"
	ReasonDateFar             = "날짜 차이 큼"
	ReasonMerchantAccount     = "가맹점-계정과목 매칭"
	ReasonMerchantAccountPart = "가맹점-계정과목 부분 매칭"
	ReasonDescription         = "설명 일치"
)

// Candidate is a read-only projection of an open ERP ledger entry. It is
// fetched per batch window and never persisted locally.
type Candidate struct {
	LedgerID       string
	AccountCode    string
	AccountName    string
	CostCenter     string
	Amount         decimal.Decimal
	AccountingDate time.Time
	Description    string
	Status         string
}

// Result is the scored pairing of one receipt with one candidate.
type Result struct {
	LedgerID        string
	AccountCode     string
	AccountName     string
	CostCenter      string
	MatchedAmount   decimal.Decimal
	ConfidenceScore float64
	MatchingRule    enums.MatchingRule
	MatchReasons    []string
	MismatchReasons []string
}

// Params are the scoring knobs supplied from configuration.
type Params struct {
	DateToleranceDays int
	AmountTolerance   float64
}

type Engine struct {
	taxonomy *Taxonomy
	params   Params
}

func NewEngine(taxonomy *Taxonomy, params Params) (*Engine, error) {
	if taxonomy == nil {
		return nil, apperrors.New(apperrors.CodeInternal, "taxonomy is required")
	}
	if params.DateToleranceDays <= 0 {
		return nil, apperrors.New(apperrors.CodeValidation, "date tolerance must be positive")
	}
	if params.AmountTolerance <= 0 || params.AmountTolerance >= 1 {
		return nil, apperrors.New(apperrors.CodeValidation, "amount tolerance must be in (0, 1)")
	}
	return &Engine{taxonomy: taxonomy, params: params}, nil
}

// Score computes the weighted confidence score for one receipt-candidate
// pair, with human-readable reasons for reviewers.
func (e *Engine) Score(receipt *models.Receipt, candidate Candidate) Result {
	result := Result{
		LedgerID:      candidate.LedgerID,
		AccountCode:   candidate.AccountCode,
		AccountName:   candidate.AccountName,
		CostCenter:    candidate.CostCenter,
		MatchedAmount: candidate.Amount,
	}

	amountScore := e.amountScore(receipt.TotalAmount, candidate.Amount)
	switch {
	case amountScore >= 0.95:
		result.MatchReasons = append(result.MatchReasons, ReasonAmountExact)
	case amountScore >= 0.8:
		result.MatchReasons = append(result.MatchReasons, ReasonAmountClose)
	default:
		result.MismatchReasons = append(result.MismatchReasons, ReasonAmountMismatch)
	}

	dateScore := e.dateScore(receipt.TransactionAt, candidate.AccountingDate)
	switch {
	case dateScore >= 0.9:
		result.MatchReasons = append(result.MatchReasons, ReasonDateExact)
	case dateScore >= 0.7:
		result.MatchReasons = append(result.MatchReasons, ReasonDateClose)
	default:
		result.MismatchReasons = append(result.MismatchReasons, ReasonDateFar)
	}

	merchantScore := e.merchantAccountScore(receipt.MerchantName, candidate.AccountCode)
	switch {
	case merchantScore >= 0.8:
		result.MatchReasons = append(result.MatchReasons, ReasonMerchantAccount)
	case merchantScore >= 0.5:
		result.MatchReasons = append(result.MatchReasons, ReasonMerchantAccountPart)
	}

	descriptionScore := e.descriptionScore(receipt.MerchantName, candidate.Description)
	if descriptionScore >= 0.7 {
		result.MatchReasons = append(result.MatchReasons, ReasonDescription)
	}

	total := amountScore*weightAmount +
		dateScore*weightDate +
		merchantScore*weightMerchant +
		descriptionScore*weightDescription
	maxTotal := weightAmount + weightDate + weightMerchant + weightDescription

	result.ConfidenceScore = total / maxTotal * 100
	result.MatchingRule = deriveRule(amountScore, dateScore, merchantScore)
	return result
}

// Rank scores every candidate and returns the results sorted by confidence,
// highest first. The sort is stable so ties keep candidate input order.
func (e *Engine) Rank(receipt *models.Receipt, candidates []Candidate) []Result {
	results := make([]Result, 0, len(candidates))
	for _, candidate := range candidates {
		results = append(results, e.Score(receipt, candidate))
	}
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].ConfidenceScore > results[j].ConfidenceScore
	})
	return results
}

// FindBestMatch returns the highest-scoring candidate at or above minScore,
// or nil when no candidate clears the threshold. An empty pool is not an
// error; unmatched is an expected outcome.
func (e *Engine) FindBestMatch(receipt *models.Receipt, candidates []Candidate, minScore float64) *Result {
	if receipt == nil || len(candidates) == 0 {
		return nil
	}
	ranked := e.Rank(receipt, candidates)
	if ranked[0].ConfidenceScore < minScore {
		return nil
	}
	best := ranked[0]
	return &best
}

func (e *Engine) amountScore(transactionAmount, ledgerAmount decimal.Decimal) float64 {
	if !transactionAmount.IsPositive() || !ledgerAmount.IsPositive() {
		return 0
	}
	if transactionAmount.Equal(ledgerAmount) {
		return 1
	}
	difference := transactionAmount.Sub(ledgerAmount).Abs()
	tolerance := transactionAmount.Mul(decimal.NewFromFloat(e.params.AmountTolerance))

	diffRatio, _ := difference.Div(transactionAmount).Float64()
	if difference.Cmp(tolerance) <= 0 {
		return 1 - diffRatio/e.params.AmountTolerance
	}
	return math.Max(0, 1-diffRatio)
}

func (e *Engine) dateScore(transactionAt, accountingDate time.Time) float64 {
	if transactionAt.IsZero() || accountingDate.IsZero() {
		return 0
	}
	daysDiff := int(math.Abs(transactionAt.Sub(accountingDate).Hours()) / 24)
	tolerance := e.params.DateToleranceDays

	switch {
	case daysDiff == 0:
		return 1
	case daysDiff <= tolerance:
		return 1 - float64(daysDiff)*0.1
	case daysDiff <= tolerance*2:
		return 0.5 - float64(daysDiff-tolerance)*0.05
	default:
		return 0
	}
}

func (e *Engine) merchantAccountScore(merchantName, accountCode string) float64 {
	if merchantName == "" || accountCode == "" {
		return 0
	}
	rule := e.taxonomy.Classify(merchantName)
	if rule == nil {
		return 0.3
	}
	for _, expected := range rule.AccountCodes {
		if expected == accountCode {
			return 1
		}
	}
	group := accountCode
	if len(group) > 3 {
		group = group[:3]
	}
	for _, expected := range rule.AccountCodes {
		if strings.HasPrefix(expected, group) {
			return 0.7
		}
	}
	return 0.3
}

func (e *Engine) descriptionScore(merchantName, description string) float64 {
	if merchantName == "" || description == "" {
		return 0
	}
	normalizedMerchant := normalizeText(merchantName)
	normalizedDescription := normalizeText(description)
	if normalizedMerchant == "" || normalizedDescription == "" {
		return 0
	}
	if strings.Contains(normalizedDescription, normalizedMerchant) ||
		strings.Contains(normalizedMerchant, normalizedDescription) {
		return 1
	}

	merchantTokens := tokenize(normalizedMerchant)
	descriptionTokens := tokenize(normalizedDescription)

	intersection := 0
	for token := range merchantTokens {
		if _, ok := descriptionTokens[token]; ok {
			intersection++
		}
	}
	if intersection == 0 {
		return 0
	}
	union := len(merchantTokens) + len(descriptionTokens) - intersection
	return float64(intersection) / float64(union)
}

func deriveRule(amountScore, dateScore, merchantScore float64) enums.MatchingRule {
	switch {
	case amountScore >= 0.95 && dateScore >= 0.9:
		return enums.MatchingRuleExact
	case amountScore >= 0.8 && dateScore >= 0.7 && merchantScore >= 0.7:
		return enums.MatchingRuleHigh
	case amountScore >= 0.7 && dateScore >= 0.5:
		return enums.MatchingRuleMedium
	default:
		return enums.MatchingRuleLow
	}
}

var nonWordPattern = regexp.MustCompile(`[^가-힣a-z0-9\s]`)

func normalizeText(text string) string {
	lowered := strings.ToLower(text)
	cleaned := nonWordPattern.ReplaceAllString(lowered, "")
	return strings.Join(strings.Fields(cleaned), " ")
}

func tokenize(text string) map[string]struct{} {
	tokens := make(map[string]struct{})
	for _, token := range strings.Fields(text) {
		if utf8.RuneCountInString(token) > 1 {
			tokens[token] = struct{}{}
		}
	}
	return tokens
}
