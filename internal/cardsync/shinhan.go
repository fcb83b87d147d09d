package cardsync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

const (
	shinhanDateLayout     = "20060102"
	shinhanDateTimeLayout = "20060102150405"
	shinhanScope          = "card.transaction.read"
	shinhanAPIVersion     = "1.0"
)

var (
	errShinhanBaseURL = errors.New("shinhan base url is required")
	errShinhanClient  = errors.New("shinhan client credentials are required")
	errShinhanLogger  = errors.New("shinhan logger is required")
)

type shinhanAuthRequest struct {
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
	GrantType    string `json:"grantType"`
	Scope        string `json:"scope"`
}

type shinhanAuthResponse struct {
	AccessToken string `json:"accessToken"`
	ExpiresIn   int    `json:"expiresIn"`
}

type shinhanTransactionRequest struct {
	CardNo    string `json:"cardNo"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type shinhanTransaction struct {
	ApprovalNo       string          `json:"approvalNo"`
	MerchantName     string          `json:"merchantName"`
	MerchantCategory string          `json:"merchantCategory"`
	Amount           decimal.Decimal `json:"amount"`
	Currency         string          `json:"currency"`
	TransactionDate  string          `json:"transactionDate"`
	Status           string          `json:"status"`
}

type shinhanTransactionResponse struct {
	Transactions []shinhanTransaction `json:"transactions"`
	TotalCount   int                  `json:"totalCount"`
}

// ShinhanProvider speaks the Shinhan corporate card API: token auth first,
// then a windowed transaction list per card.
type ShinhanProvider struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *logger.Logger
}

func NewShinhanProvider(cfg config.CardSyncConfig, logg *logger.Logger) (*ShinhanProvider, error) {
	if logg == nil {
		return nil, errShinhanLogger
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.ShinhanBaseURL), "/")
	if baseURL == "" {
		return nil, errShinhanBaseURL
	}
	if strings.TrimSpace(cfg.ShinhanClientID) == "" || strings.TrimSpace(cfg.ShinhanClientSecret) == "" {
		return nil, errShinhanClient
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &ShinhanProvider{
		baseURL:      baseURL,
		clientID:     cfg.ShinhanClientID,
		clientSecret: cfg.ShinhanClientSecret,
		httpClient:   &http.Client{Timeout: timeout},
		logger:       logg,
	}, nil
}

func (p *ShinhanProvider) Provider() enums.CardProvider {
	return enums.CardProviderShinhan
}

func (p *ShinhanProvider) FetchTransactions(ctx context.Context, card models.Card, from, to time.Time) ([]Transaction, error) {
	token, err := p.authenticate(ctx)
	if err != nil {
		return nil, err
	}

	req := shinhanTransactionRequest{
		CardNo:    card.MaskedNumber,
		StartDate: from.Format(shinhanDateLayout),
		EndDate:   to.Format(shinhanDateLayout),
	}

	var resp shinhanTransactionResponse
	if err := p.post(ctx, "/api/v1/card/transaction/list", token, req, &resp); err != nil {
		return nil, err
	}

	transactions := make([]Transaction, 0, len(resp.Transactions))
	for _, tx := range resp.Transactions {
		at, err := time.ParseInLocation(shinhanDateTimeLayout, tx.TransactionDate, time.UTC)
		if err != nil {
			p.logger.Warn(p.logger.WithFields(ctx, map[string]any{
				"approval_no":      tx.ApprovalNo,
				"transaction_date": tx.TransactionDate,
			}), "skipping transaction with malformed date")
			continue
		}
		transactions = append(transactions, Transaction{
			ApprovalNumber:   tx.ApprovalNo,
			MerchantName:     tx.MerchantName,
			MerchantCategory: tx.MerchantCategory,
			Amount:           tx.Amount,
			Currency:         tx.Currency,
			TransactionAt:    at,
			Status:           tx.Status,
		})
	}
	return transactions, nil
}

func (p *ShinhanProvider) authenticate(ctx context.Context) (string, error) {
	req := shinhanAuthRequest{
		ClientID:     p.clientID,
		ClientSecret: p.clientSecret,
		GrantType:    "client_credentials",
		Scope:        shinhanScope,
	}

	var resp shinhanAuthResponse
	if err := p.post(ctx, "/api/v1/auth/token", "", req, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", apperrors.New(apperrors.CodeDependency, "shinhan auth returned empty token")
	}
	return resp.AccessToken, nil
}

func (p *ShinhanProvider) post(ctx context.Context, path, token string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "encoding shinhan request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "building shinhan request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Version", shinhanAPIVersion)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "calling shinhan")
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return apperrors.New(apperrors.CodeDependency,
			fmt.Sprintf("shinhan returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "decoding shinhan response")
		}
	}
	return nil
}
