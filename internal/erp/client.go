package erp

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

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/jihoon-choi/receiptlink-backend/internal/matching"
	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/enums"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

const (
	openLedgerStatus  = "OPEN"
	openLedgerPageCap = 1000

	headerAPIKey    = "X-API-Key"
	headerRequestID = "X-Request-ID"

	// Ledger dates travel as compact yyyyMMdd strings.
	ledgerDateLayout = "20060102"
)

var (
	errBaseURLRequired  = errors.New("erp base url is required")
	errAPITokenRequired = errors.New("erp api token is required")
	errLoggerRequired   = errors.New("erp logger is required")
)

var pushPaths = map[enums.OutboxEventType]string{
	enums.OutboxEventTypeMatchCreated:   "/api/matching/create",
	enums.OutboxEventTypeMatchUpdated:   "/api/matching/create",
	enums.OutboxEventTypeMatchApproved:  "/api/matching/approve",
	enums.OutboxEventTypeMatchRejected:  "/api/matching/reject",
	enums.OutboxEventTypeMatchCancelled: "/api/matching/cancel",
}

// HTTPGateway implements Gateway against the ledger's REST surface with
// centralized auth headers, request tagging, and error mapping.
type HTTPGateway struct {
	baseURL     string
	apiToken    string
	maxAttempts int
	httpClient  *http.Client
	logger      *logger.Logger
}

// NewHTTPGateway validates the ERP credentials and builds the gateway.
func NewHTTPGateway(cfg config.ERPConfig, logg *logger.Logger) (*HTTPGateway, error) {
	if logg == nil {
		return nil, errLoggerRequired
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, errBaseURLRequired
	}
	apiToken := strings.TrimSpace(cfg.APIToken)
	if apiToken == "" {
		return nil, errAPITokenRequired
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	return &HTTPGateway{
		baseURL:     baseURL,
		apiToken:    apiToken,
		maxAttempts: maxAttempts,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logg,
	}, nil
}

// GetLedgerInfo fetches a single ledger entry by its external identifier.
func (g *HTTPGateway) GetLedgerInfo(ctx context.Context, ledgerID string) (*matching.Candidate, error) {
	ledgerID = strings.TrimSpace(ledgerID)
	if ledgerID == "" {
		return nil, apperrors.New(apperrors.CodeValidation, "ledger id is required")
	}

	var resp ledgerResponse
	status, err := g.doWithRetry(ctx, http.MethodGet, "/api/ledger/"+ledgerID, nil, &resp)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, apperrors.New(apperrors.CodeNotFound, "ledger entry not found")
	}

	candidate := toCandidate(resp)
	return &candidate, nil
}

// GetOpenLedgers fetches the unreconciled ledger entries inside the window.
// The result is the candidate pool shared by a whole auto-match batch.
func (g *HTTPGateway) GetOpenLedgers(ctx context.Context, from, to time.Time) ([]matching.Candidate, error) {
	if from.IsZero() || to.IsZero() || to.Before(from) {
		return nil, apperrors.New(apperrors.CodeValidation, "ledger window is invalid")
	}

	body := openLedgersRequest{
		StartDate: from.Format(ledgerDateLayout),
		EndDate:   to.Format(ledgerDateLayout),
		Status:    openLedgerStatus,
		PageSize:  openLedgerPageCap,
	}

	var resp ledgerListResponse
	if _, err := g.doWithRetry(ctx, http.MethodPost, "/api/ledgers/open", body, &resp); err != nil {
		return nil, err
	}

	candidates := make([]matching.Candidate, 0, len(resp.Ledgers))
	for _, ledger := range resp.Ledgers {
		candidates = append(candidates, toCandidate(ledger))
	}
	return candidates, nil
}

// PushEvent forwards an outbox payload to the matching endpoint for its event
// type. Pushes are not retried here; the relay owns attempt accounting.
func (g *HTTPGateway) PushEvent(ctx context.Context, eventType enums.OutboxEventType, payload json.RawMessage) error {
	path, ok := pushPaths[eventType]
	if !ok {
		return apperrors.New(apperrors.CodeValidation, fmt.Sprintf("no erp endpoint for event type %q", eventType))
	}
	if len(payload) == 0 {
		return apperrors.New(apperrors.CodeValidation, "event payload is empty")
	}

	_, err := g.do(ctx, http.MethodPost, path, json.RawMessage(payload), nil)
	return err
}

func (g *HTTPGateway) doWithRetry(ctx context.Context, method, path string, body, out any) (int, error) {
	var status int
	backoff := retry.WithMaxRetries(uint64(g.maxAttempts-1), retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var doErr error
		status, doErr = g.do(ctx, method, path, body, out)
		if doErr == nil || status == http.StatusNotFound {
			return nil
		}
		g.logger.Warn(g.logger.WithField(ctx, "path", path), "erp request failed")
		return retry.RetryableError(doErr)
	})
	if err != nil {
		return 0, err
	}
	return status, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, body, out any) (int, error) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return 0, apperrors.Wrap(apperrors.CodeInternal, err, "encoding erp request")
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "building erp request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, g.apiToken)
	req.Header.Set(headerRequestID, uuid.NewString())

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeDependency, err, "calling erp")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return resp.StatusCode, nil
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return resp.StatusCode, apperrors.New(apperrors.CodeDependency,
			fmt.Sprintf("erp returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, apperrors.Wrap(apperrors.CodeDependency, err, "decoding erp response")
		}
	}
	return resp.StatusCode, nil
}
