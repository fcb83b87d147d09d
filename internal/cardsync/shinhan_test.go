package cardsync

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jihoon-choi/receiptlink-backend/pkg/config"
	"github.com/jihoon-choi/receiptlink-backend/pkg/db/models"
	apperrors "github.com/jihoon-choi/receiptlink-backend/pkg/errors"
	"github.com/jihoon-choi/receiptlink-backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "cardsync-test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newShinhanServer(t *testing.T, listHandler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		var req shinhanAuthRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding auth request: %v", err)
		}
		if req.ClientID != "cid" || req.ClientSecret != "secret" || req.GrantType != "client_credentials" {
			t.Fatalf("unexpected auth request %+v", req)
		}
		json.NewEncoder(w).Encode(shinhanAuthResponse{AccessToken: "tok-1", ExpiresIn: 3600})
	})
	mux.HandleFunc("/api/v1/card/transaction/list", listHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newShinhanProvider(t *testing.T, baseURL string) *ShinhanProvider {
	t.Helper()
	p, err := NewShinhanProvider(config.CardSyncConfig{
		ShinhanBaseURL:      baseURL,
		ShinhanClientID:     "cid",
		ShinhanClientSecret: "secret",
		Timeout:             2 * time.Second,
	}, testLogger())
	if err != nil {
		t.Fatalf("building provider: %v", err)
	}
	return p
}

func TestShinhanFetchTransactions(t *testing.T) {
	srv := newShinhanServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok-1" {
			t.Fatalf("missing bearer token, got %q", got)
		}
		if got := r.Header.Get("X-API-Version"); got != "1.0" {
			t.Fatalf("missing api version header, got %q", got)
		}
		var req shinhanTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding list request: %v", err)
		}
		if req.StartDate != "20260801" || req.EndDate != "20260807" {
			t.Fatalf("unexpected window %s..%s", req.StartDate, req.EndDate)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{
				{
					"approvalNo":       "AP-1001",
					"merchantName":     "서울택시",
					"merchantCategory": "운수업",
					"amount":           "50000",
					"currency":         "KRW",
					"transactionDate":  "20260803141500",
					"status":           "APPROVED",
				},
			},
			"totalCount": 1,
		})
	})
	p := newShinhanProvider(t, srv.URL)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 7, 0, 0, 0, 0, time.UTC)
	transactions, err := p.FetchTransactions(context.Background(), models.Card{MaskedNumber: "1234-****-5678"}, from, to)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transactions) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(transactions))
	}
	tx := transactions[0]
	if tx.ApprovalNumber != "AP-1001" || tx.MerchantName != "서울택시" {
		t.Fatalf("unexpected transaction %+v", tx)
	}
	want := time.Date(2026, 8, 3, 14, 15, 0, 0, time.UTC)
	if !tx.TransactionAt.Equal(want) {
		t.Fatalf("unexpected transaction time %v", tx.TransactionAt)
	}
}

func TestShinhanSkipsMalformedDates(t *testing.T) {
	srv := newShinhanServer(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"transactions": []map[string]any{
				{"approvalNo": "AP-1", "amount": "1000", "transactionDate": "not-a-date"},
				{"approvalNo": "AP-2", "amount": "2000", "transactionDate": "20260803141500"},
			},
		})
	})
	p := newShinhanProvider(t, srv.URL)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	transactions, err := p.FetchTransactions(context.Background(), models.Card{}, from, from.AddDate(0, 0, 7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transactions) != 1 || transactions[0].ApprovalNumber != "AP-2" {
		t.Fatalf("expected only the well-formed row, got %+v", transactions)
	}
}

func TestShinhanAuthFailureSurfacesDependencyError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/token", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	p := newShinhanProvider(t, srv.URL)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	_, err := p.FetchTransactions(context.Background(), models.Card{}, from, from.AddDate(0, 0, 7))
	if !apperrors.HasCode(err, apperrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
}

func TestNewShinhanProviderValidatesConfig(t *testing.T) {
	if _, err := NewShinhanProvider(config.CardSyncConfig{ShinhanClientID: "a", ShinhanClientSecret: "b"}, testLogger()); err == nil {
		t.Fatal("expected error for missing base url")
	}
	if _, err := NewShinhanProvider(config.CardSyncConfig{ShinhanBaseURL: "http://x"}, testLogger()); err == nil {
		t.Fatal("expected error for missing credentials")
	}
	if _, err := NewShinhanProvider(config.CardSyncConfig{ShinhanBaseURL: "http://x", ShinhanClientID: "a", ShinhanClientSecret: "b"}, nil); err == nil {
		t.Fatal("expected error for missing logger")
	}
}
