// README: Payment collaborators that release held booking funds to the carrier.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"gohappygo/internal/modules/transaction"
)

// Gateway moves the money of a pending transaction to its payee. Release must
// be safe to call again for the same transaction.
type Gateway interface {
	Release(ctx context.Context, tx transaction.Transaction) error
}

// Ledger keeps funds in platform custody: releasing is a bookkeeping entry
// only, recorded in the log.
type Ledger struct {
	log *slog.Logger
}

func NewLedger(log *slog.Logger) *Ledger {
	return &Ledger{log: log}
}

func (l *Ledger) Release(ctx context.Context, tx transaction.Transaction) error {
	l.log.InfoContext(ctx, "ledger release",
		"transaction_id", tx.ID,
		"request_id", tx.RequestID,
		"payee_id", tx.PayeeID,
		"amount", tx.Money().String(),
	)
	return nil
}

// HTTP posts payout instructions to an external payments API. The transaction
// id is sent as the idempotency key so retries never pay twice.
type HTTP struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTP(baseURL, apiKey string, timeout time.Duration) *HTTP {
	return &HTTP{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type payoutRequest struct {
	TransactionID string `json:"transactionId"`
	RequestID     string `json:"requestId"`
	PayerID       string `json:"payerId"`
	PayeeID       string `json:"payeeId"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
}

func (h *HTTP) Release(ctx context.Context, tx transaction.Transaction) error {
	body, err := json.Marshal(payoutRequest{
		TransactionID: string(tx.ID),
		RequestID:     string(tx.RequestID),
		PayerID:       string(tx.PayerID),
		PayeeID:       string(tx.PayeeID),
		Amount:        tx.Amount.StringFixed(2),
		Currency:      tx.Currency,
	})
	if err != nil {
		return fmt.Errorf("payment.HTTP.Release: encode: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.baseURL+"/payouts", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("payment.HTTP.Release: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Idempotency-Key", string(tx.ID))
	if h.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+h.apiKey)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("payment.HTTP.Release: %w", err)
	}
	defer resp.Body.Close()

	// 409: the provider already executed this payout
	if resp.StatusCode < 300 || resp.StatusCode == http.StatusConflict {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("payment.HTTP.Release: payout %s: status %d: %s", tx.ID, resp.StatusCode, strings.TrimSpace(string(msg)))
}
