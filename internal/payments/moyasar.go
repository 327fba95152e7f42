package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Gateway-side payment statuses.
const (
	GatewayStatusInitiated = "initiated"
	GatewayStatusPaid      = "paid"
	GatewayStatusFailed    = "failed"
	GatewayStatusRefunded  = "refunded"
	GatewayStatusVoided    = "voided"
)

// GatewayPayment mirrors the Moyasar payment object; Raw keeps the whole
// response body for the audit column.
type GatewayPayment struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	Amount      int    `json:"amount"` // minor units (halalas)
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Source      struct {
		Type           string `json:"type"`
		TransactionURL string `json:"transaction_url"`
	} `json:"source"`

	Raw json.RawMessage `json:"-"`
}

type CreatePaymentRequest struct {
	Amount      int           `json:"amount"` // minor units
	Currency    string        `json:"currency"`
	Description string        `json:"description"`
	CallbackURL string        `json:"callback_url"`
	Source      PaymentSource `json:"source"`
}

type PaymentSource struct {
	Type string `json:"type"`
}

// MoyasarClient talks to the Moyasar REST API with basic auth on the
// secret key.
type MoyasarClient struct {
	baseURL   string
	secretKey string
	httpc     *http.Client
}

func NewMoyasarClient(baseURL, secretKey string) *MoyasarClient {
	return &MoyasarClient{
		baseURL:   baseURL,
		secretKey: secretKey,
		httpc:     &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *MoyasarClient) CreatePayment(ctx context.Context, req CreatePaymentRequest) (GatewayPayment, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return GatewayPayment{}, fmt.Errorf("marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, "/payments", bytes.NewReader(body))
}

func (c *MoyasarClient) GetPayment(ctx context.Context, paymentID string) (GatewayPayment, error) {
	return c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil)
}

func (c *MoyasarClient) do(ctx context.Context, method, path string, body io.Reader) (GatewayPayment, error) {
	var p GatewayPayment

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return p, fmt.Errorf("new request: %w", err)
	}
	req.SetBasicAuth(c.secretKey, "")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return p, fmt.Errorf("moyasar %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return p, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return p, fmt.Errorf("moyasar %s %s: status %d: %s", method, path, resp.StatusCode, raw)
	}

	if err := json.Unmarshal(raw, &p); err != nil {
		return p, fmt.Errorf("decode payment: %w", err)
	}
	p.Raw = raw
	return p, nil
}
