package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/ports/adapter"
)

var _ adapter.PaymentGateway = (*YooKassaGateway)(nil)

const defaultAPIURL = "https://api.yookassa.ru/v3"

// YooKassaGateway implements adapter.PaymentGateway against the YooKassa v3
// REST API. Creation is made retry-safe by the Idempotence-Key header; status
// is fetched with a plain GET.
type YooKassaGateway struct {
	shopID    string
	secretKey string
	returnURL string
	apiURL    string
	client    *http.Client
}

func NewYooKassaGateway(shopID, secretKey, returnURL, apiURL string) (*YooKassaGateway, error) {
	if shopID == "" || secretKey == "" {
		return nil, errors.New("yookassa credentials empty")
	}
	if _, err := url.Parse(returnURL); err != nil {
		return nil, fmt.Errorf("invalid return url: %w", err)
	}
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &YooKassaGateway{
		shopID:    shopID,
		secretKey: secretKey,
		returnURL: returnURL,
		apiURL:    apiURL,
		client:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

func (g *YooKassaGateway) Name() string { return "yookassa" }

type yooAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type yooConfirmation struct {
	Type            string `json:"type"`
	ReturnURL       string `json:"return_url,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
}

type yooPayment struct {
	ID           string           `json:"id"`
	Status       string           `json:"status"`
	Amount       yooAmount        `json:"amount"`
	Confirmation *yooConfirmation `json:"confirmation,omitempty"`
}

// CreatePayment POSTs /payments with the local payment id as Idempotence-Key
// and returns the gateway id plus the redirect URL the buyer completes the
// payment at.
func (g *YooKassaGateway) CreatePayment(ctx context.Context, req adapter.CreatePaymentRequest) (adapter.CreatePaymentResult, error) {
	currency := req.Currency
	if currency == "" {
		currency = "RUB"
	}
	returnURL := req.ReturnURL
	if returnURL == "" {
		returnURL = g.returnURL
	}
	payload := map[string]any{
		"amount": yooAmount{
			Value:    decimal.NewFromInt(req.Amount).StringFixed(2),
			Currency: currency,
		},
		"capture":      true,
		"confirmation": yooConfirmation{Type: "redirect", ReturnURL: returnURL},
		"description":  req.Description,
	}
	if len(req.Metadata) > 0 {
		payload["metadata"] = req.Metadata
	}
	b, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL+"/payments", bytes.NewReader(b))
	if err != nil {
		return adapter.CreatePaymentResult{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", req.IdempotencyKey)
	httpReq.SetBasicAuth(g.shopID, g.secretKey)

	var out yooPayment
	if err := g.do(httpReq, &out); err != nil {
		return adapter.CreatePaymentResult{}, err
	}
	if out.ID == "" || out.Confirmation == nil || out.Confirmation.ConfirmationURL == "" {
		return adapter.CreatePaymentResult{}, fmt.Errorf("%w: create response missing confirmation url", domain.ErrGatewayRejected)
	}
	return adapter.CreatePaymentResult{RemoteID: out.ID, RedirectURL: out.Confirmation.ConfirmationURL}, nil
}

// GetPayment fetches the authoritative remote status.
func (g *YooKassaGateway) GetPayment(ctx context.Context, remoteID string) (adapter.RemotePayment, error) {
	if remoteID == "" {
		return adapter.RemotePayment{}, domain.ErrInvalidArgument
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiURL+"/payments/"+url.PathEscape(remoteID), nil)
	if err != nil {
		return adapter.RemotePayment{}, err
	}
	httpReq.SetBasicAuth(g.shopID, g.secretKey)

	var out yooPayment
	if err := g.do(httpReq, &out); err != nil {
		return adapter.RemotePayment{}, err
	}
	if out.ID == "" || out.Status == "" {
		return adapter.RemotePayment{}, fmt.Errorf("%w: payment response missing status", domain.ErrGatewayRejected)
	}
	return adapter.RemotePayment{RemoteID: out.ID, Status: out.Status}, nil
}

// do executes the request and maps transport failures, 5xx and 429 to
// ErrGatewayUnavailable (transient, retry later) and other 4xx to
// ErrGatewayRejected. Response bodies of rejections stay in the wrapped error
// for logging and are never shown to end users.
func (g *YooKassaGateway) do(req *http.Request, out any) error {
	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: http %d", domain.ErrGatewayUnavailable, resp.StatusCode)
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: http %d: %s", domain.ErrGatewayRejected, resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrGatewayRejected, err)
	}
	return nil
}
