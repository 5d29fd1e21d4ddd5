package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/caconnect/CAConnect/internal/pkg/env"
)

const defaultBaseURL = "https://api.razorpay.com/v1"

// RazorpayClient talks to the Razorpay Orders/Payments/Refunds API over
// HTTP basic auth. Amounts cross the wire in paise.
type RazorpayClient struct {
	baseURL    string
	keyID      string
	keySecret  string
	httpClient *http.Client
}

// NewRazorpayClient builds a client from environment configuration.
func NewRazorpayClient() *RazorpayClient {
	return &RazorpayClient{
		baseURL:   env.GetEnv("RAZORPAY_BASE_URL", defaultBaseURL),
		keyID:     env.GetEnv("RAZORPAY_KEY_ID", ""),
		keySecret: env.GetEnv("RAZORPAY_KEY_SECRET", ""),
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func toPaise(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromPaise(paise int64) float64 {
	return float64(paise) / 100
}

func (c *RazorpayClient) CreateOrder(ctx context.Context, amount float64, currency, receipt string, notes map[string]string) (*Order, error) {
	body := map[string]interface{}{
		"amount":   toPaise(amount),
		"currency": currency,
		"receipt":  receipt,
	}
	if len(notes) > 0 {
		body["notes"] = notes
	}

	var resp struct {
		ID       string `json:"id"`
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
		Receipt  string `json:"receipt"`
	}
	if err := c.do(ctx, http.MethodPost, "/orders", body, &resp); err != nil {
		return nil, err
	}

	return &Order{
		ID:       resp.ID,
		Amount:   fromPaise(resp.Amount),
		Currency: resp.Currency,
		Receipt:  resp.Receipt,
	}, nil
}

func (c *RazorpayClient) FetchPayment(ctx context.Context, paymentID string) (*PaymentEntity, error) {
	var resp struct {
		ID               string `json:"id"`
		OrderID          string `json:"order_id"`
		Amount           int64  `json:"amount"`
		Currency         string `json:"currency"`
		Method           string `json:"method"`
		Status           string `json:"status"`
		ErrorDescription string `json:"error_description"`
	}
	if err := c.do(ctx, http.MethodGet, "/payments/"+paymentID, nil, &resp); err != nil {
		return nil, err
	}

	return &PaymentEntity{
		ID:               resp.ID,
		OrderID:          resp.OrderID,
		Amount:           fromPaise(resp.Amount),
		Currency:         resp.Currency,
		Method:           resp.Method,
		Status:           resp.Status,
		ErrorDescription: resp.ErrorDescription,
	}, nil
}

func (c *RazorpayClient) Refund(ctx context.Context, paymentID string, amount float64) (*RefundEntity, error) {
	body := map[string]interface{}{
		"amount": toPaise(amount),
	}

	var resp struct {
		ID        string `json:"id"`
		PaymentID string `json:"payment_id"`
		Amount    int64  `json:"amount"`
	}
	if err := c.do(ctx, http.MethodPost, "/payments/"+paymentID+"/refund", body, &resp); err != nil {
		return nil, err
	}

	return &RefundEntity{
		ID:        resp.ID,
		PaymentID: resp.PaymentID,
		Amount:    fromPaise(resp.Amount),
	}, nil
}

func (c *RazorpayClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.keyID, c.keySecret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network failures may succeed on retry.
		return &Error{Code: "network_error", Description: err.Error(), Temporary: true}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Code: "read_error", Description: err.Error(), Temporary: true}
	}

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Code        string `json:"code"`
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.Unmarshal(raw, &apiErr)
		desc := apiErr.Error.Description
		if desc == "" {
			desc = fmt.Sprintf("unexpected status %d", resp.StatusCode)
		}
		return &Error{
			Code:        apiErr.Error.Code,
			Description: desc,
			Temporary:   resp.StatusCode >= 500,
		}
	}

	if out != nil {
		return json.Unmarshal(raw, out)
	}
	return nil
}
