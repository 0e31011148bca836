// Package square charges cards through the Square Payments API.
package square

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/richblaalid/chuckbox/internal/domain"
	"github.com/richblaalid/chuckbox/internal/ports"
)

// Square API hosts / Hôtes de l'API Square
const (
	SandboxURL    = "https://connect.squareupsandbox.com"
	ProductionURL = "https://connect.squareup.com"
)

const defaultAPIVersion = "2024-10-17"

var _ ports.PaymentGateway = (*Client)(nil)

// Options configures the client / Configure le client
type Options struct {
	Environment string // "sandbox" or "production"
	AccessToken string
	APIVersion  string
	BaseURL     string // Overrides Environment when set
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client calls the Square Payments API / Appelle l'API Square
type Client struct {
	baseURL    string
	token      string
	apiVersion string
	http       *http.Client
}

// NewClient creates a Square client / Crée un client Square
func NewClient(opts Options) (*Client, error) {
	if opts.AccessToken == "" {
		return nil, errors.New("square: access token is required")
	}
	base := opts.BaseURL
	if base == "" {
		switch opts.Environment {
		case "production":
			base = ProductionURL
		case "sandbox", "":
			base = SandboxURL
		default:
			return nil, fmt.Errorf("square: unknown environment %q", opts.Environment)
		}
	}
	version := opts.APIVersion
	if version == "" {
		version = defaultAPIVersion
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(base, "/"),
		token:      opts.AccessToken,
		apiVersion: version,
		http:       hc,
	}, nil
}

type money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type createPaymentRequest struct {
	SourceID       string `json:"source_id"`
	IdempotencyKey string `json:"idempotency_key"`
	AmountMoney    money  `json:"amount_money"`
	LocationID     string `json:"location_id,omitempty"`
	ReferenceID    string `json:"reference_id,omitempty"`
	Note           string `json:"note,omitempty"`
	BuyerEmail     string `json:"buyer_email_address,omitempty"`
	Autocomplete   bool   `json:"autocomplete"`
}

type apiError struct {
	Category string `json:"category"`
	Code     string `json:"code"`
	Detail   string `json:"detail"`
}

type createPaymentResponse struct {
	Payment *struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		ReceiptURL  string `json:"receipt_url"`
		CardDetails *struct {
			Card struct {
				Brand string `json:"card_brand"`
				Last4 string `json:"last_4"`
			} `json:"card"`
		} `json:"card_details"`
	} `json:"payment"`
	Errors []apiError `json:"errors"`
}

// CreatePayment charges a card nonce / Débite une carte
//
// Card and validation failures return ErrPaymentDeclined; transport
// failures and 5xx answers return ErrGateway.
func (c *Client) CreatePayment(ctx context.Context, req ports.ChargeRequest) (*ports.ChargeResult, error) {
	if req.IdempotencyKey == "" {
		return nil, fmt.Errorf("%w: idempotency key is required", domain.ErrInvalidInput)
	}
	body, err := json.Marshal(createPaymentRequest{
		SourceID:       req.SourceID,
		IdempotencyKey: req.IdempotencyKey,
		AmountMoney:    money{Amount: req.AmountCents, Currency: "USD"},
		LocationID:     req.LocationID,
		ReferenceID:    req.ReferenceID,
		Note:           truncate(req.Note, 500),
		BuyerEmail:     req.BuyerEmail,
		Autocomplete:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("square: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("square: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.token)
	httpReq.Header.Set("Square-Version", c.apiVersion)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", domain.ErrGateway, err)
	}
	if resp.StatusCode >= 500 {
		slog.Error("square server error", "status", resp.StatusCode)
		return nil, fmt.Errorf("%w: square returned %d", domain.ErrGateway, resp.StatusCode)
	}

	var out createPaymentResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", domain.ErrGateway, err)
	}
	if resp.StatusCode >= 400 || len(out.Errors) > 0 {
		return nil, mapErrors(resp.StatusCode, out.Errors)
	}
	if out.Payment == nil {
		return nil, fmt.Errorf("%w: response has no payment", domain.ErrGateway)
	}

	res := &ports.ChargeResult{
		PaymentID:  out.Payment.ID,
		Status:     out.Payment.Status,
		ReceiptURL: out.Payment.ReceiptURL,
	}
	if cd := out.Payment.CardDetails; cd != nil {
		res.CardBrand = cd.Card.Brand
		res.Last4 = cd.Card.Last4
	}
	if res.Status != "COMPLETED" && res.Status != "APPROVED" {
		return res, fmt.Errorf("%w: payment status %s", domain.ErrPaymentDeclined, res.Status)
	}
	return res, nil
}

func mapErrors(status int, errs []apiError) error {
	detail := fmt.Sprintf("status %d", status)
	if len(errs) > 0 {
		detail = errs[0].Code
		if errs[0].Detail != "" {
			detail += ": " + errs[0].Detail
		}
	}
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden, status == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", domain.ErrGateway, detail)
	case len(errs) > 0 && (errs[0].Category == "PAYMENT_METHOD_ERROR" || errs[0].Category == "INVALID_REQUEST_ERROR"):
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, detail)
	case status >= 400 && status < 500:
		return fmt.Errorf("%w: %s", domain.ErrPaymentDeclined, detail)
	}
	return fmt.Errorf("%w: %s", domain.ErrGateway, detail)
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
