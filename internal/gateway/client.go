package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// OutcomeStatus — статус платежа со стороны шлюза.
type OutcomeStatus string

const (
	OutcomeSuccess OutcomeStatus = "SUCCESS"
	OutcomeFailed  OutcomeStatus = "FAILED"
	OutcomePending OutcomeStatus = "PENDING"
)

// Outcome — результат платежа, полученный от шлюза (через webhook или опрос).
type Outcome struct {
	Status      OutcomeStatus
	GatewayTxID string
	Reason      string
}

// Terminal сообщает, что шлюз вынес окончательное решение по платежу.
func (o Outcome) Terminal() bool {
	return o.Status == OutcomeSuccess || o.Status == OutcomeFailed
}

// Session — платежная сессия, созданная шлюзом; пользователь завершает
// оплату по RedirectURL.
type Session struct {
	GatewayTxID string
	RedirectURL string
}

type Client interface {
	CreateSession(ctx context.Context, merchantTxID, userID string, amount decimal.Decimal) (*Session, error)
	QueryStatus(ctx context.Context, merchantTxID string) (*Outcome, error)
}

type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewHTTPClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type createSessionRequest struct {
	MerchantTxID string          `json:"merchant_tx_id"`
	UserID       string          `json:"user_id"`
	Amount       decimal.Decimal `json:"amount"`
}

type createSessionResponse struct {
	GatewayTxID string `json:"gateway_tx_id"`
	RedirectURL string `json:"redirect_url"`
}

func (c *HTTPClient) CreateSession(ctx context.Context, merchantTxID, userID string, amount decimal.Decimal) (*Session, error) {
	body, err := json.Marshal(createSessionRequest{
		MerchantTxID: merchantTxID,
		UserID:       userID,
		Amount:       amount,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal create session request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/sessions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build create session request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway create session call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Gateway returned non-success status for create session",
			zap.String("merchant_tx_id", merchantTxID),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("gateway create session returned status %d", resp.StatusCode)
	}

	var out createSessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode create session response: %w", err)
	}
	return &Session{GatewayTxID: out.GatewayTxID, RedirectURL: out.RedirectURL}, nil
}

type queryStatusResponse struct {
	Status      string `json:"status"`
	GatewayTxID string `json:"gateway_tx_id"`
	Reason      string `json:"reason"`
}

func (c *HTTPClient) QueryStatus(ctx context.Context, merchantTxID string) (*Outcome, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/transactions/"+merchantTxID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build query status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway query status call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Warn("Gateway returned non-success status for query status",
			zap.String("merchant_tx_id", merchantTxID),
			zap.Int("status_code", resp.StatusCode),
			zap.ByteString("body", raw),
		)
		return nil, fmt.Errorf("gateway query status returned status %d", resp.StatusCode)
	}

	var out queryStatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode query status response: %w", err)
	}

	outcome := &Outcome{GatewayTxID: out.GatewayTxID, Reason: out.Reason}
	switch out.Status {
	case "SUCCESS", "COMPLETED", "PAID":
		outcome.Status = OutcomeSuccess
	case "FAILED", "CANCELLED", "DECLINED":
		outcome.Status = OutcomeFailed
	default:
		outcome.Status = OutcomePending
	}
	return outcome, nil
}
