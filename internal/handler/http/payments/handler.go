package payments_http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/ledger"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/payments"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/domain"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/gateway"
)

const signatureHeader = "X-Gateway-Signature"

type PaymentHandler struct {
	payments payments.PaymentService
	ledger   ledger.LedgerService
	verifier gateway.SignatureVerifier
	logger   *zap.Logger
}

func NewPaymentHandler(p payments.PaymentService, l ledger.LedgerService, v gateway.SignatureVerifier, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{payments: p, ledger: l, verifier: v, logger: logger}
}

type InitiatePaymentRequest struct {
	UserID        string          `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
}

type InitiatePaymentResponse struct {
	MerchantTxID string `json:"merchant_tx_id"`
	RedirectURL  string `json:"redirect_url,omitempty"`
	Error        string `json:"error,omitempty"`
}

type PaymentStatusResponse struct {
	MerchantTxID string `json:"merchant_tx_id"`
	Status       string `json:"status"`
}

type GatewayWebhookRequest struct {
	MerchantTxID string `json:"merchant_tx_id"`
	GatewayTxID  string `json:"gateway_tx_id"`
	Outcome      string `json:"outcome"`
	Reason       string `json:"reason,omitempty"`
}

type ProvisionAccountRequest struct {
	UserID      string          `json:"user_id"`
	PlanType    string          `json:"plan_type"`
	CreditLimit decimal.Decimal `json:"credit_limit"`
}

type AccountResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	PlanType    string `json:"plan_type"`
	Balance     string `json:"balance"`
	CreditLimit string `json:"credit_limit"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type BalanceResponse struct {
	UserID   string `json:"user_id"`
	PlanType string `json:"plan_type"`
	Balance  string `json:"balance"`
}

type DebitRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

type LedgerEntryResponse struct {
	Seq          int64  `json:"seq"`
	Kind         string `json:"kind"`
	Amount       string `json:"amount"`
	Description  string `json:"description"`
	BalanceAfter string `json:"balance_after"`
	OccurredAt   string `json:"occurred_at"`
}

func (h *PaymentHandler) InitiatePaymentHandler(w http.ResponseWriter, r *http.Request) {
	var req InitiatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Некорректное тело запроса для InitiatePayment", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	result, err := h.payments.Initiate(r.Context(), req.UserID, req.Amount, req.PaymentMethod)
	if err != nil {
		if errors.Is(err, domain.ErrGatewayUnavailable) && result != nil {
			// Попытка создана и будет сверена поллером; клиент получает ключ.
			h.logger.Warn("Шлюз недоступен при инициации платежа", zap.String("merchant_tx_id", result.MerchantTxID))
			writeJSON(w, http.StatusBadGateway, InitiatePaymentResponse{
				MerchantTxID: result.MerchantTxID,
				Error:        "payment gateway unavailable",
			})
			return
		}
		h.logger.Error("Не удалось инициировать платеж", zap.String("user_id", req.UserID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusCreated, InitiatePaymentResponse{
		MerchantTxID: result.MerchantTxID,
		RedirectURL:  result.RedirectURL,
	})
}

func (h *PaymentHandler) PaymentStatusHandler(w http.ResponseWriter, r *http.Request) {
	merchantTxID := chi.URLParam(r, "merchantTxID")
	if merchantTxID == "" {
		http.Error(w, "Merchant transaction ID is required", http.StatusBadRequest)
		return
	}

	attempt, err := h.payments.Status(r.Context(), merchantTxID)
	if err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			http.Error(w, "Unknown transaction", http.StatusNotFound)
			return
		}
		h.logger.Error("Не удалось получить статус платежа", zap.String("merchant_tx_id", merchantTxID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, PaymentStatusResponse{
		MerchantTxID: attempt.MerchantTxID,
		Status:       string(attempt.Status),
	})
}

func (h *PaymentHandler) GatewayWebhookHandler(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	if !h.verifier.Verify(body, r.Header.Get(signatureHeader)) {
		h.logger.Warn("Webhook с неверной подписью отклонен")
		http.Error(w, "Invalid signature", http.StatusUnauthorized)
		return
	}

	var req GatewayWebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.logger.Error("Некорректное тело webhook-а", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.MerchantTxID == "" {
		http.Error(w, "Merchant transaction ID is required", http.StatusBadRequest)
		return
	}

	var status gateway.OutcomeStatus
	switch req.Outcome {
	case "SUCCESS":
		status = gateway.OutcomeSuccess
	case "FAILED":
		status = gateway.OutcomeFailed
	default:
		http.Error(w, "Unsupported outcome", http.StatusBadRequest)
		return
	}

	outcome := gateway.Outcome{Status: status, GatewayTxID: req.GatewayTxID, Reason: req.Reason}
	if err := h.payments.Reconcile(r.Context(), req.MerchantTxID, outcome); err != nil {
		if errors.Is(err, domain.ErrUnknownTransaction) {
			http.Error(w, "Unknown transaction", http.StatusNotFound)
			return
		}
		h.logger.Error("Не удалось сверить результат из webhook-а",
			zap.String("merchant_tx_id", req.MerchantTxID),
			zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *PaymentHandler) ProvisionAccountHandler(w http.ResponseWriter, r *http.Request) {
	var req ProvisionAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Некорректное тело запроса для ProvisionAccount", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.UserID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	account, err := h.ledger.Provision(r.Context(), req.UserID, domain.PlanType(req.PlanType), req.CreditLimit)
	if err != nil {
		if errors.Is(err, domain.ErrAccountAlreadyExists) {
			http.Error(w, "Account already exists for this user", http.StatusConflict)
			return
		}
		h.logger.Error("Не удалось создать счет пользователя", zap.String("user_id", req.UserID), zap.Error(err))
		http.Error(w, "Invalid account parameters", http.StatusBadRequest)
		return
	}

	writeJSON(w, http.StatusCreated, AccountResponse{
		ID:          account.ID,
		UserID:      account.UserID,
		PlanType:    string(account.PlanType),
		Balance:     account.Balance.String(),
		CreditLimit: account.CreditLimit.String(),
		CreatedAt:   account.CreatedAt.Format(time.RFC3339),
		UpdatedAt:   account.UpdatedAt.Format(time.RFC3339),
	})
}

func (h *PaymentHandler) GetBalanceHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	account, err := h.ledger.Balance(r.Context(), userID)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			http.Error(w, "Account not found for user", http.StatusNotFound)
			return
		}
		h.logger.Error("Не удалось получить баланс пользователя", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, BalanceResponse{
		UserID:   account.UserID,
		PlanType: string(account.PlanType),
		Balance:  account.Balance.String(),
	})
}

func (h *PaymentHandler) ListTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}

	entries, err := h.ledger.Transactions(r.Context(), userID, limit)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			http.Error(w, "Account not found for user", http.StatusNotFound)
			return
		}
		h.logger.Error("Не удалось получить историю леджера", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	resp := make([]LedgerEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, LedgerEntryResponse{
			Seq:          e.Seq,
			Kind:         string(e.Kind),
			Amount:       e.Amount.String(),
			Description:  e.Description,
			BalanceAfter: e.BalanceAfter.String(),
			OccurredAt:   e.OccurredAt.Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PaymentHandler) DebitHandler(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		http.Error(w, "User ID is required", http.StatusBadRequest)
		return
	}

	var req DebitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Некорректное тело запроса для Debit", zap.Error(err))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		http.Error(w, "Amount must be positive", http.StatusBadRequest)
		return
	}

	entry, err := h.ledger.Apply(r.Context(), userID, domain.EntryDebit, req.Amount, req.Description)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientCredit) {
			h.logger.Warn("Недостаточно кредита для списания",
				zap.String("user_id", userID),
				zap.String("amount", req.Amount.String()))
			http.Error(w, "Insufficient credit", http.StatusBadRequest)
			return
		}
		if errors.Is(err, domain.ErrAccountArchived) {
			http.Error(w, "Account is archived", http.StatusConflict)
			return
		}
		h.logger.Error("Не удалось выполнить списание", zap.String("user_id", userID), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, LedgerEntryResponse{
		Seq:          entry.Seq,
		Kind:         string(entry.Kind),
		Amount:       entry.Amount.String(),
		Description:  entry.Description,
		BalanceAfter: entry.BalanceAfter.String(),
		OccurredAt:   entry.OccurredAt.Format(time.RFC3339),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
