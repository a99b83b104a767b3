package payments_http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/ledger"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/app/payments"
	"github.com/vanshjhamb9/swaroop-admin-sub001/internal/gateway"
)

func RegisterRoutes(r chi.Router, p payments.PaymentService, l ledger.LedgerService, v gateway.SignatureVerifier, logger *zap.Logger) {
	handler := NewPaymentHandler(p, l, v, logger.With(zap.String("component", "PaymentHTTPHandler")))

	r.Route("/health", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("Credits service is healthy!"))
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Post("/", handler.InitiatePaymentHandler)
		r.Post("/webhook", handler.GatewayWebhookHandler)
		r.Get("/{merchantTxID}", handler.PaymentStatusHandler)
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Post("/", handler.ProvisionAccountHandler)
		r.Get("/{userID}/balance", handler.GetBalanceHandler)
		r.Get("/{userID}/transactions", handler.ListTransactionsHandler)
		r.Post("/{userID}/debit", handler.DebitHandler)
	})
}
