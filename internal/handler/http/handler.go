package http

import (
	"crypto/subtle"
	nethttp "net/http"
	"strings"
	"time"

	"walletledger/internal/port"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const userIDHeader = "X-User-ID"

type Tokens struct {
	Auth    string
	Admin   string
	Webhook string
}

type Handler struct {
	wallet     port.WalletService
	checkout   port.CheckoutService
	reconciler port.Reconciler
	admin      port.WithdrawalService
	validate   *validator.Validate
	tokens     Tokens
	logger     *zap.Logger
	gatherer   prometheus.Gatherer
}

func NewHandler(
	wallet port.WalletService,
	checkout port.CheckoutService,
	reconciler port.Reconciler,
	admin port.WithdrawalService,
	tokens Tokens,
	logger *zap.Logger,
	gatherer prometheus.Gatherer,
) *Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Handler{
		wallet:     wallet,
		checkout:   checkout,
		reconciler: reconciler,
		admin:      admin,
		validate:   newValidator(),
		tokens:     tokens,
		logger:     logger,
		gatherer:   gatherer,
	}
}

func (h *Handler) Routes() nethttp.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.bearer(h.tokens.Auth))
			r.Use(h.requireUser)

			r.Get("/wallet", h.getWallet)
			r.Get("/transactions", h.listTransactions)
			r.Get("/transactions/{publicID}", h.getTransaction)
			r.Post("/topups", h.startTopUp)
			r.Post("/payments", h.executePayment)
			r.Post("/withdrawals", h.requestWithdrawal)
		})

		r.Group(func(r chi.Router) {
			if h.tokens.Webhook != "" {
				r.Use(h.bearer(h.tokens.Webhook))
			}
			r.Post("/webhooks/payment", h.paymentCallback)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.bearer(h.tokens.Admin))

			r.Get("/withdrawals", h.listWithdrawals)
			r.Get("/withdrawals/{publicID}", h.getWithdrawal)
			r.Post("/withdrawals/{publicID}/approve", h.approveWithdrawal)
			r.Post("/withdrawals/{publicID}/reject", h.rejectWithdrawal)
		})
	})

	return r
}

func (h *Handler) bearer(token string) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			if token == "" || !secureCompare(extractBearerToken(r.Header.Get("Authorization")), token) {
				writeError(w, nethttp.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// requireUser trusts the user id forwarded by the authenticating proxy.
func (h *Handler) requireUser(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if strings.TrimSpace(r.Header.Get(userIDHeader)) == "" {
			writeError(w, nethttp.StatusUnauthorized, "missing user")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func userID(r *nethttp.Request) string {
	return strings.TrimSpace(r.Header.Get(userIDHeader))
}

func (h *Handler) requestLogger(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		h.logger.Info("http request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)))
	})
}

func (h *Handler) logError(r *nethttp.Request, msg string, err error) {
	h.logger.Error(msg,
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.String("path", r.URL.Path),
		zap.Error(err))
}

func extractBearerToken(header string) string {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
