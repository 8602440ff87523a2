package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/mvance/pairbook/internal/service"
)

// NewRouter creates a chi router with all routes registered and request
// logging middleware.
func NewRouter(
	pairSvc *service.PairService,
	orderSvc *service.OrderService,
	marketSvc *service.MarketService,
	accountSvc *service.AccountService,
	logger *slog.Logger,
) chi.Router {
	r := chi.NewRouter()

	r.Use(requestLogging(logger))

	pairH := NewPairHandler(pairSvc)
	orderH := NewOrderHandler(orderSvc)
	marketH := NewMarketHandler(marketSvc)
	accountH := NewAccountHandler(accountSvc)

	// Health check.
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Pair administration.
	r.Post("/pairs", pairH.Register)
	r.Get("/pairs", pairH.List)

	r.Route("/pairs/{base}/{quote}", func(r chi.Router) {
		r.Get("/", pairH.Get)
		r.Patch("/", pairH.SetEnabled)

		// Orders.
		r.Post("/orders", orderH.Submit)
		r.Get("/orders/{order_id}", orderH.Get)
		r.Delete("/orders/{order_id}", orderH.Cancel)

		// Market data.
		r.Get("/book", marketH.Book)
		r.Get("/price", marketH.Price)
		r.Get("/trades", marketH.Trades)

		// Traders.
		r.Get("/traders/{trader}/orders", orderH.TraderOrders)
		r.Get("/traders/{trader}/balance", accountH.Balance)
		r.Post("/withdrawals", accountH.Withdraw)
		r.Post("/fees/withdrawals", accountH.WithdrawFees)
	})

	return r
}

// pairIDFromURL rebuilds the pair id from the base/quote path segments.
func pairIDFromURL(r *http.Request) string {
	return chi.URLParam(r, "base") + "/" + chi.URLParam(r, "quote")
}

// requestLogging returns middleware that logs each request's method, path,
// status code, and duration using slog.
func requestLogging(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.status),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
