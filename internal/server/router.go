package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	ordercontroller "radagast/internal/order/controller"
	productcontroller "radagast/internal/product/controller"
)

func NewRouter(productCtrl *productcontroller.ProductController, orderCtrl *ordercontroller.OrderController, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", orderCtrl.CreateOrder)
			r.Post("/expire-pending", orderCtrl.ExpirePending)
			r.Get("/{orderRef}", orderCtrl.GetOrder)
			r.Patch("/{orderRef}/status", orderCtrl.UpdateStatus)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/{productId}", productCtrl.GetProduct)
			r.Post("/{productId}/restock", productCtrl.Restock)
			r.Patch("/{productId}/prices", productCtrl.UpdatePrices)
			r.Get("/{productId}/price-history", productCtrl.GetPriceHistory)
		})
	})

	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}
