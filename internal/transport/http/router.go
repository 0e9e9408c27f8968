package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/dop/internal/domain"
)

// RouterConfig собирает зависимости HTTP-маршрутизатора.
type RouterConfig struct {
	Orders      *OrderHandler
	Resolver    PrincipalResolver
	Idempotency domain.IdempotencyRepository
	// IdempotencyTTL ограничивает срок хранения idempotency-записей.
	IdempotencyTTL time.Duration
	Logger         *log.Entry
}

// NewRouter строит маршруты API заказов.
//
// Служебные маршруты (/metrics, /healthz) живут на отдельном порту
// и сюда не попадают.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	ttl := cfg.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		// Публичное оформление заказа: без аутентификации,
		// с защитой от повторной отправки формы.
		r.With(withIdempotency(cfg.Idempotency, ttl, logger)).
			Post("/public/orders", cfg.Orders.CreatePublic)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth(cfg.Resolver))

			r.Route("/orders", func(r chi.Router) {
				r.With(withIdempotency(cfg.Idempotency, ttl, logger)).
					Post("/", cfg.Orders.Create)
				r.Get("/", cfg.Orders.List)

				r.Route("/{orderID}", func(r chi.Router) {
					r.Get("/", cfg.Orders.Get)
					r.Put("/", cfg.Orders.Update)
					r.Get("/finance", cfg.Orders.Finance)
					r.Get("/audit", cfg.Orders.Audit)
				})
			})
		})
	})

	return r
}

// requestLogger пишет строку лога на каждый завершённый запрос.
func requestLogger(logger *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.WithFields(log.Fields{
				"method":      r.Method,
				"path":        r.URL.Path,
				"status":      ww.Status(),
				"duration_ms": time.Since(start).Milliseconds(),
				"request_id":  middleware.GetReqID(r.Context()),
			}).Info("HTTP request handled")
		})
	}
}
