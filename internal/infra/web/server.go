package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oklog/ulid/v2"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/logging"
	red "github.com/ZetsyKe/vacvpn-sub000/internal/infra/redis"
	"github.com/ZetsyKe/vacvpn-sub000/internal/usecase"
)

// Server exposes the reconciliation engine to the chat front end. The chat
// bot is the only intended client; requests carry the chat user id explicitly.
type Server struct {
	paymentUC usecase.PaymentUseCase
	subUC     usecase.SubscriptionUseCase
	refUC     usecase.ReferralUseCase
	limiter   *red.RateLimiter
	perUser   int
	window    time.Duration
	log       *zerolog.Logger
}

func NewServer(
	paymentUC usecase.PaymentUseCase,
	subUC usecase.SubscriptionUseCase,
	refUC usecase.ReferralUseCase,
	limiter *red.RateLimiter,
	perUser int,
	window time.Duration,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		paymentUC: paymentUC,
		subUC:     subUC,
		refUC:     refUC,
		limiter:   limiter,
		perUser:   perUser,
		window:    window,
		log:       logger,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestID)
	r.Use(s.accessLog)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments", s.createPayment)
		r.Get("/payments/{paymentID}", s.checkPayment)
		r.Get("/users/{userID}/subscription", s.getSubscription)
		r.Post("/referrals", s.recordReferral)
		r.Get("/users/{userID}/referrals/count", s.countReferrals)
	})
	return r
}

// requestID tags every request with a ulid, threaded into logs as trace_id.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ulid.Make().String()
		w.Header().Set("X-Request-Id", id)
		next.ServeHTTP(w, r.WithContext(logging.WithTraceID(r.Context(), id)))
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.With(r.Context(), s.log).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

// allow applies the per-user fixed window. Rate limiting fails open: a broken
// redis must not take payments down with it.
func (s *Server) allow(r *http.Request, userID int64, op string) bool {
	if s.limiter == nil {
		return true
	}
	ok, err := s.limiter.Allow(r.Context(), red.UserOpKey(userID, op), s.perUser, s.window)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("rate limiter unavailable")
		return true
	}
	return ok
}
