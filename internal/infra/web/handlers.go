package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ZetsyKe/vacvpn-sub000/internal/domain"
	"github.com/ZetsyKe/vacvpn-sub000/internal/domain/model"
	"github.com/ZetsyKe/vacvpn-sub000/internal/infra/logging"
)

type createPaymentRequest struct {
	UserID int64  `json:"user_id"`
	Tariff string `json:"tariff"`
}

type createPaymentResponse struct {
	PaymentID   string `json:"payment_id"`
	RedirectURL string `json:"redirect_url"`
}

type paymentView struct {
	PaymentID string     `json:"payment_id"`
	Status    string     `json:"status"`
	Tariff    string     `json:"tariff"`
	Amount    int64      `json:"amount"`
	CreatedAt time.Time  `json:"created_at"`
	PaidAt    *time.Time `json:"paid_at,omitempty"`
}

func toPaymentView(p *model.PaymentIntent) paymentView {
	return paymentView{
		PaymentID: p.ID,
		Status:    string(p.Status),
		Tariff:    p.Tariff,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
		PaidAt:    p.PaidAt,
	}
}

func (s *Server) createPayment(w http.ResponseWriter, r *http.Request) {
	var req createPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == 0 {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !s.allow(r, req.UserID, "create_payment") {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	ctx := logging.WithUserID(r.Context(), req.UserID)
	p, redirectURL, err := s.paymentUC.Create(ctx, req.UserID, req.Tariff)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createPaymentResponse{PaymentID: p.ID, RedirectURL: redirectURL})
}

func (s *Server) checkPayment(w http.ResponseWriter, r *http.Request) {
	paymentID := chi.URLParam(r, "paymentID")
	userID, err := strconv.ParseInt(r.URL.Query().Get("user_id"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "user_id query parameter is required", http.StatusBadRequest)
		return
	}
	if !s.allow(r, userID, "check_payment") {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
		return
	}

	ctx := logging.WithUserID(logging.WithPaymentID(r.Context(), paymentID), userID)
	p, err := s.paymentUC.CheckStatus(ctx, paymentID, userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentView(p))
}

func (s *Server) getSubscription(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID == 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	view, err := s.subUC.Describe(r.Context(), userID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

type recordReferralRequest struct {
	ReferrerID int64 `json:"referrer_id"`
	ReferredID int64 `json:"referred_id"`
}

func (s *Server) recordReferral(w http.ResponseWriter, r *http.Request) {
	var req recordReferralRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.refUC.Record(r.Context(), req.ReferrerID, req.ReferredID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) countReferrals(w http.ResponseWriter, r *http.Request) {
	referrerID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || referrerID == 0 {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	count, err := s.refUC.CountFor(r.Context(), referrerID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// writeError maps the domain taxonomy onto HTTP statuses. Transient gateway
// failures tell the caller to retry; rejections stay terse so provider error
// bodies never leak to end users.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnknownTariff):
		http.Error(w, "unknown tariff", http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidReferral):
		http.Error(w, "self-referral is not allowed", http.StatusBadRequest)
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "invalid argument", http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "payment not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrGatewayUnavailable):
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("gateway unavailable")
		http.Error(w, "payment gateway temporarily unavailable, try again later", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrGatewayRejected):
		logging.With(r.Context(), s.log).Error().Err(err).Msg("gateway rejected request")
		http.Error(w, "payment could not be processed", http.StatusBadGateway)
	default:
		logging.With(r.Context(), s.log).Error().Err(err).Msg("internal error")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
