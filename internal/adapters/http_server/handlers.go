// internal/adapters/http_server/handlers.go
package httpserver

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/mail"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"ancile/internal/app"
	"ancile/internal/domain"
)

const (
	SoldOutDetail      = "Sold Out! Someone grabbed the last room seconds ago."
	PaymentErrorDetail = "Payment Gateway Error"

	maxBodyBytes = 1 << 20
)

type GroupReader interface {
	GetGroup(ctx context.Context, subdomain string) (domain.GroupView, error)
	Heatmap(ctx context.Context) ([]domain.Region, error)
}

type BookingInitiator interface {
	Initiate(ctx context.Context, in domain.BookingIntent) (domain.BookingResult, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error)
}

type IdentityVerifier interface {
	Verify(ctx context.Context, in domain.IdentityRequest) domain.IdentityResult
}

type ReferralEngine interface {
	Footer(agentID, agentName string) (string, error)
	TrackConversion(ctx context.Context, c domain.Conversion) error
	Network(ctx context.Context, agentID string) (domain.ReferralNetwork, error)
}

type Handlers struct {
	Groups    GroupReader
	Bookings  BookingInitiator
	Identity  IdentityVerifier
	Referrals ReferralEngine
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/groups/{subdomain}", h.getGroup)
	s.mux.Post("/bookings/initiate", h.initiateBooking)
	s.mux.Post("/api/identity/verify", h.verifyIdentity)
	s.mux.Post("/webhook/checkout", h.checkoutWebhook)
	s.mux.Get("/analytics/heatmap", h.heatmap)
	if h.Referrals != nil {
		s.mux.Route("/agents", func(r chi.Router) {
			r.Post("/referrals", h.trackReferral)
			r.Get("/{agentID}/footer", h.referralFooter)
			r.Get("/{agentID}/network", h.referralNetwork)
		})
	}
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	return `W/"` + hex.EncodeToString(sum[:]) + `"`, body
}

func decodeJSON(r *http.Request, dst any) error {
	return json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
}

func (h *Handlers) getGroup(w http.ResponseWriter, r *http.Request) {
	sub := strings.TrimSpace(chi.URLParam(r, "subdomain"))
	g, err := h.Groups.GetGroup(r.Context(), sub)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			writeProblem(w, http.StatusNotFound, "Not Found", "group not found")
			return
		}
		log.Error().Err(err).Str("subdomain", sub).Msg("get group failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "inventory unavailable")
		return
	}

	etag, body := calcETagAndBody(g)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write getGroup body")
	}
}

func validateIntent(in domain.BookingIntent) string {
	switch {
	case strings.TrimSpace(in.GroupID) == "":
		return "group_id is required"
	case strings.TrimSpace(in.RoomType) == "":
		return "room_type is required"
	case strings.TrimSpace(in.GuestName) == "":
		return "guest_name is required"
	case in.RoomPrice <= 0:
		return "room_price must be positive"
	}
	if _, err := mail.ParseAddress(in.GuestEmail); err != nil {
		return "guest_email must be a valid email address"
	}
	return ""
}

func (h *Handlers) initiateBooking(w http.ResponseWriter, r *http.Request) {
	var in domain.BookingIntent
	if err := decodeJSON(r, &in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid body", "request body must be a booking intent")
		return
	}
	if msg := validateIntent(in); msg != "" {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid body", msg)
		return
	}

	res, err := h.Bookings.Initiate(r.Context(), in)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, res)
	case errors.Is(err, domain.ErrInventoryFull):
		writeProblem(w, http.StatusConflict, "Conflict", SoldOutDetail)
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "room block not found")
	case errors.Is(err, domain.ErrPayment):
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", PaymentErrorDetail)
	default:
		log.Error().Err(err).Msg("initiate booking failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "booking failed")
	}
}

func (h *Handlers) verifyIdentity(w http.ResponseWriter, r *http.Request) {
	var in domain.IdentityRequest
	if err := decodeJSON(r, &in); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid body", "request body must be an identity request")
		return
	}
	writeJSON(w, http.StatusOK, h.Identity.Verify(r.Context(), in))
}

func (h *Handlers) checkoutWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "unreadable body")
		return
	}
	handled, err := h.Bookings.HandleWebhook(r.Context(), payload, r.Header.Get("Ancile-Signature"))
	switch {
	case err == nil && handled:
		writeJSON(w, http.StatusOK, map[string]string{"status": "processed"})
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case app.IsConflict(err):
		// replayed event
		writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", "checkout session not found")
	case errors.Is(err, domain.ErrWebhookDisabled):
		log.Error().Msg("checkout webhook received but WEBHOOK_SECRET is not set")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "webhook verification is not configured")
	default:
		log.Warn().Err(err).Msg("checkout webhook rejected")
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	}
}

func (h *Handlers) heatmap(w http.ResponseWriter, r *http.Request) {
	regions, err := h.Groups.Heatmap(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("heatmap failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "analytics unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"regions": regions})
}

func (h *Handlers) referralFooter(w http.ResponseWriter, r *http.Request) {
	html, err := h.Referrals.Footer(chi.URLParam(r, "agentID"), r.URL.Query().Get("name"))
	if err != nil {
		if errors.Is(err, app.ErrInvalidReferral) {
			writeProblem(w, http.StatusUnprocessableEntity, "Invalid request", "name query parameter is required")
			return
		}
		log.Error().Err(err).Msg("render referral footer failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "footer unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, html)
}

func (h *Handlers) trackReferral(w http.ResponseWriter, r *http.Request) {
	var c domain.Conversion
	if err := decodeJSON(r, &c); err != nil {
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid body", "request body must be a referral conversion")
		return
	}
	err := h.Referrals.TrackConversion(r.Context(), c)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, map[string]string{"status": "linked"})
	case errors.Is(err, app.ErrInvalidReferral):
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid body", err.Error())
	case errors.Is(err, domain.ErrAlreadyReferred):
		writeProblem(w, http.StatusConflict, "Conflict", "agent is already linked to another referrer")
	default:
		log.Error().Err(err).Msg("track referral failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "referral not recorded")
	}
}

func (h *Handlers) referralNetwork(w http.ResponseWriter, r *http.Request) {
	n, err := h.Referrals.Network(r.Context(), chi.URLParam(r, "agentID"))
	if err != nil {
		log.Error().Err(err).Msg("referral network failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "referral network unavailable")
		return
	}
	writeJSON(w, http.StatusOK, n)
}
