package apiv1

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"venux-billing/internal/domain"
	"venux-billing/internal/infra/logging"
)

const (
	maxJSONBody    = 64 << 10
	maxWebhookBody = 1 << 20
)

type checkoutRequest struct {
	PriceID   string `json:"priceId"`
	ReturnURL string `json:"returnUrl"`
}

type portalRequest struct {
	ReturnURL string `json:"returnUrl"`
}

type urlResponse struct {
	URL string `json:"url"`
}

// decodeBody reads an optional JSON body into dst. An empty body is fine.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return fmt.Errorf("%w: invalid JSON body", domain.ErrInvalidArgument)
}

func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	var req checkoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	url, err := s.deps.Checkout.Checkout(r.Context(), caller, req.PriceID, req.ReturnURL)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("checkout failed")
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handlePortal(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	var req portalRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	url, err := s.deps.Portal.Portal(r.Context(), caller.UserID, req.ReturnURL, r.Header.Get("Origin"))
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("portal failed")
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, urlResponse{URL: url})
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	res, err := s.deps.Sync.Sync(r.Context(), caller.UserID)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Msg("sync failed")
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	caller, _ := CallerFrom(r.Context())
	st, err := s.deps.Status.Status(r.Context(), caller.UserID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// handleWebhook acknowledges every verified delivery with 200, including
// ones whose profile write failed; those are alerted instead of retried.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	sig := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sig) == "" {
		http.Error(w, "Webhook Error: missing Stripe-Signature header", http.StatusBadRequest)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		http.Error(w, "Webhook Error: payload too large or unreadable", http.StatusBadRequest)
		return
	}

	res, err := s.deps.Webhook.Receive(r.Context(), payload, sig)
	l := logging.With(logging.WithEventID(r.Context(), res.EventID), s.log)
	if err != nil {
		l.Warn().Err(err).Str("outcome", string(res.Outcome)).Msg("webhook rejected")
		http.Error(w, "Webhook Error: "+err.Error(), http.StatusBadRequest)
		return
	}
	l.Info().
		Str("type", res.Kind).
		Str("outcome", string(res.Outcome)).
		Int("affected", res.Affected).
		Msg("webhook processed")
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
