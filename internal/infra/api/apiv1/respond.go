package apiv1

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"venux-billing/internal/domain"
	"venux-billing/internal/infra/i18n"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps use case errors onto HTTP codes. Anything not listed is a
// client-visible 400.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrSyncInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusBadRequest
	}
}

// messageFor picks the text shown to the caller.
func (s *Server) messageFor(err error) string {
	var pe *domain.ProviderError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		return s.tr.T(i18n.KeyUnauthorized)
	case errors.Is(err, domain.ErrNoBillingCustomer):
		return s.tr.T(i18n.KeyPortalNoCustomer)
	case errors.Is(err, domain.ErrProfileUnavailable):
		return s.tr.T(i18n.KeyProfileUnavailable)
	case errors.As(err, &pe):
		return pe.Error()
	case errors.Is(err, domain.ErrInvalidArgument):
		return strings.TrimPrefix(err.Error(), domain.ErrInvalidArgument.Error()+": ")
	default:
		return err.Error()
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), errorBody{Error: s.messageFor(err)})
}
