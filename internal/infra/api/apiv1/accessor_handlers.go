package apiv1

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"venux-billing/internal/domain"
	"venux-billing/internal/infra/i18n"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/usecase"
)

// AccessorKeys authenticate the WhatsApp assistant endpoint. ServiceToken
// is the automation's bearer token; PublicSecret lets the public report
// page run read-only actions.
type AccessorKeys struct {
	ServiceToken string
	PublicSecret string
}

type accessorBody struct {
	usecase.AccessorRequest
	AuthSecret string `json:"auth_secret"`
}

type deniedBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) handleAccessor(w http.ResponseWriter, r *http.Request) {
	var body accessorBody
	if err := decodeBody(w, r, &body); err != nil {
		s.writeAccessorError(w, err)
		return
	}
	readOnly, err := s.accessorAccess(r, body.AuthSecret)
	if err != nil {
		s.writeAccessorError(w, err)
		return
	}
	req := body.AccessorRequest
	req.ReadOnly = readOnly

	res, err := s.deps.Accessor.Handle(r.Context(), req)
	if err != nil {
		logging.With(r.Context(), s.log).Warn().Err(err).Str("action", req.Action).Msg("accessor failed")
		s.writeAccessorError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// accessorAccess reports whether the caller is limited to read-only actions.
func (s *Server) accessorAccess(r *http.Request, secret string) (bool, error) {
	keys := s.deps.AccessorKeys
	if tok, err := bearerToken(r); err == nil && secureEqual(tok, keys.ServiceToken) {
		return false, nil
	}
	if secureEqual(strings.TrimSpace(secret), keys.PublicSecret) {
		return true, nil
	}
	return false, domain.ErrUnauthorized
}

func (s *Server) writeAccessorError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: s.tr.T(i18n.KeyUnauthorized)})
	case errors.Is(err, domain.ErrUnknownWhatsApp):
		writeJSON(w, http.StatusNotFound, errorBody{Error: s.tr.T(i18n.KeyAccessorUserNotFound)})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: s.tr.T(i18n.KeyAccessorItemNotFound)})
	case errors.Is(err, domain.ErrSubscriptionInactive):
		writeJSON(w, http.StatusForbidden, deniedBody{
			Error:   s.tr.T(i18n.KeyAccessorAccessDenied),
			Message: s.tr.T(i18n.KeyAccessorInactive),
		})
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: s.messageFor(err)})
	}
}

// secureEqual compares in constant time. An empty expected value never matches.
func secureEqual(got, want string) bool {
	if want == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(want)) == 1
}
