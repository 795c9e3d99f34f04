package apiv1

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"venux-billing/internal/domain"
	"venux-billing/internal/domain/ports/adapter"
	"venux-billing/internal/infra/logging"
	"venux-billing/internal/usecase"
)

// Deps are the use cases behind the v1 API.
type Deps struct {
	Checkout usecase.CheckoutUseCase
	Portal   usecase.PortalUseCase
	Sync     usecase.SyncUseCase
	Status   usecase.StatusUseCase
	Webhook  usecase.WebhookUseCase

	// Accessor is optional; the route is mounted only when it is set.
	Accessor     usecase.AccessorUseCase
	AccessorKeys AccessorKeys
}

type Server struct {
	deps   Deps
	tokens *TokenVerifier
	tr     adapter.Translator
	log    *zerolog.Logger
}

func NewServer(deps Deps, tokens *TokenVerifier, tr adapter.Translator, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "apiv1").Logger()
	return &Server{deps: deps, tokens: tokens, tr: tr, log: &l}
}

// RegisterAPIV1 mounts the billing and accessor routes under /api/v1.
func RegisterAPIV1(r chi.Router, s *Server) {
	r.Route("/api/v1/billing", func(r chi.Router) {
		// Stripe authenticates with its signature header, not a bearer token.
		r.Post("/webhook", s.handleWebhook)

		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Post("/checkout", s.handleCheckout)
			r.Post("/portal", s.handlePortal)
			r.Post("/sync", s.handleSync)
			r.Get("/status", s.handleStatus)
		})
	})

	if s.deps.Accessor != nil {
		r.Post("/api/v1/accessor", s.handleAccessor)
	}
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := bearerToken(r)
		if err != nil {
			s.writeError(w, domain.ErrUnauthorized)
			return
		}
		caller, err := s.tokens.Verify(tok)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ctx := logging.WithUserID(r.Context(), caller.UserID)
		ctx = withCaller(ctx, caller)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
