package api

import (
	"context"
	"net/http"
	"strings"

	"log/slog"

	"firebase.google.com/go/v4/auth"
	"github.com/tinywideclouds/go-microservice-base/pkg/middleware"
	"github.com/tinywideclouds/go-microservice-base/pkg/response"
)

// TokenVerifier abstracts *auth.Client so handlers can be tested without
// a live Firebase project.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// NewFirebaseAuthMiddleware verifies the Bearer token on every request
// and injects the Firebase UID into the request context, where the
// handlers read it back via middleware.GetUserHandleFromContext.
func NewFirebaseAuthMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := verifyRequest(w, r, verifier, logger)
			if !ok {
				return
			}
			ctx := middleware.ContextWithUserID(r.Context(), token.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// NewFirebaseAdminMiddleware additionally requires the "admin" custom
// claim. Used on the send endpoints so students cannot trigger fan-outs.
func NewFirebaseAdminMiddleware(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := verifyRequest(w, r, verifier, logger)
			if !ok {
				return
			}
			if isAdmin, _ := token.Claims["admin"].(bool); !isAdmin {
				logger.Warn("non-admin attempted privileged endpoint", "uid", token.UID, "path", r.URL.Path)
				response.WriteJSONError(w, http.StatusForbidden, "admin access required")
				return
			}
			ctx := middleware.ContextWithUserID(r.Context(), token.UID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyRequest(w http.ResponseWriter, r *http.Request, verifier TokenVerifier, logger *slog.Logger) (*auth.Token, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		response.WriteJSONError(w, http.StatusUnauthorized, "missing bearer token")
		return nil, false
	}
	idToken := strings.TrimPrefix(header, "Bearer ")

	token, err := verifier.VerifyIDToken(r.Context(), idToken)
	if err != nil {
		logger.Warn("token verification failed", "err", err)
		response.WriteJSONError(w, http.StatusUnauthorized, "invalid token")
		return nil, false
	}
	return token, true
}
