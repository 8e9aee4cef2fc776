/**
 * @description
 * This file contains custom middleware for the HTTP router. The service never
 * validates tokens locally: the bearer token from the Authorization header is
 * forwarded to the identity service, which either resolves it to a user or
 * rejects it. The resolved user and the raw token are stored on the request
 * context for handlers.
 *
 * @dependencies
 * - context, net/http, strings: Standard Go libraries.
 * - pkg/authclient: For token resolution against the identity service.
 */

package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/dvegaa1/comfortcan-erp/pkg/authclient"
)

type contextKey string

const (
	authUserKey    contextKey = "authUser"
	accessTokenKey contextKey = "accessToken"
)

// BearerAuthMiddleware creates a middleware that resolves the bearer token
// against the identity service and attaches the user to the request context.
func BearerAuthMiddleware(auth *authclient.Client) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authorization header required")
				return
			}

			token := strings.TrimPrefix(authHeader, "Bearer ")
			if token == authHeader || strings.TrimSpace(token) == "" {
				writeAuthError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			user, err := auth.GetUser(r.Context(), token)
			if err != nil {
				if errors.Is(err, authclient.ErrInvalidToken) {
					writeAuthError(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				log.Printf("level=error component=api msg=\"token verification failed\" err=%v", err)
				writeAuthError(w, http.StatusBadGateway, "Authentication service unavailable")
				return
			}

			ctx := context.WithValue(r.Context(), authUserKey, user)
			ctx = context.WithValue(ctx, accessTokenKey, token)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeAuthError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write([]byte(`{"error":"` + message + `"}`))
}

// GetAuthUser retrieves the authenticated user from the request context.
func GetAuthUser(ctx context.Context) (*authclient.User, bool) {
	user, ok := ctx.Value(authUserKey).(*authclient.User)
	return user, ok
}

// GetAccessToken retrieves the raw bearer token from the request context.
func GetAccessToken(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenKey).(string)
	return token, ok
}
