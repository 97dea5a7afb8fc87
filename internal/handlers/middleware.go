package handlers

import (
	"strings"

	"github.com/schoolpay/payment-gateway/internal/services"
	xhttp "github.com/schoolpay/payment-gateway/pkg/http"
)

type TokenParser interface {
	ParseToken(token string) (*services.Claims, error)
}

const claimsKey = "auth_claims"

// AuthMiddleware guards a route with bearer-token auth. Parsed claims are
// stored on the request ctx under claimsKey for downstream handlers.
func AuthMiddleware(parser TokenParser) xhttp.MiddlewareFunc {
	return func(next xhttp.RequestHandler) xhttp.RequestHandler {
		return func(ctx *xhttp.RequestCtx) {
			header := string(ctx.Request.Header.Peek("Authorization"))
			if header == "" || !strings.HasPrefix(header, "Bearer ") {
				writeError(ctx, xhttp.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := parser.ParseToken(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				writeError(ctx, xhttp.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx.SetUserValue(claimsKey, claims)
			next(ctx)
		}
	}
}

// ClaimsFromCtx returns the authenticated claims, or nil on an open route.
func ClaimsFromCtx(ctx *xhttp.RequestCtx) *services.Claims {
	claims, _ := ctx.UserValue(claimsKey).(*services.Claims)
	return claims
}
