package auth

import (
	"context"
	"net/http"
	"time"

	resp "github.com/fiberline/ispbill/response"

	"github.com/dgrijalva/jwt-go"
	"go.uber.org/zap"
)

var bearerPrefix = "Bearer "
var jwtSigningMethod = jwt.SigningMethodHS256

// CreateTokenFromClaims will create a signed jwt token that contains the given Claims
func (a *Auth) CreateTokenFromClaims(claims Claims) (string, error) {
	expirationTime := time.Now().Add(a.TokenTTL)
	claims.StandardClaims = jwt.StandardClaims{
		ExpiresAt: expirationTime.Unix(),
		IssuedAt:  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwtSigningMethod, claims)
	return token.SignedString(a.jwtKey)
}

func (a *Auth) verifyToken(token string) (*Claims, error) {
	claims := &Claims{}
	jwtToken, err := jwt.ParseWithClaims(token, claims, func(token *jwt.Token) (interface{}, error) {
		return a.jwtKey, nil
	})
	if err != nil {
		if err == jwt.ErrSignatureInvalid {
			return nil, nil
		}
		if _, ok := err.(*jwt.ValidationError); ok {
			return nil, nil
		}
		return nil, err
	}
	if jwtToken.Method != jwtSigningMethod {
		return nil, nil
	}
	if !jwtToken.Valid {
		return nil, nil
	}
	return claims, nil
}

// Middleware returns a http middleware that verifies the Bearer token and
// evaluates the policy for the request. This is the only place where access
// decisions are made; handlers read the resulting Principal from the context.
func (a *Auth) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			n := len(bearerPrefix)
			if len(header) < n || header[:n] != bearerPrefix {
				resp.WriteError(w, r, resp.ErrNoBearer())
				return
			}
			claims, err := a.verifyToken(header[n:])
			if err != nil {
				a.Logger.Error("Cannot verify JWT token",
					zap.Error(err),
				)
				resp.WriteError(w, r, resp.ErrVerifyToken())
				return
			}
			if claims == nil {
				resp.WriteError(w, r, resp.ErrNoBearer())
				return
			}

			principal := Principal{
				TenantID: claims.TenantID,
				ActorID:  claims.ActorID,
				Role:     claims.Role,
			}

			decision := a.Authorize(principal, r.Method, r.URL.Path)
			if !decision.Allowed {
				a.Logger.Debug("Request denied by policy",
					zap.String("TenantID", principal.TenantID),
					zap.String("ActorID", principal.ActorID),
					zap.String("Path", r.URL.Path),
					zap.String("Reason", decision.Reason),
				)
				resp.WriteError(w, r, resp.ErrPolicyDenied(decision.Reason))
				return
			}

			ctx := context.WithValue(r.Context(), Context, &principal)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Authorize resolves the permission required by the route and evaluates it for the principal
func (a *Auth) Authorize(principal Principal, method, path string) Decision {
	perm, ok := a.matcher.Match(method, path)
	if !ok {
		return Decision{Allowed: false, Reason: "no access rule for " + method + " " + path}
	}
	return a.Policy.Evaluate(principal, perm)
}
