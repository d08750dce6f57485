package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const (
	operatorIDKey contextKey = "operatorID"
	facilityIDKey contextKey = "facilityID"
)

// Chain applies middlewares right to left.
func Chain(handler http.Handler, middlewares ...func(http.Handler) http.Handler) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// OperatorAuth validates operator JWT tokens and extracts the operator and
// facility the token is scoped to.
func OperatorAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			operatorID, ok := claims["operator_id"].(string)
			if !ok || operatorID == "" {
				http.Error(w, "operator id not found", http.StatusUnauthorized)
				return
			}
			facilityID, _ := claims["facility_id"].(string)

			ctx := context.WithValue(r.Context(), operatorIDKey, operatorID)
			ctx = context.WithValue(ctx, facilityIDKey, facilityID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AgentAuth validates agent JWT tokens. Agent tokens carry only the facility
// they are issued for, so a leaked key cannot touch another facility's fleet.
func AgentAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, err := parseBearer(r, secret)
			if err != nil {
				http.Error(w, err.Error(), http.StatusUnauthorized)
				return
			}

			facilityID, ok := claims["facility_id"].(string)
			if !ok || facilityID == "" {
				http.Error(w, "facility id not found", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), facilityIDKey, facilityID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func parseBearer(r *http.Request, secret string) (jwt.MapClaims, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return nil, fmt.Errorf("missing authorization header")
	}
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return nil, fmt.Errorf("invalid authorization header")
	}
	tokenStr := strings.TrimSpace(parts[1])
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenInvalidClaims
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid token claims")
	}
	return claims, nil
}

// OperatorIDFromContext retrieves the authenticated operator id.
func OperatorIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(operatorIDKey).(string)
	return id, ok && id != ""
}

// FacilityIDFromContext retrieves the facility scope of the token.
func FacilityIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(facilityIDKey).(string)
	return id, ok && id != ""
}
