package auth

import (
	"context"
	"net/http"
	"strings"
)

type contextKey struct{}

var operatorKey contextKey

// WithOperator returns a context carrying the authenticated operator.
func WithOperator(ctx context.Context, op *Operator) context.Context {
	return context.WithValue(ctx, operatorKey, op)
}

// FromContext returns the authenticated operator, or nil. A nil
// operator is the "no authenticated operator" fatal condition for
// mutations.
func FromContext(ctx context.Context) *Operator {
	op, _ := ctx.Value(operatorKey).(*Operator)
	return op
}

// Middleware resolves the bearer token on each request and injects the
// operator into the request context. Requests without a valid token
// pass through unauthenticated; handlers decide whether that is fatal.
func Middleware(issuer *TokenIssuer, svc *Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if !strings.HasPrefix(header, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			operatorID, err := issuer.Parse(strings.TrimPrefix(header, "Bearer "))
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			op, err := svc.CurrentOperator(r.Context(), operatorID)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}
