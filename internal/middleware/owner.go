package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jkindrix/draftwise/internal/domain"
)

// OwnerHeader names the caller on whose behalf a request is made.
const OwnerHeader = "X-User-ID"

// maxOwnerLength bounds the owner id stored with generations.
const maxOwnerLength = 128

type ownerKey struct{}

// Owner stores the requesting owner in the context. Requests without the
// header act as the anonymous owner.
func Owner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get(OwnerHeader))
		if owner == "" || len(owner) > maxOwnerLength {
			owner = domain.AnonymousOwner
		}
		next.ServeHTTP(w, r.WithContext(WithOwner(r.Context(), owner)))
	})
}

// WithOwner returns a context carrying owner.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// GetOwner returns the owner from ctx, or the anonymous owner.
func GetOwner(ctx context.Context) string {
	if owner, ok := ctx.Value(ownerKey{}).(string); ok && owner != "" {
		return owner
	}
	return domain.AnonymousOwner
}
