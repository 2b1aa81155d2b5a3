package auth

import (
	"context"

	"github.com/kailas-cloud/verseapi/internal/domain"
)

type ctxKey struct{}

// ContextWithPrincipal stores a resolved principal in the context.
// A nil principal (guest) is stored as-is; PrincipalFromContext returns nil
// for both "never resolved" and "resolved to guest".
func ContextWithPrincipal(ctx context.Context, p *domain.Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// PrincipalFromContext extracts the principal from the context, nil for guest.
func PrincipalFromContext(ctx context.Context) *domain.Principal {
	if p, ok := ctx.Value(ctxKey{}).(*domain.Principal); ok {
		return p
	}
	return nil
}
