package depot

import "context"

type ownerKey struct{}

// WithOwner returns a context scoped to the given owner. Every Depot
// operation reads the owner from its context.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey{}, owner)
}

// OwnerFrom returns the owner a context is scoped to, or "".
func OwnerFrom(ctx context.Context) string {
	if v, ok := ctx.Value(ownerKey{}).(string); ok {
		return v
	}
	return ""
}

func requireOwner(ctx context.Context) (string, error) {
	owner := OwnerFrom(ctx)
	if owner == "" {
		return "", ErrMissingOwner
	}
	return owner, nil
}

func checkOwner(owner, recordOwner string) error {
	if owner != recordOwner {
		return ErrForbidden
	}
	return nil
}
