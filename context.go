package filesink

import "context"

type metaContextKey struct{}

// WithMeta returns a context carrying metadata that Logger calls merge
// between the logger's base metadata and call-site metadata. Nesting WithMeta
// accumulates, inner values win on key collisions.
func WithMeta(ctx context.Context, meta Metadata) context.Context {
	if len(meta) == 0 {
		return ctx
	}
	return context.WithValue(ctx, metaContextKey{}, MetaFrom(ctx).merged(meta))
}

// MetaFrom extracts the metadata scoped to ctx, or nil when none is set.
func MetaFrom(ctx context.Context) Metadata {
	if ctx == nil {
		return nil
	}
	meta, _ := ctx.Value(metaContextKey{}).(Metadata)
	return meta
}
