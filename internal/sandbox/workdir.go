package sandbox

import "context"

// Context key for the dynamic scratch base directory used at runtime.
type baseDirCtxKey struct{}

// Context keys for generation and user identifiers.
type generationIDCtxKey struct{}
type userIDCtxKey struct{}

// WithBaseDir attaches a per-run scratch base directory to ctx. Components
// that create working files (the stitcher's temp area) prefer this value
// over the system default.
func WithBaseDir(ctx context.Context, dir string) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), baseDirCtxKey{}, dir)
	}
	return context.WithValue(ctx, baseDirCtxKey{}, dir)
}

// WithGenerationID attaches the owning generation's identifier to ctx so
// downstream components can tag logs and working files without threading
// the ID through every call.
func WithGenerationID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), generationIDCtxKey{}, id)
	}
	return context.WithValue(ctx, generationIDCtxKey{}, id)
}

// WithUserID attaches the submitting user's identifier to ctx.
func WithUserID(ctx context.Context, id string) context.Context {
	if ctx == nil {
		return context.WithValue(context.Background(), userIDCtxKey{}, id)
	}
	return context.WithValue(ctx, userIDCtxKey{}, id)
}

// GenerationIDFromContext returns the generation ID previously set with
// WithGenerationID. The boolean is false if no value is present.
func GenerationIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v := ctx.Value(generationIDCtxKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// UserIDFromContext returns the user ID previously set with WithUserID.
// The boolean is false if no value is present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v := ctx.Value(userIDCtxKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// BaseDirFromContext returns the base directory previously set with
// WithBaseDir. The boolean is false if no value is present.
func BaseDirFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	if v := ctx.Value(baseDirCtxKey{}); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ResolveBaseDir returns the base directory from context when available,
// otherwise returns defaultDir.
func ResolveBaseDir(ctx context.Context, defaultDir string) string {
	if v, ok := BaseDirFromContext(ctx); ok {
		return v
	}
	return defaultDir
}
