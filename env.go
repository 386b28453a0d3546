package puppet

import (
	"context"
	"maps"
)

type envKey struct{}

// Envs returns a map of the environment variables stored in ctx.
func Envs(ctx context.Context) map[string]string {
	if env, ok := ctx.Value(envKey{}).(map[string]string); ok {
		return env
	}
	return nil
}

// WithEnv returns a new context with the provided environment variables
// merged with any existing environment variables in ctx.
func WithEnv(ctx context.Context, env map[string]string) context.Context {
	val := maps.Clone(Envs(ctx))
	if val == nil {
		val = make(map[string]string, len(env))
	}
	maps.Copy(val, env)
	return context.WithValue(ctx, envKey{}, val)
}

// WithoutEnv returns a new context with all environment variables removed.
// This is similar to context.WithoutCancel - it preserves all other values
// in the context (working directory, deadlines, etc.) while clearing only
// the environment variables.
func WithoutEnv(ctx context.Context) context.Context {
	if Envs(ctx) == nil {
		return ctx
	}
	return context.WithValue(ctx, envKey{}, nil)
}
