package llm

import "context"

// Caller identifies who issued a completion so middleware can label metrics and logs.
type Caller struct {
	Stage string // pipeline stage name, e.g. "interviews"
	Actor string // normalized persona identity or sub-assessment name
}

type callerKey struct{}

// WithCaller attaches caller attribution to ctx. Empty fields inherit from any
// caller already present, so a stage label survives a nested actor label.
func WithCaller(ctx context.Context, c Caller) context.Context {
	parent := CallerFrom(ctx)
	if c.Stage == "" {
		c.Stage = parent.Stage
	}
	if c.Actor == "" {
		c.Actor = parent.Actor
	}
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the caller attached to ctx, or a zero Caller.
func CallerFrom(ctx context.Context) Caller {
	if ctx == nil {
		return Caller{}
	}
	if c, ok := ctx.Value(callerKey{}).(Caller); ok {
		return c
	}
	return Caller{}
}
