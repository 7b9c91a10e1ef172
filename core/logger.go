package core

import "context"

// Logger is implemented by services/logger.
// args may hold errors, maps of extras and at most one Caller (reported as the person).
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}

// Caller is the authenticated user a request is made on behalf of.
type Caller struct {
	ID    string
	Email string
	Name  string
	Token string // raw bearer token, forwarded upstream
}

func (c Caller) IsZero() bool { return c.ID == "" }

type ctxKey int

const (
	callerKey ctxKey = iota
	requestIDKey
)

func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey, c)
}

func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey).(Caller)
	return c, ok
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
