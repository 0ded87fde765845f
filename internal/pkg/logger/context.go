package logger

import "context"

type requestIDKey struct{}

// WithRequestID はリクエストIDをコンテキストに格納する
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestIDFrom はコンテキストのリクエストIDを返す（未設定なら空文字）
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
