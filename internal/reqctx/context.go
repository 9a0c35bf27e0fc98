package reqctx

import "context"

type ctxKey string

const keyRID ctxKey = "trade_rid"

// WithRID stores the request correlation id used in trade logs.
func WithRID(ctx context.Context, rid string) context.Context {
	return context.WithValue(ctx, keyRID, rid)
}

// RID returns the correlation id if present, "-" otherwise.
func RID(ctx context.Context) string {
	if v, _ := ctx.Value(keyRID).(string); v != "" {
		return v
	}
	return "-"
}
