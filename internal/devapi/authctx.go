package devapi

import "context"

type ctxKey string

const accountIDKey ctxKey = "devapi.accountID"

// WithAccountID stores the authenticated account ID in ctx.
func WithAccountID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// AccountIDFromCtx fetches the account ID from ctx.
func AccountIDFromCtx(ctx context.Context) (int64, bool) {
	v := ctx.Value(accountIDKey)
	if v == nil {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}
