package auth

import "context"

type ctxKey string

const (
	accountKey ctxKey = "auth_account"
	tokenIDKey ctxKey = "auth_token_id"
)

// ContextWithAccount stores the authenticated account in the context.
func ContextWithAccount(ctx context.Context, account *Account) context.Context {
	if account == nil {
		return ctx
	}
	return context.WithValue(ctx, accountKey, account)
}

// AccountFromContext extracts the authenticated account from context.
func AccountFromContext(ctx context.Context) (*Account, bool) {
	a, ok := ctx.Value(accountKey).(*Account)
	if !ok || a == nil {
		return nil, false
	}
	return a, true
}

// ContextWithTokenID stores the presented token id for later revocation.
func ContextWithTokenID(ctx context.Context, tokenID string) context.Context {
	if tokenID == "" {
		return ctx
	}
	return context.WithValue(ctx, tokenIDKey, tokenID)
}

// TokenIDFromContext extracts the presented token id from context.
func TokenIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(tokenIDKey).(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}
