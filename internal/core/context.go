package core

import "context"

type contextKey string

const (
	ctxKeyIPAddress contextKey = "requester_ip"
	ctxKeyUserAgent contextKey = "requester_ua"
	ctxKeyAPIKey    contextKey = "requester_key"
)

// ContextWithIPAddress records the requesting client's IP address. Loads
// started with the context carry it into the load history.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// ContextWithUserAgent records the requesting client's User-Agent.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, ctxKeyUserAgent, ua)
}

// IPAddressFromContext returns the address set by ContextWithIPAddress.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}

// UserAgentFromContext returns the value set by ContextWithUserAgent.
func UserAgentFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserAgent).(string); ok {
		return v
	}
	return ""
}

// ContextWithAPIKey records which API key authorized the request, as a
// fingerprint rather than the key itself.
func ContextWithAPIKey(ctx context.Context, fingerprint string) context.Context {
	return context.WithValue(ctx, ctxKeyAPIKey, fingerprint)
}

// APIKeyFromContext returns the fingerprint set by ContextWithAPIKey.
func APIKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyAPIKey).(string); ok {
		return v
	}
	return ""
}
