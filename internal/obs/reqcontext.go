package obs

import "context"

// ctxKey is a private context key type, mirroring stem/pkg/context's
// exported-string-key approach but avoiding collisions with other
// packages' context values.
type ctxKey string

const (
	requestIDKey ctxKey = "request_id"
	methodKey    ctxKey = "method"
	routeKey     ctxKey = "route"
	remoteIPKey  ctxKey = "remote_ip"
)

func SetRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

func SetMethod(ctx context.Context, method string) context.Context {
	return context.WithValue(ctx, methodKey, method)
}

func GetMethod(ctx context.Context) string {
	v, _ := ctx.Value(methodKey).(string)
	return v
}

func SetRoute(ctx context.Context, route string) context.Context {
	return context.WithValue(ctx, routeKey, route)
}

func GetRoute(ctx context.Context) string {
	v, _ := ctx.Value(routeKey).(string)
	return v
}

func SetRemoteIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, remoteIPKey, ip)
}

func GetRemoteIP(ctx context.Context) string {
	v, _ := ctx.Value(remoteIPKey).(string)
	return v
}
