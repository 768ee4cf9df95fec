package obs

import (
	"context"
	"log"
	"time"
)

type ctxKey string

const (
	RequestIDKey ctxKey = "req_id"
	TenantIDKey  ctxKey = "tenant_id"
)

// WithRequest stores the request and tenant IDs used to tag log lines.
func WithRequest(ctx context.Context, reqID, tenantID string) context.Context {
	ctx = context.WithValue(ctx, RequestIDKey, reqID)
	return context.WithValue(ctx, TenantIDKey, tenantID)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

func TenantID(ctx context.Context) string {
	id, _ := ctx.Value(TenantIDKey).(string)
	return id
}

// Time logs the duration of an operation when the returned func is deferred.
//
//	defer obs.Time(ctx, "eta.CalculateBusETA")(&err)
func Time(ctx context.Context, name string) func(errp *error) {
	start := time.Now()

	reqID := RequestID(ctx)
	tenantID := TenantID(ctx)

	return func(errp *error) {
		dur := time.Since(start)

		if errp != nil && *errp != nil {
			log.Printf("req_id=%s tenant=%s op=%s dur=%dms err=%v", reqID, tenantID, name, dur.Milliseconds(), *errp)
			return
		}
		log.Printf("req_id=%s tenant=%s op=%s dur=%dms", reqID, tenantID, name, dur.Milliseconds())
	}
}
