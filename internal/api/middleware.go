package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/buildtall-systems/orderlife/internal/orders"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type contextKey int

const (
	contextKeyOwner contextKey = iota
	contextKeyActor
)

// Logging logs one line per request with its status and duration.
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			next.ServeHTTP(ww, r)

			logger.Info("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())))
		})
	}
}

// Business reads the owning business and acting user from request headers.
// Requests without X-Business-ID are refused.
func Business(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := strings.TrimSpace(r.Header.Get("X-Business-ID"))
		if owner == "" {
			writeError(w, &orders.MissingFieldError{Fields: []string{"X-Business-ID"}})
			return
		}
		actor := orders.Actor{
			ID:   strings.TrimSpace(r.Header.Get("X-Actor-ID")),
			Name: strings.TrimSpace(r.Header.Get("X-Actor-Name")),
			Role: strings.TrimSpace(r.Header.Get("X-Actor-Role")),
		}
		ctx := context.WithValue(r.Context(), contextKeyOwner, owner)
		ctx = context.WithValue(ctx, contextKeyActor, actor)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func ownerFrom(ctx context.Context) string {
	owner, _ := ctx.Value(contextKeyOwner).(string)
	return owner
}

func actorFrom(ctx context.Context) orders.Actor {
	actor, _ := ctx.Value(contextKeyActor).(orders.Actor)
	return actor
}
