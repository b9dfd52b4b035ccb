package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/viant/fingov/tracing"
)

// traced opens a server span per request, named after the matched route pattern.
func traced(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracing.Start(r.Context(), r.Method, tracing.Server)
		span.Set(tracing.KeyMethod, r.Method)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			if rctx := chi.RouteContext(ctx); rctx != nil {
				span.Set(tracing.KeyRoute, rctx.RoutePattern())
			}
			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			span.EndHTTP(status)
		}()
		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}
