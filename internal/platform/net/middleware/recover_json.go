package middleware

import (
	"net/http"
	"runtime/debug"

	perr "echokit/internal/platform/errors"
	"echokit/internal/platform/logger"
	pnet "echokit/internal/platform/net"
	phttp "echokit/internal/platform/net/http"
)

// RecoverJSON converts panics into a JSON 500 envelope and logs the stack
func RecoverJSON(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			v := recover()
			if v == nil {
				return
			}
			if v == http.ErrAbortHandler {
				panic(v)
			}
			reqID := pnet.RequestID(r.Context())
			logger.C(r.Context()).Error().
				Str("request_id", reqID).
				Interface("panic", v).
				Str("stack", string(debug.Stack())).
				Msg("panic recovered")

			if reqID != "" {
				w.Header().Set("X-Request-ID", reqID)
			}
			_, env := pnet.Error(perr.PanicErrf("panic recovered"), reqID)
			env.StatusCode = http.StatusInternalServerError
			env.Status = http.StatusText(http.StatusInternalServerError)
			phttp.JSON(w, http.StatusInternalServerError, env)
		}()
		next.ServeHTTP(w, r)
	})
}
