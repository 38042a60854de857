package httpkit

import (
	"compress/flate"
	"net/http"
	"time"

	"echokit/internal/platform/config"
	"echokit/internal/platform/net/middleware"
)

// StackOptions tunes CommonStack
type StackOptions struct {
	CORSOrigins []string
	Timeout     time.Duration // per request; retrievals can run for minutes
	SlowLog     time.Duration
	MaxInFlight int // 0 disables throttling
}

// StackOptionsFromConfig reads CORS_ORIGINS, REQUEST_TIMEOUT, SLOW_LOG and MAX_IN_FLIGHT
func StackOptionsFromConfig(c config.Conf) StackOptions {
	return StackOptions{
		CORSOrigins: c.MayCSV("CORS_ORIGINS", nil),
		Timeout:     c.MayDuration("REQUEST_TIMEOUT", 10*time.Minute),
		SlowLog:     c.MayDuration("SLOW_LOG", 5*time.Second),
		MaxInFlight: c.MayInt("MAX_IN_FLIGHT", 0),
	}
}

// CommonStack returns the baseline middleware for the versioned API
func CommonStack(o StackOptions) []func(http.Handler) http.Handler {
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Minute
	}
	stack := []func(http.Handler) http.Handler{
		middleware.RequestID(),
		middleware.RealIP(),
		middleware.AccessLogZerolog(middleware.AccessLogOptions{Slow: o.SlowLog}),
		middleware.RecoverJSON,
		middleware.NoCache(),
		middleware.CORS(middleware.CORSOptions{AllowedOrigins: o.CORSOrigins}),
		middleware.Compress(flate.BestSpeed),
		middleware.StripSlashes(),
	}
	if o.MaxInFlight > 0 {
		stack = append(stack, middleware.Throttle(o.MaxInFlight, o.MaxInFlight*4, o.Timeout))
	}
	return append(stack, middleware.Timeout(o.Timeout))
}
