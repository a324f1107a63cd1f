package agent

import (
	"net"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"marhaba/internal/infra/config"
)

// Default pool settings: one agent host, up to eight concurrent calls per query.
const (
	defaultMaxIdleConns        = 32
	defaultMaxIdleConnsPerHost = 16
	defaultIdleConnTimeout     = 90 * time.Second
	defaultDialTimeout         = 10 * time.Second
)

// NewPooledTransport creates an http.Transport sized for fan-out calls to a
// single agent host. Zero pool fields fall back to defaults.
func NewPooledTransport(pool config.PoolConfig) *http.Transport {
	maxIdle := pool.MaxIdleConns
	if maxIdle <= 0 {
		maxIdle = defaultMaxIdleConns
	}
	maxIdlePerHost := pool.MaxIdleConnsPerHost
	if maxIdlePerHost <= 0 {
		maxIdlePerHost = defaultMaxIdleConnsPerHost
	}
	idleTimeout := pool.IdleConnTimeout
	if idleTimeout <= 0 {
		idleTimeout = defaultIdleConnTimeout
	}

	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   defaultDialTimeout,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 10 * time.Second,
		MaxIdleConns:        maxIdle,
		MaxIdleConnsPerHost: maxIdlePerHost,
		MaxConnsPerHost:     pool.MaxConnsPerHost, // 0 = unlimited
		IdleConnTimeout:     idleTimeout,
		ForceAttemptHTTP2:   true,
	}
}

// NewHTTPClient returns a traced client over the pooled transport. Deadlines
// are applied per call through the request context, so the client has none.
func NewHTTPClient(pool config.PoolConfig) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(NewPooledTransport(pool),
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return "agent " + r.Method + " " + r.URL.Path
			}),
		),
	}
}
