package gateway

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"blog-server-go/internal/platform/config"
	"blog-server-go/internal/platform/requestctx"
	httptransport "blog-server-go/internal/transport/http"
)

// Route forwards matching paths to one upstream service.
type Route struct {
	Name    string
	pattern pathPattern
	target  *url.URL
	proxy   *httputil.ReverseProxy
}

// RouteTable resolves request paths to routes in declaration order.
type RouteTable struct {
	routes []*Route
}

// ProxyOptions tunes the upstream transport.
type ProxyOptions struct {
	Timeout time.Duration
	// StripUpstreamCORS drops the upstream's CORS headers, for when the
	// gateway answers CORS itself.
	StripUpstreamCORS bool
	Logger            Logger
}

func NewRouteTable(cfgs []config.RouteConfig, opts ProxyOptions) (*RouteTable, error) {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: timeout,
	}

	table := &RouteTable{}
	for _, rc := range cfgs {
		pattern, err := compilePattern(rc.Path)
		if err != nil {
			return nil, fmt.Errorf("route %s: %w", rc.Name, err)
		}
		target, err := url.Parse(rc.Target)
		if err != nil || target.Scheme == "" || target.Host == "" {
			return nil, fmt.Errorf("route %s: invalid target %q", rc.Name, rc.Target)
		}
		name := rc.Name
		if name == "" {
			name = rc.Path
		}
		table.routes = append(table.routes, &Route{
			Name:    name,
			pattern: pattern,
			target:  target,
			proxy:   newReverseProxy(name, target, transport, opts),
		})
	}
	return table, nil
}

// Match returns the first route whose pattern matches path.
func (t *RouteTable) Match(path string) *Route {
	for _, r := range t.routes {
		if r.pattern.match(path) {
			return r
		}
	}
	return nil
}

func newReverseProxy(name string, target *url.URL, transport http.RoundTripper, opts ProxyOptions) *httputil.ReverseProxy {
	logger := opts.Logger
	proxy := &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(target)
			pr.SetXForwarded()
			pr.Out.Header.Del(requestctx.UserIDHeader)
			if id, ok := requestctx.UserIDFromContext(pr.In.Context()); ok {
				pr.Out.Header.Set(requestctx.UserIDHeader, strconv.FormatInt(id, 10))
			}
		},
		Transport: transport,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			if logger != nil {
				logger.Error("[网关] 转发 %s %s 到 %s 失败: %v", r.Method, r.URL.Path, name, err)
			}
			if c, ok := w.(gin.ResponseWriter); ok && c.Written() {
				return
			}
			writeJSONError(w, http.StatusBadGateway, "upstream service unavailable")
		},
	}
	if opts.StripUpstreamCORS {
		proxy.ModifyResponse = func(res *http.Response) error {
			stripCORSHeaders(res.Header)
			return nil
		}
	}
	return proxy
}

// stripCORSHeaders removes Access-Control-* headers and the CORS entries of
// Vary from an upstream response.
func stripCORSHeaders(h http.Header) {
	for key := range h {
		if strings.HasPrefix(key, "Access-Control-") {
			delete(h, key)
		}
	}
	values := h.Values("Vary")
	if len(values) == 0 {
		return
	}
	var kept []string
	for _, value := range values {
		for _, field := range strings.Split(value, ",") {
			field = strings.TrimSpace(field)
			if field == "" || strings.EqualFold(field, "Origin") ||
				strings.HasPrefix(http.CanonicalHeaderKey(field), "Access-Control-Request-") {
				continue
			}
			kept = append(kept, field)
		}
	}
	h.Del("Vary")
	if len(kept) > 0 {
		h.Set("Vary", strings.Join(kept, ", "))
	}
}

// dispatch proxies the request to its route or answers 404.
func (t *RouteTable) dispatch(c *gin.Context) {
	route := t.Match(c.Request.URL.Path)
	if route == nil {
		httptransport.RespondError(c, http.StatusNotFound, "route not found", nil)
		return
	}
	c.Set(httptransport.RouteLabelKey, route.Name)
	route.proxy.ServeHTTP(c.Writer, c.Request)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = fmt.Fprintf(w, `{"success":false,"data":null,"message":%q,"code":%d}`, message, status)
}
