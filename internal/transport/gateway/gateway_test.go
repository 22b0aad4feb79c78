package gateway

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blog-server-go/internal/domain/auth"
	"blog-server-go/internal/platform/config"
	"blog-server-go/internal/platform/observability"
	"blog-server-go/internal/platform/requestctx"
	httptransport "blog-server-go/internal/transport/http"
)

type upstream struct {
	server *httptest.Server
	hits   atomic.Int32
	mu     sync.Mutex
	lastID string
	seenID bool
}

func newUpstream(t *testing.T) *upstream {
	t.Helper()
	u := &upstream{}
	u.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		u.mu.Lock()
		_, u.seenID = r.Header[requestctx.UserIDHeader]
		u.lastID = r.Header.Get(requestctx.UserIDHeader)
		u.mu.Unlock()
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("upstream:" + r.URL.Path))
	}))
	t.Cleanup(u.server.Close)
	return u
}

func (u *upstream) userID() (string, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.lastID, u.seenID
}

type gatewayEnv struct {
	server   *httptest.Server
	tokens   *auth.TokenService
	metrics  *observability.Metrics
	articles *upstream
	authSvc  *upstream
}

func newGatewayEnv(t *testing.T) *gatewayEnv {
	t.Helper()
	tokens, err := auth.NewTokenService("gateway-secret", time.Hour, time.Minute)
	require.NoError(t, err)

	env := &gatewayEnv{
		tokens:   tokens,
		metrics:  observability.NewMetrics(),
		articles: newUpstream(t),
		authSvc:  newUpstream(t),
	}
	gw, err := New(Options{
		Config: config.GatewayConfig{
			Whitelist: []string{"/auth/**"},
			Routes: []config.RouteConfig{
				{Name: "articles", Path: "/articles/**", Target: env.articles.server.URL},
				{Name: "auth", Path: "/auth/**", Target: env.authSvc.server.URL},
				{Name: "users", Path: "/users/**", Target: "http://127.0.0.1:1"},
			},
			CORS:            config.CORSConfig{Enabled: true, MaxAge: time.Hour},
			UpstreamTimeout: 2 * time.Second,
		},
		Tokens:      tokens,
		Metrics:     env.metrics,
		MetricsPath: "/metrics",
	})
	require.NoError(t, err)
	// the proxy needs a real connection; httptest.ResponseRecorder is not a CloseNotifier
	env.server = httptest.NewServer(gw.Handler())
	t.Cleanup(env.server.Close)
	return env
}

func (e *gatewayEnv) api() *apitest.APITest {
	return apitest.New().EnableNetworking(e.server.Client())
}

func (e *gatewayEnv) url(path string) string {
	return e.server.URL + path
}

func (e *gatewayEnv) bearer(t *testing.T, id int64) string {
	t.Helper()
	token, err := e.tokens.IssueSession(id)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestGatewayRejectsMissingToken(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/articles/5")).
		Expect(t).
		Status(http.StatusUnauthorized).
		Body("").
		End()

	assert.Equal(t, int32(0), env.articles.hits.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.GatewayDecisions.WithLabelValues("rejected")))
}

func TestGatewayForwardsWhitelistedPath(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Post(env.url("/auth/login")).
		Header(requestctx.UserIDHeader, "999").
		JSON(`{"username":"validUser1"}`).
		Expect(t).
		Status(http.StatusOK).
		Body("upstream:/auth/login").
		End()

	assert.Equal(t, int32(1), env.authSvc.hits.Load())
	_, seen := env.authSvc.userID()
	assert.False(t, seen, "spoofed identity header must be stripped")
}

func TestGatewayForwardsAuthorizedRequest(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/articles/5")).
		Header("Authorization", env.bearer(t, 42)).
		Header(requestctx.UserIDHeader, "1").
		Expect(t).
		Status(http.StatusOK).
		Body("upstream:/articles/5").
		End()

	id, seen := env.articles.userID()
	assert.True(t, seen)
	assert.Equal(t, "42", id)
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.GatewayDecisions.WithLabelValues("authorized")))
}

func TestGatewayRejectsBadTokens(t *testing.T) {
	env := newGatewayEnv(t)

	past, err := auth.NewTokenService("gateway-secret", time.Hour, time.Minute)
	require.NoError(t, err)
	expired, err := past.WithClock(func() time.Time { return time.Now().Add(-2 * time.Hour) }).IssueSession(42)
	require.NoError(t, err)

	challengeKey, err := env.tokens.IssueChallengeKey()
	require.NoError(t, err)

	for name, header := range map[string]string{
		"malformed":    "Bearer not-a-token",
		"expired":      "Bearer " + expired,
		"wrong scheme": "Token " + challengeKey,
		"non numeric":  "Bearer " + challengeKey,
		"empty bearer": "Bearer ",
	} {
		t.Run(name, func(t *testing.T) {
			env.api().
				Get(env.url("/articles/5")).
				Header("Authorization", header).
				Expect(t).
				Status(http.StatusUnauthorized).
				Body("").
				End()
		})
	}
	assert.Equal(t, int32(0), env.articles.hits.Load())
}

func TestGatewayPreflightSkipsAuthorization(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Method(http.MethodOptions).
		URL(env.url("/articles/5")).
		Header("Origin", "http://blog.example.com").
		Header("Access-Control-Request-Method", "DELETE").
		Expect(t).
		Status(http.StatusOK).
		Header("Access-Control-Allow-Origin", "*").
		Header("Access-Control-Max-Age", "3600").
		End()

	env.api().
		Method(http.MethodOptions).
		URL(env.url("/articles/5")).
		Expect(t).
		Status(http.StatusOK).
		End()

	assert.Equal(t, int32(0), env.articles.hits.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(env.metrics.GatewayDecisions.WithLabelValues("preflight")))
}

func TestGatewayCORSHeadersOnRejection(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/articles/5")).
		Header("Origin", "http://blog.example.com").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("Access-Control-Allow-Origin", "*").
		End()
}

func TestGatewayDoesNotDuplicateUpstreamCORS(t *testing.T) {
	router, err := httptransport.Build(httptransport.Options{
		Server: "auth",
		CORS:   httptransport.DefaultCORS("X-Captcha-Key"),
	})
	require.NoError(t, err)
	router.API.GET("/auth/captcha", func(c *gin.Context) {
		c.Header("X-Captcha-Key", "key-1")
		c.Header("Vary", "Accept-Encoding")
		c.Data(http.StatusOK, "image/jpeg", []byte{0xFF, 0xD8, 0xFF, 0xD9})
	})
	authServer := httptest.NewServer(router.Engine)
	t.Cleanup(authServer.Close)

	tokens, err := auth.NewTokenService("gateway-secret", time.Hour, time.Minute)
	require.NoError(t, err)
	gw, err := New(Options{
		Config: config.GatewayConfig{
			Whitelist: []string{"/auth/**"},
			Routes:    []config.RouteConfig{{Name: "auth", Path: "/auth/**", Target: authServer.URL}},
			CORS:      config.CORSConfig{Enabled: true, MaxAge: time.Hour},
		},
		Tokens: tokens,
	})
	require.NoError(t, err)
	server := httptest.NewServer(gw.Handler())
	t.Cleanup(server.Close)

	result := apitest.New().
		EnableNetworking(server.Client()).
		Get(server.URL+"/auth/captcha").
		Header("Origin", "http://blog.example.com").
		Expect(t).
		Status(http.StatusOK).
		Header("X-Captcha-Key", "key-1").
		End()

	header := result.Response.Header
	assert.Equal(t, []string{"*"}, header.Values("Access-Control-Allow-Origin"))
	assert.Equal(t, []string{"X-Captcha-Key"}, header.Values("Access-Control-Expose-Headers"))
	assert.Equal(t, []string{"Accept-Encoding"}, header.Values("Vary"))
}

func TestStripCORSHeaders(t *testing.T) {
	h := http.Header{}
	h.Add("Access-Control-Allow-Origin", "*")
	h.Add("Access-Control-Expose-Headers", "X-Captcha-Key")
	h.Add("Vary", "Origin, Accept-Encoding")
	h.Add("Vary", "Access-Control-Request-Method")
	h.Set("Content-Type", "image/jpeg")

	stripCORSHeaders(h)

	assert.Empty(t, h.Values("Access-Control-Allow-Origin"))
	assert.Empty(t, h.Values("Access-Control-Expose-Headers"))
	assert.Equal(t, []string{"Accept-Encoding"}, h.Values("Vary"))
	assert.Equal(t, "image/jpeg", h.Get("Content-Type"))

	only := http.Header{"Vary": {"Origin"}}
	stripCORSHeaders(only)
	assert.Empty(t, only.Values("Vary"))
}

func TestGatewayUnknownRoute(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/comments/1")).
		Header("Authorization", env.bearer(t, 7)).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"success":false,"data":null,"message":"route not found","code":404}`).
		End()
}

func TestGatewayUpstreamDown(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/users/me")).
		Header("Authorization", env.bearer(t, 7)).
		Expect(t).
		Status(http.StatusBadGateway).
		Body(`{"success":false,"data":null,"message":"upstream service unavailable","code":502}`).
		End()
}

func TestGatewayOpsRoutes(t *testing.T) {
	env := newGatewayEnv(t)

	env.api().
		Get(env.url("/healthz")).
		Expect(t).
		Status(http.StatusOK).
		End()
	env.api().
		Get(env.url("/metrics")).
		Expect(t).
		Status(http.StatusOK).
		End()
}

func TestNewGatewayValidatesConfig(t *testing.T) {
	tokens, err := auth.NewTokenService("s", time.Hour, time.Minute)
	require.NoError(t, err)

	_, err = New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Tokens: tokens, Config: config.GatewayConfig{
		Routes: []config.RouteConfig{{Name: "bad", Path: "/x/**", Target: "not a url"}},
	}})
	assert.Error(t, err)

	_, err = New(Options{Tokens: tokens, Config: config.GatewayConfig{Whitelist: []string{"nope"}}})
	assert.Error(t, err)
}
