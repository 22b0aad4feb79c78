package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	domainauth "blog-server-go/internal/domain/auth"
	"blog-server-go/internal/domain/auth/captcha"
	"blog-server-go/internal/domain/auth/challenge"
	"blog-server-go/internal/domain/eventbus"
	eventinfra "blog-server-go/internal/domain/eventbus/infrastructure"
	platformconfig "blog-server-go/internal/platform/config"
	platformerrors "blog-server-go/internal/platform/errors"
	platformlogging "blog-server-go/internal/platform/logging"
	platformobservability "blog-server-go/internal/platform/observability"
	platformstorage "blog-server-go/internal/platform/storage"
	"blog-server-go/internal/transport/gateway"
	httptransport "blog-server-go/internal/transport/http"
	"blog-server-go/internal/transport/http/authapi"
)

// Mode selects which HTTP servers Run starts.
type Mode string

const (
	ModeAll     Mode = "all"
	ModeAuth    Mode = "auth"
	ModeGateway Mode = "gateway"
)

const (
	eventWorkers   = 4
	eventQueueSize = 256
)

// Options configures Run.
type Options struct {
	// ConfigPath pins the YAML file; empty searches the working directory.
	ConfigPath string
	Mode       Mode
	// DisableDotEnv skips loading .env, for tests.
	DisableDotEnv bool
}

type stepFn func(context.Context, *appState) error

type initStep struct {
	ID        string
	Title     string
	DependsOn []string
	Kind      platformerrors.Kind
	Execute   stepFn
}

type appState struct {
	options               Options
	config                *platformconfig.Config
	configPath            string
	logger                *platformlogging.Logger
	observabilityShutdown platformobservability.ShutdownFunc
	metrics               *platformobservability.Metrics
	db                    *gorm.DB
	challenges            challenge.Store
	events                *eventbus.AsyncEventBus
	tokens                *domainauth.TokenService
	authService           *domainauth.Service
}

// close releases everything the init steps acquired, in reverse order.
func (s *appState) close() {
	if s.events != nil {
		s.events.Stop()
	}
	if s.challenges != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.challenges.Close(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("认证", "验证码存储未正常关闭: %v", err)
		}
		cancel()
	}
	if s.db != nil {
		if err := platformstorage.Close(s.db); err != nil && s.logger != nil {
			s.logger.WarnTag("存储", "数据库未正常关闭: %v", err)
		}
	}
	if s.observabilityShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.observabilityShutdown(ctx); err != nil && s.logger != nil {
			s.logger.WarnTag("引导", "可观测性未正常关闭: %v", err)
		}
		cancel()
	}
}

// Run 启动整个服务生命周期，负责加载配置、初始化依赖和优雅关停。
func Run(ctx context.Context, opts Options) error {
	mode, err := parseMode(opts.Mode)
	if err != nil {
		return err
	}
	opts.Mode = mode

	state := &appState{options: opts}
	steps := initGraphFor(mode)
	if err := executeInitSteps(ctx, steps, state); err != nil {
		state.close()
		if state.logger != nil {
			state.logger.Close()
		}
		return err
	}
	logger := state.logger
	defer logger.Close()
	defer state.close()

	if err := validateState(state, mode); err != nil {
		return err
	}

	logBootstrapGraph(steps, logger)
	logger.InfoTag("引导", "配置来源: %s，运行模式: %s", state.configPath, mode)

	rootCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	signalCtx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(rootCtx)

	if err := startServices(state, group, groupCtx); err != nil {
		cancel()
		_ = group.Wait()
		return err
	}
	logger.InfoTag("引导", "服务已成功启动")

	return waitForShutdown(signalCtx, groupCtx, cancel, logger, group)
}

// validateState 确认当前模式所需的依赖都已就绪。
func validateState(state *appState, mode Mode) error {
	missing := ""
	switch {
	case state.config == nil:
		missing = "config"
	case mode != ModeGateway && state.authService == nil:
		missing = "auth service"
	case state.tokens == nil:
		missing = "token service"
	}
	if missing == "" {
		return nil
	}
	return platformerrors.New(
		platformerrors.KindBootstrap,
		"bootstrap state validation",
		missing+" not initialised",
	)
}

func parseMode(mode Mode) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(string(mode)))) {
	case "", ModeAll:
		return ModeAll, nil
	case ModeAuth:
		return ModeAuth, nil
	case ModeGateway:
		return ModeGateway, nil
	default:
		return "", platformerrors.New(platformerrors.KindConfig, "bootstrap.mode", fmt.Sprintf("unknown run mode %q", mode))
	}
}

func logBootstrapGraph(steps []initStep, logger *platformlogging.Logger) {
	if logger == nil {
		return
	}
	logger.InfoTag("引导", "初始化依赖关系概览")

	// 阶段名称映射
	stepNames := map[string]string{
		"config:load":               "加载配置",
		"logging:init-provider":     "初始化日志提供者",
		"observability:setup-hooks": "设置可观测性钩子与指标",
		"storage:init-database":     "初始化数据库并执行迁移",
		"auth:init-tokens":          "初始化令牌服务",
		"auth:init-challenge-store": "初始化验证码存储",
		"eventbus:init-audit":       "初始化事件总线与审计记录",
		"auth:init-service":         "初始化认证服务",
	}

	for _, step := range steps {
		name, ok := stepNames[step.ID]
		if !ok {
			name = step.Title
		}
		if len(step.DependsOn) == 0 {
			logger.InfoTag("引导", "%s (%s)", name, step.ID)
			continue
		}
		logger.InfoTag("引导", "%s (%s) <- %s", name, step.ID, strings.Join(step.DependsOn, ", "))
	}
	logger.InfoTag("引导", "启动服务")
}

func executeInitSteps(ctx context.Context, steps []initStep, state *appState) error {
	if state == nil {
		return platformerrors.New(
			platformerrors.KindBootstrap,
			"execute init steps",
			"nil bootstrap state",
		)
	}

	completed := make(map[string]struct{}, len(steps))
	for _, step := range steps {
		for _, dep := range step.DependsOn {
			if _, ok := completed[dep]; !ok {
				return platformerrors.New(
					platformerrors.KindBootstrap,
					step.ID,
					fmt.Sprintf("dependency %s not satisfied", dep),
				)
			}
		}
		if step.Execute == nil {
			return platformerrors.New(
				platformerrors.KindBootstrap,
				step.ID,
				"missing execute function",
			)
		}
		if err := step.Execute(ctx, state); err != nil {
			var typed *platformerrors.Error
			if errors.As(err, &typed) {
				return err
			}

			kind := step.Kind
			if kind == "" {
				kind = platformerrors.KindBootstrap
			}
			return platformerrors.Wrap(kind, step.ID, "bootstrap step failed", err)
		}
		completed[step.ID] = struct{}{}
	}
	return nil
}

func InitGraph() []initStep {
	return []initStep{
		{
			ID:      "config:load",
			Title:   "Load configuration",
			Kind:    platformerrors.KindConfig,
			Execute: loadConfigStep,
		},
		{
			ID:        "logging:init-provider",
			Title:     "Initialise logging provider",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initLoggingStep,
		},
		{
			ID:        "observability:setup-hooks",
			Title:     "Setup observability hooks",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   setupObservabilityStep,
		},
		{
			ID:        "auth:init-tokens",
			Title:     "Initialise token service",
			DependsOn: []string{"config:load"},
			Kind:      platformerrors.KindConfig,
			Execute:   initTokensStep,
		},
		{
			ID:        "storage:init-database",
			Title:     "Initialise database",
			DependsOn: []string{"logging:init-provider"},
			Kind:      platformerrors.KindStorage,
			Execute:   initDatabaseStep,
		},
		{
			ID:        "auth:init-challenge-store",
			Title:     "Initialise challenge store",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindStorage,
			Execute:   initChallengeStoreStep,
		},
		{
			ID:        "eventbus:init-audit",
			Title:     "Initialise event bus",
			DependsOn: []string{"storage:init-database"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initEventBusStep,
		},
		{
			ID:        "auth:init-service",
			Title:     "Initialise auth service",
			DependsOn: []string{"observability:setup-hooks", "auth:init-tokens", "auth:init-challenge-store", "eventbus:init-audit"},
			Kind:      platformerrors.KindBootstrap,
			Execute:   initAuthServiceStep,
		},
	}
}

// gatewaySteps 是网关独立运行所需的步骤：网关只校验令牌，不触碰数据库和验证码存储。
var gatewaySteps = []string{
	"config:load",
	"logging:init-provider",
	"observability:setup-hooks",
	"auth:init-tokens",
}

func initGraphFor(mode Mode) []initStep {
	if mode == ModeGateway {
		return selectSteps(InitGraph(), gatewaySteps...)
	}
	return InitGraph()
}

// selectSteps keeps the listed steps in graph order.
func selectSteps(graph []initStep, ids ...string) []initStep {
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	steps := make([]initStep, 0, len(ids))
	for _, step := range graph {
		if keep[step.ID] {
			steps = append(steps, step)
		}
	}
	return steps
}

func loadConfigStep(_ context.Context, state *appState) error {
	loader := platformconfig.NewLoader().
		WithPath(state.options.ConfigPath).
		WithDotEnv(!state.options.DisableDotEnv)
	result, err := loader.Load()
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "config:load", "failed to load config", err)
	}
	state.config = result.Config
	state.configPath = result.Path
	return nil
}

func initLoggingStep(_ context.Context, state *appState) error {
	cfg := state.config.Log
	logger, err := platformlogging.New(platformlogging.Config{
		Level:    cfg.Level,
		Dir:      cfg.Dir,
		Filename: cfg.File,
	})
	if err != nil {
		return err
	}
	state.logger = logger
	return nil
}

func setupObservabilityStep(ctx context.Context, state *appState) error {
	shutdown, err := platformobservability.Setup(ctx, platformobservability.Config{
		Enabled: strings.EqualFold(state.config.Log.Level, "debug"),
	}, state.logger.Slog())
	if err != nil {
		return err
	}
	state.observabilityShutdown = shutdown
	if state.config.Metrics.Enabled {
		state.metrics = platformobservability.NewMetrics()
	}
	return nil
}

func initDatabaseStep(_ context.Context, state *appState) error {
	db, err := platformstorage.Open(state.config.Database.DSN)
	if err != nil {
		return err
	}
	if err := platformstorage.Migrate(db); err != nil {
		_ = platformstorage.Close(db)
		return platformerrors.Wrap(platformerrors.KindStorage, "storage:init-database", "failed to migrate database", err)
	}
	state.db = db
	state.logger.InfoTag("存储", "数据库已就绪: %s", state.config.Database.DSN)
	return nil
}

func challengeConfig(cfg platformconfig.ChallengeConfig) challenge.Config {
	return challenge.Config{
		Driver:            cfg.Driver,
		TTL:               cfg.TTL,
		ConsumeOnMismatch: cfg.ConsumeOnMismatch,
		Memory:            &challenge.MemoryConfig{GCInterval: cfg.GCInterval},
		Redis: &challenge.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Prefix:   cfg.Redis.Prefix,
		},
	}
}

func initChallengeStoreStep(_ context.Context, state *appState) error {
	cfg := state.config.Auth.Challenge
	store, err := challenge.New(challengeConfig(cfg), challenge.Dependencies{SQLiteDB: state.db})
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "auth:init-challenge-store", "failed to create challenge store", err)
	}
	state.challenges = store
	state.logger.InfoTag("认证", "验证码存储驱动: %s", challenge.ResolveDriver(cfg.Driver))
	return nil
}

func initEventBusStep(_ context.Context, state *appState) error {
	bus := eventbus.NewAsyncEventBus(eventWorkers, eventQueueSize, state.logger)
	recorder := eventbus.NewAuditRecorder(eventinfra.NewEventRepository(state.db), state.logger)
	if err := eventbus.SetupAuditRecorder(bus, recorder); err != nil {
		return err
	}
	bus.Start()
	state.events = bus
	return nil
}

func initTokensStep(_ context.Context, state *appState) error {
	cfg := state.config.Auth.Token
	tokens, err := domainauth.NewTokenService(cfg.Secret, cfg.SessionTTL, cfg.ChallengeTTL)
	if err != nil {
		return platformerrors.Wrap(platformerrors.KindConfig, "auth:init-tokens", "invalid token settings", err)
	}
	state.tokens = tokens
	return nil
}

func initAuthServiceStep(_ context.Context, state *appState) error {
	cfg := state.config.Auth
	service, err := domainauth.NewService(domainauth.Options{
		Users:      platformstorage.NewUserRepository(state.db),
		Challenges: state.challenges,
		Tokens:     state.tokens,
		Hasher:     domainauth.NewBcryptHasher(cfg.BcryptCost),
		Nicknames: domainauth.NewNicknameGenerator(domainauth.NicknameOptions{
			Prefix:       cfg.Nickname.Prefix,
			Ceiling:      cfg.Nickname.Ceiling,
			SuffixLength: cfg.Nickname.SuffixLength,
		}),
		Captcha: captcha.NewGenerator(captcha.Options{
			Width:   cfg.Captcha.Width,
			Height:  cfg.Captcha.Height,
			Length:  cfg.Captcha.Length,
			Quality: cfg.Captcha.Quality,
		}),
		Events:           state.events,
		Logger:           state.logger,
		Metrics:          state.metrics,
		NicknameAttempts: cfg.Nickname.Attempts,
	})
	if err != nil {
		return err
	}
	state.authService = service
	return nil
}

func metricsPath(cfg *platformconfig.Config) string {
	if !cfg.Metrics.Enabled {
		return ""
	}
	return cfg.Metrics.Path
}

func buildAuthHandler(state *appState) (http.Handler, error) {
	opts := httptransport.Options{
		Server:  "auth",
		Logger:  state.logger,
		Metrics: state.metrics,
		Debug:   strings.EqualFold(state.config.Log.Level, "debug"),
	}
	// 直连认证服务时同样需要暴露验证码键
	if state.config.Gateway.CORS.Enabled {
		opts.CORS = httptransport.DefaultCORS(authapi.CaptchaKeyHeader)
	}
	router, err := httptransport.Build(opts)
	if err != nil {
		return nil, err
	}
	api, err := authapi.NewService(state.authService, state.logger)
	if err != nil {
		return nil, err
	}
	api.Register(router.API)

	var metricsHandler http.Handler
	if state.metrics != nil {
		metricsHandler = state.metrics.Handler()
	}
	authapi.RegisterOps(router.API, metricsPath(state.config), metricsHandler)
	return router.Engine, nil
}

func buildGatewayHandler(state *appState) (http.Handler, error) {
	gw, err := gateway.New(gateway.Options{
		Config:      state.config.Gateway,
		Tokens:      state.tokens,
		Logger:      state.logger,
		Metrics:     state.metrics,
		MetricsPath: metricsPath(state.config),
		Debug:       strings.EqualFold(state.config.Log.Level, "debug"),
	})
	if err != nil {
		return nil, err
	}
	return gw.Handler(), nil
}

func startServices(state *appState, g *errgroup.Group, groupCtx context.Context) error {
	mode := state.options.Mode
	if mode == ModeAll || mode == ModeAuth {
		handler, err := buildAuthHandler(state)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "bootstrap.auth-server", "failed to build auth server", err)
		}
		startHTTPServer("认证服务", state.config.Auth.Addr, handler, state.logger, g, groupCtx)
	}
	if mode == ModeAll || mode == ModeGateway {
		handler, err := buildGatewayHandler(state)
		if err != nil {
			return platformerrors.Wrap(platformerrors.KindTransport, "bootstrap.gateway-server", "failed to build gateway", err)
		}
		startHTTPServer("网关", state.config.Gateway.Addr, handler, state.logger, g, groupCtx)
	}
	return nil
}

func startHTTPServer(
	name string,
	addr string,
	handler http.Handler,
	logger *platformlogging.Logger,
	g *errgroup.Group,
	groupCtx context.Context,
) *http.Server {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.InfoTag("HTTP", "%s 监听地址: %s", name, addr)

		go func() {
			<-groupCtx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.ErrorTag("HTTP", "%s 关闭失败: %v", name, err)
			} else {
				logger.InfoTag("HTTP", "%s 已优雅关闭", name)
			}
		}()

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorTag("HTTP", "%s 启动失败: %v", name, err)
			return err
		}
		return nil
	})

	return httpServer
}

// waitForShutdown blocks until a signal arrives or a server fails, then
// cancels the group and waits for every server to drain.
func waitForShutdown(
	signalCtx context.Context,
	groupCtx context.Context,
	cancel context.CancelFunc,
	logger *platformlogging.Logger,
	g *errgroup.Group,
) error {
	select {
	case <-signalCtx.Done():
		logger.InfoTag("引导", "收到系统信号 %v，正在进行资源清理", context.Cause(signalCtx))
	case <-groupCtx.Done():
		logger.WarnTag("引导", "服务异常退出，正在进行资源清理")
	}

	cancel()

	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case err := <-done:
		if err != nil {
			logger.ErrorTag("引导", "服务关闭过程中出现错误: %v", err)
			return err
		}
		logger.InfoTag("引导", "所有服务已成功关闭")
	case <-time.After(15 * time.Second):
		logger.ErrorTag("引导", "服务关闭超时，已强制退出")
		return errors.New("服务关闭超时")
	}
	return nil
}

// Migrate loads the configuration and applies pending schema migrations.
func Migrate(ctx context.Context, opts Options) error {
	state := &appState{options: opts}
	steps := selectSteps(InitGraph(), "config:load", "logging:init-provider", "storage:init-database")
	err := executeInitSteps(ctx, steps, state)
	defer func() {
		state.close()
		if state.logger != nil {
			state.logger.Close()
		}
	}()
	if err != nil {
		return err
	}

	history, err := platformstorage.NewMigrationManager(state.db).GetMigrationHistory()
	if err != nil {
		return err
	}
	for _, record := range history {
		state.logger.InfoTag("存储", "迁移 %s (%s) 应用于 %s", record.Version, record.Name, record.AppliedAt.Format(time.RFC3339))
	}
	return nil
}
