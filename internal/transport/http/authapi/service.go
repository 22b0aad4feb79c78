package authapi

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"blog-server-go/internal/domain/auth/model"
	"blog-server-go/internal/platform/errors"
	httptransport "blog-server-go/internal/transport/http"
)

// CaptchaKeyHeader carries the challenge key between captcha issue and login.
const CaptchaKeyHeader = "X-Captcha-Key"

// AuthService is the domain contract behind the auth routes.
type AuthService interface {
	Login(ctx context.Context, req *model.LoginRequest, challengeKey string) (*model.UserView, error)
	Register(ctx context.Context, req *model.RegisterRequest) (*model.UserView, error)
	IssueChallenge(ctx context.Context) (*model.Challenge, error)
}

// Service 认证接口的HTTP传输层实现
type Service struct {
	auth   AuthService
	logger httptransport.Logger
}

// NewService 创建认证HTTP服务
func NewService(auth AuthService, logger httptransport.Logger) (*Service, error) {
	if auth == nil {
		return nil, errors.New(errors.KindConfig, "authapi.new", "auth service is required")
	}
	return &Service{auth: auth, logger: logger}, nil
}

// Register 注册认证相关的HTTP路由
func (s *Service) Register(router *gin.RouterGroup) {
	group := router.Group("/auth")
	group.GET("/captcha", s.handleCaptcha)
	group.POST("/login", s.handleLogin)
	group.POST("/register", s.handleRegister)
}

// handleCaptcha 生成验证码图片，key 通过响应头返回
func (s *Service) handleCaptcha(c *gin.Context) {
	ch, err := s.auth.IssueChallenge(c.Request.Context())
	if err != nil {
		httptransport.RespondDomainError(c, err, s.logger)
		return
	}

	c.Header(CaptchaKeyHeader, ch.Key)
	c.Header("Cache-Control", "no-store, no-cache")
	c.Header("Pragma", "no-cache")
	c.Header("Expires", "0")
	c.Header("X-Captcha-Expires-In", strconv.Itoa(int(ch.ExpiresIn.Seconds())))
	c.Data(http.StatusOK, "image/jpeg", ch.Image)
}

// handleLogin 用户名密码登录
func (s *Service) handleLogin(c *gin.Context) {
	var req model.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondDomainError(c, model.ErrArgumentIsNull.WithOp("authapi.login"), s.logger)
		return
	}

	view, err := s.auth.Login(c.Request.Context(), &req, c.GetHeader(CaptchaKeyHeader))
	if err != nil {
		httptransport.RespondDomainError(c, err, s.logger)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, view, "login succeeded")
}

// handleRegister 用户注册
func (s *Service) handleRegister(c *gin.Context) {
	var req model.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httptransport.RespondDomainError(c, model.ErrArgumentIsNull.WithOp("authapi.register"), s.logger)
		return
	}

	view, err := s.auth.Register(c.Request.Context(), &req)
	if err != nil {
		httptransport.RespondDomainError(c, err, s.logger)
		return
	}
	httptransport.RespondSuccess(c, http.StatusOK, view, "register succeeded")
}

// RegisterOps 注册健康检查与指标端点
func RegisterOps(router *gin.RouterGroup, metricsPath string, metrics http.Handler) {
	router.GET("/healthz", func(c *gin.Context) {
		httptransport.RespondSuccess(c, http.StatusOK, gin.H{"status": "ok"}, "")
	})
	if metrics != nil && metricsPath != "" {
		router.GET(metricsPath, gin.WrapH(metrics))
	}
}
