package auth

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"

	"blog-server-go/internal/domain/auth/challenge"
	"blog-server-go/internal/domain/auth/model"
	"blog-server-go/internal/domain/auth/repository"
	"blog-server-go/internal/domain/eventbus"
	platformerrors "blog-server-go/internal/platform/errors"
	"blog-server-go/internal/platform/observability"
)

// NicknameSource yields candidate nicknames.
type NicknameSource interface {
	Next() string
}

// CaptchaRenderer produces a random text and its image.
type CaptchaRenderer interface {
	Generate() (string, []byte, error)
}

// EventPublisher receives auth events. Publishing never blocks a request.
type EventPublisher interface {
	PublishAsync(topic string, args ...interface{}) bool
}

// Options wires the service collaborators.
type Options struct {
	Users      repository.UserRepository
	Challenges challenge.Store
	Tokens     *TokenService
	Hasher     PasswordHasher
	Nicknames  NicknameSource
	Captcha    CaptchaRenderer
	Events     EventPublisher
	Logger     model.Logger
	Metrics    *observability.Metrics
	// NicknameAttempts bounds nickname generation per registration.
	NicknameAttempts int
}

// Service implements login, registration and captcha issuance.
type Service struct {
	users      repository.UserRepository
	challenges challenge.Store
	tokens     *TokenService
	hasher     PasswordHasher
	nicknames  NicknameSource
	captcha    CaptchaRenderer
	events     EventPublisher
	logger     model.Logger
	metrics    *observability.Metrics
	attempts   int
}

var errNicknameTaken = errors.New("nickname already taken")

func NewService(opts Options) (*Service, error) {
	switch {
	case opts.Users == nil:
		return nil, errors.New("auth service requires a user repository")
	case opts.Challenges == nil:
		return nil, errors.New("auth service requires a challenge store")
	case opts.Tokens == nil:
		return nil, errors.New("auth service requires a token service")
	case opts.Hasher == nil:
		return nil, errors.New("auth service requires a password hasher")
	case opts.Nicknames == nil:
		return nil, errors.New("auth service requires a nickname generator")
	}
	attempts := opts.NicknameAttempts
	if attempts <= 0 {
		attempts = 16
	}
	return &Service{
		users:      opts.Users,
		challenges: opts.Challenges,
		tokens:     opts.Tokens,
		hasher:     opts.Hasher,
		nicknames:  opts.Nicknames,
		captcha:    opts.Captcha,
		events:     opts.Events,
		logger:     opts.Logger,
		metrics:    opts.Metrics,
		attempts:   attempts,
	}, nil
}

// Login authenticates a username/password pair guarded by a captcha and
// returns the account's public view carrying a fresh session token.
// Steps run strictly in order and stop at the first failure.
func (s *Service) Login(ctx context.Context, req *model.LoginRequest, challengeKey string) (view *model.UserView, err error) {
	ctx, end := observability.StartSpan(ctx, "auth", "login")
	defer func() {
		end(err)
		s.record("login", err)
		if err != nil && req != nil {
			s.publish(eventbus.EventLoginFailed, eventbus.AuthEventData{
				Username: req.Username,
				Code:     platformerrors.CodeOf(err),
			})
		}
	}()

	if err := ValidateLogin(req, challengeKey); err != nil {
		return nil, err
	}

	if err := s.challenges.Verify(ctx, challengeKey, req.Captcha); err != nil {
		s.metrics.ChallengeResult(challengeOutcome(err))
		return nil, err
	}
	s.metrics.ChallengeResult("ok")

	// username mode resolves by username alone; a phone in the body is ignored
	user, err := s.users.FindByUsernameOrPhone(ctx, req.Username, "")
	if err != nil {
		s.logError("查询用户失败: %v", err)
		return nil, err
	}
	if user == nil {
		return nil, model.ErrUserNotFound.WithOp("auth.login")
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return nil, model.ErrPasswordIncorrect.WithOp("auth.login")
	}

	token, err := s.tokens.IssueSession(user.ID)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlatform, "auth.login", "failed to issue session token", err)
	}

	view = user.View()
	view.Token = token
	s.logInfo("用户 %d 登录成功", user.ID)
	s.publish(eventbus.EventLoginSucceeded, eventbus.AuthEventData{UserID: user.ID, Username: user.Username})
	return view, nil
}

// Register creates a username account with a hashed password and a unique
// generated nickname. The returned view carries no token.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (view *model.UserView, err error) {
	ctx, end := observability.StartSpan(ctx, "auth", "register")
	defer func() {
		end(err)
		s.record("register", err)
	}()

	if err := ValidateRegister(req); err != nil {
		return nil, err
	}

	exists, err := s.users.ExistsByUsernameOrPhone(ctx, req.Username, "")
	if err != nil {
		s.logError("检查账号唯一性失败: %v", err)
		return nil, err
	}
	if exists {
		return nil, model.ErrAccountAlreadyExists.WithOp("auth.register")
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlatform, "auth.register", "failed to hash password", err)
	}

	user := &model.User{
		Username:      req.Username,
		Email:         req.Email,
		PasswordHash:  hashed,
		AccountStatus: model.AccountActive,
	}
	if err := s.persistWithUniqueNickname(ctx, user); err != nil {
		if !platformerrors.IsKind(err, platformerrors.KindConflict) {
			s.logError("保存新用户失败: %v", err)
		}
		return nil, err
	}

	s.logInfo("新用户注册成功: id=%d nickname=%s", user.ID, user.Nickname)
	s.publish(eventbus.EventUserRegistered, eventbus.AuthEventData{
		UserID:   user.ID,
		Username: user.Username,
		Nickname: user.Nickname,
	})
	return user.View(), nil
}

// persistWithUniqueNickname generates nicknames until one is free and the
// insert succeeds. Only nickname collisions are retried.
func (s *Service) persistWithUniqueNickname(ctx context.Context, user *model.User) error {
	backoff := retry.WithMaxRetries(uint64(s.attempts-1), retry.NewConstant(time.Millisecond))
	first := true

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if !first {
			s.metrics.NicknameRetry()
		}
		first = false

		user.Nickname = s.nicknames.Next()
		taken, err := s.users.NicknameExists(ctx, user.Nickname)
		if err != nil {
			return err
		}
		if taken {
			return retry.RetryableError(errNicknameTaken)
		}

		err = s.users.Create(ctx, user)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, model.ErrDuplicateNickname):
			return retry.RetryableError(errNicknameTaken)
		case errors.Is(err, model.ErrDuplicateAccount):
			return model.ErrAccountAlreadyExists.WithOp("auth.register")
		default:
			return err
		}
	})
	if errors.Is(err, errNicknameTaken) {
		return platformerrors.Wrap(platformerrors.KindStorage, "auth.register", "could not allocate a unique nickname", err)
	}
	return err
}

// IssueChallenge renders a new captcha and stores its text under a fresh
// challenge key that the client must echo back on login.
func (s *Service) IssueChallenge(ctx context.Context) (ch *model.Challenge, err error) {
	ctx, end := observability.StartSpan(ctx, "auth", "captcha")
	defer func() {
		end(err)
		s.record("captcha", err)
	}()

	if s.captcha == nil {
		return nil, platformerrors.New(platformerrors.KindPlatform, "auth.captcha", "captcha renderer not configured")
	}

	key, err := s.tokens.IssueChallengeKey()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlatform, "auth.captcha", "failed to issue challenge key", err)
	}
	text, image, err := s.captcha.Generate()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindPlatform, "auth.captcha", "failed to render captcha", err)
	}
	ttl := s.tokens.ChallengeTTL()
	if err := s.challenges.Issue(ctx, key, text, ttl); err != nil {
		s.logError("保存验证码失败: %v", err)
		return nil, err
	}

	s.publish(eventbus.EventChallengeIssued, eventbus.AuthEventData{})
	return &model.Challenge{Key: key, Text: text, Image: image, ExpiresIn: ttl}, nil
}

func challengeOutcome(err error) string {
	switch {
	case errors.Is(err, model.ErrChallengeExpired):
		return "expired"
	case errors.Is(err, model.ErrChallengeMismatch):
		return "mismatch"
	default:
		return "error"
	}
}

func (s *Service) record(operation string, err error) {
	if err == nil {
		s.metrics.AuthOperation(operation, observability.OutcomeSuccess, "")
		return
	}
	code := platformerrors.CodeOf(err)
	if code == "" {
		code = string(platformerrors.KindOf(err))
	}
	s.metrics.AuthOperation(operation, observability.OutcomeFailure, code)
}

func (s *Service) publish(topic string, data eventbus.AuthEventData) {
	if s.events != nil {
		s.events.PublishAsync(topic, data)
	}
}

func (s *Service) logInfo(format string, args ...any) {
	if s.logger != nil {
		s.logger.Info("[认证] "+format, args...)
	}
}

func (s *Service) logError(format string, args ...any) {
	if s.logger != nil {
		s.logger.Error("[认证] "+format, args...)
	}
}
