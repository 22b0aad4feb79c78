package eventbus

import (
	"context"
	"strconv"
	"time"

	"blog-server-go/internal/domain/eventbus/repository"
)

// AuditLogger is the logging contract of the audit recorder.
type AuditLogger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

// AuditRecorder persists auth events to the event repository.
type AuditRecorder struct {
	repo    repository.EventRepository
	logger  AuditLogger
	timeout time.Duration
	now     func() time.Time
}

// NewAuditRecorder 创建审计记录器
func NewAuditRecorder(repo repository.EventRepository, logger AuditLogger) *AuditRecorder {
	return &AuditRecorder{
		repo:    repo,
		logger:  logger,
		timeout: 5 * time.Second,
		now:     time.Now,
	}
}

// Handle stores a single event.
func (r *AuditRecorder) Handle(eventType string, data AuthEventData) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	event := repository.Event{
		EventType: eventType,
		Username:  data.Username,
		Data:      data,
		CreatedAt: r.now(),
	}
	if data.UserID != 0 {
		event.UserID = strconv.FormatInt(data.UserID, 10)
	}
	if err := r.repo.Store(ctx, event); err != nil {
		if r.logger != nil {
			r.logger.Error("[事件] 保存审计事件 %s 失败: %v", eventType, err)
		}
		return
	}
	if r.logger != nil {
		r.logger.Debug("[事件] %s user=%s", eventType, event.UserID)
	}
}

// SetupAuditRecorder 为所有认证事件注册审计记录器
func SetupAuditRecorder(bus *AsyncEventBus, recorder *AuditRecorder) error {
	for _, topic := range AuthTopics {
		if err := bus.Subscribe(topic, func(data AuthEventData) {
			recorder.Handle(topic, data)
		}); err != nil {
			return err
		}
	}
	return nil
}
