package infrastructure

import (
	"context"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"blog-server-go/internal/domain/eventbus/repository"
	"blog-server-go/internal/platform/errors"
	"blog-server-go/internal/platform/storage"
)

// eventRepository 事件存储库实现
type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository 创建事件存储库
func NewEventRepository(db *gorm.DB) repository.EventRepository {
	return &eventRepository{
		db: db,
	}
}

func (r *eventRepository) Store(ctx context.Context, event repository.Event) error {
	dataBytes, err := sonic.Marshal(event.Data)
	if err != nil {
		return errors.Wrap(errors.KindStorage, "event.store.marshal", "failed to marshal event data", err)
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	authEvent := &storage.AuthEvent{
		EventType: event.EventType,
		UserID:    event.UserID,
		Username:  event.Username,
		Data:      datatypes.JSON(dataBytes),
		CreatedAt: event.CreatedAt,
	}

	if err := r.db.WithContext(ctx).Create(authEvent).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "event.store.create", "failed to store event", err)
	}
	return nil
}

func (r *eventRepository) FindByEventType(ctx context.Context, eventType string, limit int) ([]repository.Event, error) {
	var rows []storage.AuthEvent
	query := r.db.WithContext(ctx).
		Where("event_type = ?", eventType).
		Order("created_at DESC").
		Order("id DESC")

	if limit > 0 {
		query = query.Limit(limit)
	}

	if err := query.Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.type", "failed to find events by type", err)
	}
	return r.convert(rows)
}

func (r *eventRepository) FindByUserID(ctx context.Context, userID string) ([]repository.Event, error) {
	var rows []storage.AuthEvent
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.find.user", "failed to find events by user ID", err)
	}
	return r.convert(rows)
}

func (r *eventRepository) DeleteOldEvents(ctx context.Context, beforeTime time.Time) error {
	if err := r.db.WithContext(ctx).
		Where("created_at < ?", beforeTime).
		Delete(&storage.AuthEvent{}).Error; err != nil {
		return errors.Wrap(errors.KindStorage, "event.delete.old", "failed to delete old events", err)
	}
	return nil
}

func (r *eventRepository) GetEventStats(ctx context.Context) (map[string]int64, error) {
	var stats []struct {
		EventType string
		Count     int64
	}

	if err := r.db.WithContext(ctx).
		Model(&storage.AuthEvent{}).
		Select("event_type, count(*) as count").
		Group("event_type").
		Scan(&stats).Error; err != nil {
		return nil, errors.Wrap(errors.KindStorage, "event.stats", "failed to get event stats", err)
	}

	result := make(map[string]int64, len(stats))
	for _, stat := range stats {
		result[stat.EventType] = stat.Count
	}
	return result, nil
}

// convert 将数据库事件转换为领域事件，Data 解码为 map
func (r *eventRepository) convert(rows []storage.AuthEvent) ([]repository.Event, error) {
	events := make([]repository.Event, len(rows))
	for i, row := range rows {
		var data map[string]interface{}
		if len(row.Data) > 0 {
			if err := sonic.Unmarshal(row.Data, &data); err != nil {
				return nil, errors.Wrap(errors.KindStorage, "event.convert.unmarshal", "failed to unmarshal event data", err)
			}
		}
		events[i] = repository.Event{
			ID:        strconv.FormatUint(uint64(row.ID), 10),
			EventType: row.EventType,
			UserID:    row.UserID,
			Username:  row.Username,
			Data:      data,
			CreatedAt: row.CreatedAt,
		}
	}
	return events, nil
}
