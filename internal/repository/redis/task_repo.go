package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimlawless/whereami"
	goredis "github.com/redis/go-redis/v9"

	"github.com/jayyoonakajaeha/MUSEED/internal/cfg"
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/repository/redis/converter"
	"github.com/jayyoonakajaeha/MUSEED/pkg/clients"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/logger"
)

// TaskRepo хранит состояние фоновых задач в Redis с ограниченным TTL,
// играя роль result backend для планировщика.
type TaskRepo struct {
	client *clients.RedisClient
	conv   converter.TaskConverter
	cfg    *cfg.RedisCfg
	logger logger.Logger
}

func NewTaskRepo(client *clients.RedisClient, conv converter.TaskConverter,
	cfg *cfg.RedisCfg, logger logger.Logger) *TaskRepo {
	return &TaskRepo{
		client: client,
		conv:   conv,
		cfg:    cfg,
		logger: logger,
	}
}

// Create записывает новую задачу. Существующая запись перезаписывается:
// генератор ID гарантирует уникальность.
func (r *TaskRepo) Create(ctx context.Context, task *domain.Task) error {
	return r.set(ctx, task)
}

// Update перезаписывает состояние задачи, продлевая TTL.
func (r *TaskRepo) Update(ctx context.Context, task *domain.Task) error {
	return r.set(ctx, task)
}

// Get возвращает задачу по ID. Истёкший TTL неотличим от несуществующей задачи.
func (r *TaskRepo) Get(ctx context.Context, taskID string) (*domain.Task, error) {
	data, err := r.client.Client.Get(ctx, r.taskKey(taskID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, e.ErrTaskNotFound
		}

		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	var model converter.TaskRedisModel
	if err := json.Unmarshal(data, &model); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return r.conv.ToEntity(&model), nil
}

// Delete удаляет запись о задаче. Отсутствующий ключ — не ошибка.
func (r *TaskRepo) Delete(ctx context.Context, taskID string) error {
	if err := r.client.Client.Del(ctx, r.taskKey(taskID)).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

func (r *TaskRepo) set(ctx context.Context, task *domain.Task) error {
	data, err := json.Marshal(r.conv.ToRedisModel(task))
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	if err := r.client.Client.Set(ctx, r.taskKey(task.ID), data, r.cfg.TaskTTL).Err(); err != nil {
		return e.Wrap(whereami.WhereAmI(), err)
	}

	return nil
}

// taskKey возвращает Redis-ключ для одной задачи
func (r *TaskRepo) taskKey(taskID string) string {
	return fmt.Sprintf("task:%s", taskID)
}
