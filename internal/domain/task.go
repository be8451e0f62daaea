package domain

import "time"

// TaskStatus — статус фоновой задачи.
type TaskStatus string

const (
	TaskPending TaskStatus = "pending"
	TaskStarted TaskStatus = "started"
	TaskSuccess TaskStatus = "success"
	TaskFailure TaskStatus = "failure"
)

// Terminal сообщает, достигла ли задача конечного состояния.
func (s TaskStatus) Terminal() bool {
	return s == TaskSuccess || s == TaskFailure
}

// TaskResult — результат пайплайна генерации.
// Ошибки пайплайна не поднимаются наверх, а упаковываются сюда.
type TaskResult struct {
	Success    bool   `json:"success"`
	PlaylistID int64  `json:"playlist_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Task — фоновая задача генерации плейлиста.
// Терминальный статус записывается один раз, после чего задача неизменяема.
type Task struct {
	ID        string
	Status    TaskStatus
	Stage     string // текущий шаг пайплайна, для диагностики
	Result    *TaskResult
	CreatedAt time.Time
	UpdatedAt time.Time
}

func NewTask(id string) *Task {
	now := time.Now().UTC()
	return &Task{
		ID:        id,
		Status:    TaskPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
