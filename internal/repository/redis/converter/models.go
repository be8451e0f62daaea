package converter

import "time"

// TaskResultRedisModel — результат задачи в том виде, в котором он хранится в Redis.
type TaskResultRedisModel struct {
	Success    bool   `json:"success"`
	PlaylistID int64  `json:"playlist_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// TaskRedisModel — запись задачи в Redis.
type TaskRedisModel struct {
	ID        string                `json:"id"`
	Status    string                `json:"status"`
	Stage     string                `json:"stage,omitempty"`
	Result    *TaskResultRedisModel `json:"result,omitempty"`
	CreatedAt time.Time             `json:"created_at"`
	UpdatedAt time.Time             `json:"updated_at"`
}
