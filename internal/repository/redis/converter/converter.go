package converter

import "github.com/jayyoonakajaeha/MUSEED/internal/domain"

// TaskConverter преобразует сущности Task между domain и моделью Redis.
type TaskConverter struct{}

func (TaskConverter) ToRedisModel(entity *domain.Task) *TaskRedisModel {
	model := &TaskRedisModel{
		ID:        entity.ID,
		Status:    string(entity.Status),
		Stage:     entity.Stage,
		CreatedAt: entity.CreatedAt,
		UpdatedAt: entity.UpdatedAt,
	}

	if entity.Result != nil {
		model.Result = &TaskResultRedisModel{
			Success:    entity.Result.Success,
			PlaylistID: entity.Result.PlaylistID,
			Error:      entity.Result.Error,
		}
	}

	return model
}

func (TaskConverter) ToEntity(model *TaskRedisModel) *domain.Task {
	task := &domain.Task{
		ID:        model.ID,
		Status:    domain.TaskStatus(model.Status),
		Stage:     model.Stage,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}

	if model.Result != nil {
		task.Result = &domain.TaskResult{
			Success:    model.Result.Success,
			PlaylistID: model.Result.PlaylistID,
			Error:      model.Result.Error,
		}
	}

	return task
}
