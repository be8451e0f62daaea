package converter

import (
	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/usecase"
)

// PlaylistConverter преобразует сущности Playlist между domain и моделью PostgreSQL.
type PlaylistConverter struct{}

func (PlaylistConverter) ToModel(entity *domain.Playlist) *PlaylistModel {
	return &PlaylistModel{
		ID:        entity.ID,
		Name:      entity.Name,
		OwnerID:   entity.OwnerID,
		CreatedAt: entity.CreatedAt,
	}
}

func (PlaylistConverter) ToEntity(model *PlaylistModel, trackIDs []int64) *domain.Playlist {
	return &domain.Playlist{
		ID:        model.ID,
		Name:      model.Name,
		OwnerID:   model.OwnerID,
		TrackIDs:  trackIDs,
		CreatedAt: model.CreatedAt,
	}
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter struct{}

func (OutboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	return &OutboxEventModel{
		ID:          entity.ID,
		EventID:     entity.EventID,
		EventType:   string(entity.EventType),
		PlaylistID:  entity.PlaylistID,
		Payload:     entity.Payload,
		Status:      string(entity.Status),
		CreatedAt:   entity.CreatedAt,
		ProcessedAt: entity.ProcessedAt,
	}
}

func (OutboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	return &usecase.OutboxEvent{
		ID:          model.ID,
		EventID:     model.EventID,
		EventType:   usecase.OutboxEventType(model.EventType),
		PlaylistID:  model.PlaylistID,
		Payload:     model.Payload,
		Status:      usecase.OutboxStatus(model.Status),
		CreatedAt:   model.CreatedAt,
		ProcessedAt: model.ProcessedAt,
	}
}

func (c OutboxEventConverter) ToArrEntity(models []*OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for _, model := range models {
		result = append(result, c.ToEntity(model))
	}

	return result
}
