package usecase

import "context"

type PlaylistUC interface {
	EnqueueFromUpload(ctx context.Context, req *GenerateFromUploadReq) (string, error)
	EnqueueFromTrack(ctx context.Context, req *GenerateFromTrackReq) (string, error)
	GetTask(ctx context.Context, taskID string) (*TaskStatusRes, error)
}

type RecommendUC interface {
	SimilarUsers(ctx context.Context, req *SimilarUsersReq) (*SimilarUsersRes, error)
}

type IndexUC interface {
	LoadTrackIndex(ctx context.Context) error
	RebuildUserIndex(ctx context.Context) (*RebuildIndexRes, error)
}
