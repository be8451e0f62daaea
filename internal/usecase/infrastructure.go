package usecase

import "context"

type EmbedderInfra interface {
	EmbedAudio(ctx context.Context, audio *UploadedAudio) ([]float32, error)
}

type UploadsInfra interface {
	StoreScratch(ctx context.Context, req *StoreScratchReq) (string, error)
	FetchScratch(ctx context.Context, key string) ([]byte, error)
	CleanupScratch(keys []string)
}

type SchedulerInfra interface {
	Submit(ctx context.Context, job *Job) (string, error)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}
