package domain

import "time"

// Playlist — сгенерированный плейлист.
// OwnerID может отсутствовать (анонимный seed). Ядро создаёт плейлист один раз
// и дальше его не изменяет.
type Playlist struct {
	ID        int64
	Name      string
	OwnerID   *int64
	TrackIDs  []int64 // упорядоченный список, позиция 0 — seed при генерации по треку
	CreatedAt time.Time
}

func NewPlaylist(name string, ownerID *int64, trackIDs []int64) *Playlist {
	return &Playlist{
		Name:     name,
		OwnerID:  ownerID,
		TrackIDs: trackIDs,
	}
}
