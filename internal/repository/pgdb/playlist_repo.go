package pgdb

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/jayyoonakajaeha/MUSEED/internal/domain"
	"github.com/jayyoonakajaeha/MUSEED/internal/repository/pgdb/converter"
	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
	"github.com/jayyoonakajaeha/MUSEED/pkg/tr"
)

// PlaylistRepo реализует репозиторий плейлистов поверх PostgreSQL.
type PlaylistRepo struct {
	pool *pgxpool.Pool
	conv converter.PlaylistConverter
}

func NewPlaylistRepo(pool *pgxpool.Pool, conv converter.PlaylistConverter) *PlaylistRepo {
	return &PlaylistRepo{
		pool: pool,
		conv: conv,
	}
}

// Create сохраняет плейлист вместе с упорядоченным списком треков.
// Выполняется только внутри внешней транзакции: заголовок и треки
// либо записываются целиком, либо не записываются вовсе.
func (p *PlaylistRepo) Create(ctx context.Context, playlist *domain.Playlist) (*domain.Playlist, error) {
	tx, err := tr.TxFromCtx(ctx)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	query := `
		INSERT INTO playlists (name, owner_id)
		VALUES ($1, $2)
		RETURNING id, name, owner_id, created_at;
	`

	var model converter.PlaylistModel
	if err := tx.QueryRow(ctx, query, playlist.Name, playlist.OwnerID).
		Scan(&model.ID, &model.Name, &model.OwnerID, &model.CreatedAt); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	trackQuery := `
		INSERT INTO playlist_tracks (playlist_id, track_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (playlist_id, track_id) DO NOTHING;
	`

	// дубликат во входном списке молча схлопывается за счёт ON CONFLICT
	for position, trackID := range playlist.TrackIDs {
		if _, err := tx.Exec(ctx, trackQuery, model.ID, trackID, position); err != nil {
			return nil, fmt.Errorf("%s: failed to insert track %d: %w", whereami.WhereAmI(), trackID, err)
		}
	}

	return p.conv.ToEntity(&model, playlist.TrackIDs), nil
}
