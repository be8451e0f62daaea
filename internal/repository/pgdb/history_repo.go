package pgdb

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jimlawless/whereami"

	"github.com/jayyoonakajaeha/MUSEED/pkg/e"
)

// HistoryRepo реализует репозиторий историй прослушиваний поверх PostgreSQL.
type HistoryRepo struct {
	pool *pgxpool.Pool
}

func NewHistoryRepo(pool *pgxpool.Pool) *HistoryRepo {
	return &HistoryRepo{pool: pool}
}

// GetForUser возвращает уникальные треки из истории пользователя,
// упорядоченные по последнему прослушиванию.
func (h *HistoryRepo) GetForUser(ctx context.Context, userID int64) ([]int64, error) {
	query := `
		SELECT track_id
		FROM listening_history
		WHERE user_id = $1
		GROUP BY track_id
		ORDER BY MAX(played_at) DESC
	`

	rows, err := h.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make([]int64, 0)
	for rows.Next() {
		var trackID int64
		if err := rows.Scan(&trackID); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result = append(result, trackID)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}

// GetForUsers возвращает истории сразу для набора пользователей одним
// запросом. Пользователи без истории в результат не попадают.
func (h *HistoryRepo) GetForUsers(ctx context.Context, userIDs []int64) (map[int64][]int64, error) {
	if len(userIDs) == 0 {
		return map[int64][]int64{}, nil
	}

	query := `
		SELECT user_id, track_id
		FROM listening_history
		WHERE user_id = ANY($1)
		GROUP BY user_id, track_id
		ORDER BY user_id, MAX(played_at) DESC
	`

	rows, err := h.pool.Query(ctx, query, userIDs)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	defer rows.Close()

	result := make(map[int64][]int64, len(userIDs))
	for rows.Next() {
		var userID, trackID int64
		if err := rows.Scan(&userID, &trackID); err != nil {
			return nil, e.Wrap(whereami.WhereAmI(), err)
		}
		result[userID] = append(result[userID], trackID)
	}

	if err := rows.Err(); err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return result, nil
}
