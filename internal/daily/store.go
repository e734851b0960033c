package daily

import (
	"context"
	"database/sql"
)

// Result is one player's finished daily run.
type Result struct {
	UserID     string `json:"userId"`
	Date       string `json:"date"`
	GameID     string `json:"gameId"`
	Won        bool   `json:"won"`
	Wins       int    `json:"wins"`
	TilesTaken int    `json:"tilesTaken"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

type Store struct{ db *sql.DB }

func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) AlreadyPlayed(ctx context.Context, userID, date string) (bool, error) {
	var cnt int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM daily_results WHERE user_id=? AND date=?",
		userID, date,
	).Scan(&cnt)
	return cnt > 0, err
}

// InsertResult records r. A second result for the same user and date is
// ignored.
func (s *Store) InsertResult(ctx context.Context, r Result) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO daily_results(user_id, date, game_id, won, wins, tiles_taken, elapsed_ms)
		 VALUES(?,?,?,?,?,?,?)`,
		r.UserID, r.Date, r.GameID, r.Won, r.Wins, r.TilesTaken, r.ElapsedMs,
	)
	return err
}

type LBRow struct {
	UserID     string `json:"userId"`
	Username   string `json:"username,omitempty"`
	Won        bool   `json:"won"`
	Wins       int    `json:"wins"`
	TilesTaken int    `json:"tilesTaken"`
	ElapsedMs  int64  `json:"elapsedMs"`
}

// Leaderboard ranks a date's results: winners first, then more mahjongs,
// then fewer tiles taken, then faster.
func (s *Store) Leaderboard(ctx context.Context, date string, limit int) ([]LBRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.user_id, COALESCE(u.username, ''), r.won, r.wins, r.tiles_taken, r.elapsed_ms
		   FROM daily_results r
		   LEFT JOIN users u ON u.id = r.user_id
		  WHERE r.date=?
		  ORDER BY r.won DESC, r.wins DESC, r.tiles_taken ASC, r.elapsed_ms ASC, r.created_at ASC
		  LIMIT ?`, date, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LBRow
	for rows.Next() {
		var r LBRow
		if err := rows.Scan(&r.UserID, &r.Username, &r.Won, &r.Wins, &r.TilesTaken, &r.ElapsedMs); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
