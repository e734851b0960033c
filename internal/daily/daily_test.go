package daily

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loongtiles/go-server/assets"
)

func TestSeedIsStablePerDate(t *testing.T) {
	d1 := time.Date(2026, 10, 18, 1, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 10, 18, 23, 59, 0, 0, time.UTC)

	a1, a2 := Seed(d1, "salt")
	b1, b2 := Seed(d2, "salt")
	assert.Equal(t, a1, b1)
	assert.Equal(t, a2, b2)

	c1, _ := Seed(d1.AddDate(0, 0, 1), "salt")
	assert.NotEqual(t, a1, c1)
	s1, _ := Seed(d1, "pepper")
	assert.NotEqual(t, a1, s1)
}

func TestDateKey(t *testing.T) {
	loc := time.FixedZone("UTC+10", 10*3600)
	assert.Equal(t, "2026-10-17", DateKey(time.Date(2026, 10, 18, 5, 0, 0, 0, loc)))

	d, err := ParseDateKey("2026-10-18")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18", DateKey(d))
	_, err = ParseDateKey("18/10/2026")
	assert.Error(t, err)
}

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	migs, err := assets.Migrations()
	require.NoError(t, err)
	for _, m := range migs {
		_, err := db.Exec(m.SQL)
		require.NoError(t, err, m.Name)
	}
	return db
}

func TestStoreLeaderboard(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s := NewStore(db)
	_, err := db.Exec(`INSERT INTO users (id, username, password_hash, created_at) VALUES ('u1','jade','x','2026-10-18T00:00:00Z')`)
	require.NoError(t, err)

	date := "2026-10-18"
	played, err := s.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.False(t, played)

	results := []Result{
		{UserID: "u1", Date: date, GameID: "g1", Won: true, Wins: 2, TilesTaken: 40, ElapsedMs: 9000},
		{UserID: "anon", Date: date, GameID: "g2", Won: false, Wins: 4, TilesTaken: 10, ElapsedMs: 100},
		{UserID: "u3", Date: date, GameID: "g3", Won: true, Wins: 2, TilesTaken: 31, ElapsedMs: 12000},
		{UserID: "u4", Date: "2026-10-17", GameID: "g4", Won: true, Wins: 9},
	}
	for _, r := range results {
		require.NoError(t, s.InsertResult(ctx, r))
	}
	// second result for the same day is ignored
	require.NoError(t, s.InsertResult(ctx, Result{UserID: "u1", Date: date, GameID: "g5", Won: true, Wins: 9}))

	played, err = s.AlreadyPlayed(ctx, "u1", date)
	require.NoError(t, err)
	assert.True(t, played)

	top, err := s.Leaderboard(ctx, date, 20)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "u3", top[0].UserID)
	assert.Equal(t, "u1", top[1].UserID)
	assert.Equal(t, "jade", top[1].Username)
	assert.Equal(t, 2, top[1].Wins)
	assert.Equal(t, "anon", top[2].UserID)
	assert.Empty(t, top[2].Username)

	top, err = s.Leaderboard(ctx, date, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}
