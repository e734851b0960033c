package httpserver

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loongtiles/go-server/assets"
	"github.com/loongtiles/go-server/internal/config"
	"github.com/loongtiles/go-server/internal/store"
)

// client replays cookies across requests like a browser.
type client struct {
	t       *testing.T
	s       *Server
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newTestServer(t *testing.T) (*client, *sql.DB) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

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

	s := New(cfg, store.NewMemoryStore(), db)
	return &client{t: t, s: s, h: s.Router(), cookies: map[string]*http.Cookie{}}, db
}

func (c *client) do(method, path string, body any) (int, map[string]any) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)

	for _, ck := range rec.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}

	var out map[string]any
	if rec.Body.Len() > 0 && rec.Body.Bytes()[0] == '{' {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func (c *client) list(path string) (int, []any) {
	c.t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	var out []any
	if rec.Code == http.StatusOK {
		require.NoError(c.t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHealthAndNotFound(t *testing.T) {
	c, _ := newTestServer(t)
	code, body := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["ok"])

	code, body = c.do(http.MethodGet, "/nope", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", body["error"])
}

func TestGameLifecycle(t *testing.T) {
	c, db := newTestServer(t)

	code, g := c.do(http.MethodPost, "/game/new", map[string]any{"difficulty": "nascent_soul", "seed": []uint64{1, 2}})
	require.Equal(t, http.StatusOK, code)
	id := g["gameId"].(string)
	assert.Len(t, g["hand"], 7)
	assert.Equal(t, "playing", g["status"])
	assert.NotNil(t, c.cookies[anonCookieName], "guests get an anon cookie")

	code, g = c.do(http.MethodGet, "/game/"+id, nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, id, g["gameId"])

	code, res := c.do(http.MethodPost, "/game/"+id+"/cursor", map[string]any{"delta": 2})
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 2, res["cursor"])

	code, res = c.do(http.MethodPost, "/game/"+id+"/eat", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, res["game"].(map[string]any)["tilesTaken"])
	assert.NotEmpty(t, res["outcome"].(map[string]any)["event"])

	code, res = c.do(http.MethodPost, "/game/"+id+"/ability", map[string]any{"ability": "future_sight"})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, res["result"].(map[string]any)["queued"], 3)

	code, res = c.do(http.MethodPost, "/game/"+id+"/ability", map[string]any{"ability": "future_sight"})
	assert.Equal(t, http.StatusUnprocessableEntity, code, "queue still full")
	assert.Equal(t, "ability_no_effect", res["error"])
	_, g = c.do(http.MethodGet, "/game/"+id, nil)
	abilities := g["abilities"].([]any)
	require.Len(t, abilities, 7)
	first := abilities[0].(map[string]any)
	assert.Equal(t, "future_sight", first["ability"])
	assert.Equal(t, true, first["isPreviewPower"])
	assert.Equal(t, false, first["ready"])

	code, res = c.do(http.MethodPost, "/game/"+id+"/ability", map[string]any{"ability": "tornado"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown_ability", res["error"])

	code, res = c.do(http.MethodGet, "/game/"+id+"/discards", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, res, "history")

	code, left := c.list("/game/" + id + "/remaining")
	require.Equal(t, http.StatusOK, code)
	assert.NotEmpty(t, left)

	code, _ = c.do(http.MethodPost, "/game/"+id+"/reshuffle", nil)
	assert.Equal(t, http.StatusOK, code)

	code, g = c.do(http.MethodPost, "/game/"+id+"/end", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "lost", g["status"])

	code, res = c.do(http.MethodPost, "/game/"+id+"/eat", nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "game_finished", res["error"])

	var status string
	var taken int
	require.NoError(t, db.QueryRow(`SELECT status, tiles_taken FROM games WHERE id=?`, id).Scan(&status, &taken))
	assert.Equal(t, "lost", status)
	assert.Equal(t, 1, taken)
}

func TestGameErrors(t *testing.T) {
	c, _ := newTestServer(t)

	code, res := c.do(http.MethodPost, "/game/new", map[string]any{"difficulty": "celestial"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "unknown_difficulty", res["error"])

	code, res = c.do(http.MethodPost, "/game/missing/eat", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", res["error"])

	_, g := c.do(http.MethodPost, "/game/new", nil)
	assert.Equal(t, "foundation", g["difficulty"])
	code, _ = c.do(http.MethodPost, "/game/"+g["gameId"].(string)+"/cursor", "nope")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuthClaimsGuestGamesAndCountsStats(t *testing.T) {
	c, _ := newTestServer(t)

	_, g := c.do(http.MethodPost, "/game/new", nil)
	id := g["gameId"].(string)

	code, _ := c.do(http.MethodGet, "/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, res := c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "jade_emperor", "password": "celestial1"})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jade_emperor", res["username"])

	code, _ = c.do(http.MethodPost, "/auth/signup", map[string]string{"username": "Jade_Emperor", "password": "celestial1"})
	assert.Equal(t, http.StatusConflict, code)

	code, me := c.do(http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "jade_emperor", me["username"])

	code, _ = c.do(http.MethodPost, "/game/"+id+"/end", nil)
	require.Equal(t, http.StatusOK, code)

	code, stats := c.do(http.MethodGet, "/stats/me", nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 0, stats["wins"])

	code, mine := c.list("/games/mine")
	require.Equal(t, http.StatusOK, code)
	require.Len(t, mine, 1)
	assert.Equal(t, id, mine[0].(map[string]any)["id"])

	c.do(http.MethodPost, "/auth/logout", nil)
	code, _ = c.do(http.MethodGet, "/stats/me", nil)
	assert.Equal(t, http.StatusUnauthorized, code)

	code, _ = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "jade_emperor", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, code)
	code, _ = c.do(http.MethodPost, "/auth/login", map[string]string{"username": "jade_emperor", "password": "celestial1"})
	assert.Equal(t, http.StatusOK, code)
}

func TestDailyRunOncePerDay(t *testing.T) {
	c, _ := newTestServer(t)

	code, first := c.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, http.StatusOK, code)
	id := first["gameId"].(string)
	assert.Equal(t, false, first["played"])
	assert.Equal(t, "nascent_soul", first["game"].(map[string]any)["difficulty"])

	_, again := c.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, id, again["gameId"], "unfinished run resumes")

	// another player is dealt the same hand
	other, _ := newTestServer(t)
	_, theirs := other.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, first["game"].(map[string]any)["hand"], theirs["game"].(map[string]any)["hand"])

	code, _ = c.do(http.MethodPost, "/game/"+id+"/end", nil)
	require.Equal(t, http.StatusOK, code)

	_, done := c.do(http.MethodPost, "/daily/new", nil)
	assert.Equal(t, true, done["played"])

	code, lb := c.do(http.MethodGet, "/daily/leaderboard", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, lb["top"], 1)

	code, _ = c.do(http.MethodGet, "/daily/leaderboard?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestUnknownGameIdsLeaveNoLocks(t *testing.T) {
	c, _ := newTestServer(t)
	for i := 0; i < 100; i++ {
		id := uuid.NewString()
		code, _ := c.do(http.MethodGet, "/game/"+id, nil)
		require.Equal(t, http.StatusNotFound, code)
		code, _ = c.do(http.MethodPost, "/game/"+id+"/eat", nil)
		require.Equal(t, http.StatusNotFound, code)
	}
	assert.Equal(t, 0, c.s.locks.len())

	_, g := c.do(http.MethodPost, "/game/new", nil)
	code, _ := c.do(http.MethodPost, "/game/"+g["gameId"].(string)+"/eat", nil)
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, 0, c.s.locks.len(), "released after use")
}

func TestGameLocksSerialise(t *testing.T) {
	l := newGameLocks()
	unlock := l.lock("g1")
	done := make(chan struct{})
	go func() {
		defer close(done)
		l.lock("g1")()
	}()
	select {
	case <-done:
		t.Fatal("second holder got the lock early")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
	assert.Equal(t, 0, l.len())
}

func TestDailySessionsPrunedAcrossDays(t *testing.T) {
	c, _ := newTestServer(t)
	day := time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC)
	c.s.now = func() time.Time { return day }

	_, first := c.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, "2026-10-17", first["date"])
	assert.Equal(t, 1, c.s.dailyRuns.len())

	day = day.AddDate(0, 0, 1)
	_, next := c.do(http.MethodPost, "/daily/new", nil)
	require.Equal(t, "2026-10-18", next["date"])
	assert.NotEqual(t, first["gameId"], next["gameId"])
	assert.Equal(t, 1, c.s.dailyRuns.len(), "yesterday's session dropped")
}
