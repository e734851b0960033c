// internal/httpserver/routes_game.go
//
// Session endpoints under /game. Each request locks its game, loads it from
// the store, applies one action and saves it back. Progress is mirrored into
// the games table best-effort; a finished run also bumps user stats and, for
// daily runs, records a daily result.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/loongtiles/go-server/internal/daily"
	"github.com/loongtiles/go-server/internal/game"
	"github.com/loongtiles/go-server/internal/pool"
	"github.com/loongtiles/go-server/internal/tiles"
)

func (s *Server) mountGame(r chi.Router) {
	r.Post("/game/new", s.handleNewGame)
	r.Route("/game/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetGame)
		r.Post("/eat", s.handleEat)
		r.Post("/cursor", s.handleCursor)
		r.Post("/reshuffle", s.handleReshuffle)
		r.Post("/ability", s.handleAbility)
		r.Post("/end", s.handleEnd)
		r.Get("/remaining", s.handleRemaining)
		r.Get("/discards", s.handleDiscards)
	})
}

// gameView is what clients see of a session.
type gameView struct {
	ID                 string               `json:"gameId"`
	Difficulty         game.Difficulty      `json:"difficulty"`
	Daily              string               `json:"daily,omitempty"`
	Status             game.Status          `json:"status"`
	Wins               int                  `json:"wins"`
	WinsRequired       int                  `json:"winsRequired"`
	TilesTaken         int                  `json:"tilesTaken"`
	Kongs              int                  `json:"kongs"`
	Ornament           int                  `json:"ornament"`
	HandSize           int                  `json:"handSize"`
	Hand               []tiles.Tile         `json:"hand"`
	Cursor             int                  `json:"cursor"`
	KeepSelected       bool                 `json:"keepSelected"`
	Next               tiles.Tile           `json:"next"`
	Future             []tiles.Tile         `json:"future,omitempty"`
	Suits              []tiles.Suit         `json:"suits"`
	Locked             []tiles.Identity     `json:"locked,omitempty"`
	ReshuffleAvailable bool                 `json:"reshuffleAvailable"`
	Abilities          []game.AbilityStatus `json:"abilities"`
	ElapsedMs          int64                `json:"elapsedMs"`
}

func viewOf(g *game.Game) gameView {
	e := g.Engine
	return gameView{
		ID:                 g.ID,
		Difficulty:         g.Difficulty,
		Daily:              g.Daily,
		Status:             g.Status,
		Wins:               g.Wins,
		WinsRequired:       g.WinsRequired,
		TilesTaken:         g.TilesTaken,
		Kongs:              g.Kongs,
		Ornament:           e.Ornament(),
		HandSize:           e.MaxSize(),
		Hand:               e.Hand(),
		Cursor:             e.Cursor(),
		KeepSelected:       e.KeepSelected(),
		Next:               g.Next,
		Future:             e.Future(),
		Suits:              e.Suits(),
		Locked:             e.Locked(),
		ReshuffleAvailable: e.ReshuffleAvailable(),
		Abilities:          e.Abilities(),
		ElapsedMs:          g.Elapsed().Milliseconds(),
	}
}

// owner identifies who a games row belongs to.
type owner struct {
	userID string
	anonID string
}

func (s *Server) ownerOf(w http.ResponseWriter, r *http.Request) owner {
	if me := userFrom(r.Context()); me != nil {
		return owner{userID: me.ID}
	}
	return owner{anonID: s.ensureAnonID(w, r)}
}

// id is the identity used for daily results.
func (o owner) id() string {
	if o.userID != "" {
		return o.userID
	}
	return o.anonID
}

func (o owner) clause() (string, any) {
	if o.userID != "" {
		return `user_id=?`, o.userID
	}
	return `anonymous_id=?`, o.anonID
}

// ------------------------------ create -------------------------------------

type newGameReq struct {
	Difficulty string     `json:"difficulty"`
	Seed       *[2]uint64 `json:"seed,omitempty"` // fixed seed (testing)
}

func (s *Server) gameOptions(extra ...game.Option) []game.Option {
	hat, dot, loong := s.cfg.Engine.Levels()
	opts := []game.Option{
		game.WithBias(s.cfg.Engine.Bias),
		game.WithLevels(hat, dot, loong),
		game.WithLogger(log.Logger),
	}
	return append(opts, extra...)
}

func (s *Server) handleNewGame(w http.ResponseWriter, r *http.Request) {
	var req newGameReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	p, err := game.LookupPreset(s.cfg.Presets(), req.Difficulty)
	if err != nil {
		writeGameError(w, err)
		return
	}
	var extra []game.Option
	if req.Seed != nil {
		extra = append(extra, game.WithSeed(req.Seed[0], req.Seed[1]))
	}
	g, err := game.New(p, s.gameOptions(extra...)...)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.insertGameRow(r.Context(), g, s.ownerOf(w, r))
	writeJSON(w, http.StatusOK, viewOf(g))
}

// insertGameRow records the owner of a new run for history and stats.
func (s *Server) insertGameRow(ctx context.Context, g *game.Game, o owner) {
	var userID, anonID, dailyKey any
	if o.userID != "" {
		userID = o.userID
	} else {
		anonID = o.anonID
	}
	if g.Daily != "" {
		dailyKey = g.Daily
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO games (id, user_id, anonymous_id, difficulty, daily, status, started_at)
		 VALUES (?,?,?,?,?,?,?)`,
		g.ID, userID, anonID, string(g.Difficulty), dailyKey, string(g.Status), g.StartedAt.UTC().Format(time.RFC3339))
	if err != nil {
		log.Warn().Err(err).Str("gameId", g.ID).Msg("insert game row")
	}
}

// ------------------------------ actions ------------------------------------

// gameLocks serialises requests per game. Entries are reference counted
// and removed when the last holder unlocks, so unknown or finished ids leave
// nothing behind.
type gameLocks struct {
	mu sync.Mutex
	m  map[string]*gameLock
}

type gameLock struct {
	mu   sync.Mutex
	refs int
}

func newGameLocks() *gameLocks { return &gameLocks{m: make(map[string]*gameLock)} }

// lock blocks until id is free and returns the unlock func.
func (l *gameLocks) lock(id string) func() {
	l.mu.Lock()
	gl, ok := l.m[id]
	if !ok {
		gl = &gameLock{}
		l.m[id] = gl
	}
	gl.refs++
	l.mu.Unlock()

	gl.mu.Lock()
	return func() {
		gl.mu.Unlock()
		l.mu.Lock()
		if gl.refs--; gl.refs == 0 {
			delete(l.m, id)
		}
		l.mu.Unlock()
	}
}

func (l *gameLocks) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}

// withGame runs fn on the locked game named by the URL and saves it after
// fn succeeds. fn writes its own response.
func (s *Server) withGame(w http.ResponseWriter, r *http.Request, mutate bool, fn func(g *game.Game) error) {
	id := chi.URLParam(r, "id")
	var o owner
	if mutate {
		o = s.ownerOf(w, r)
	}
	defer s.locks.lock(id)()

	g, err := s.store.Get(r.Context(), id)
	if err != nil {
		writeGameError(w, err)
		return
	}
	wasPlaying := !g.Finished()
	if err := fn(g); err != nil {
		writeGameError(w, err)
		return
	}
	if !mutate {
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Str("gameId", g.ID).Msg("save game")
	}
	s.persist(r.Context(), g, o, wasPlaying && g.Finished())
}

func (s *Server) handleGetGame(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, false, func(g *game.Game) error {
		writeJSON(w, http.StatusOK, viewOf(g))
		return nil
	})
}

type eatRes struct {
	Outcome game.Outcome `json:"outcome"`
	Game    gameView     `json:"game"`
}

// handleEat feeds the preview tile to the hand: the snake ate it.
func (s *Server) handleEat(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, true, func(g *game.Game) error {
		out, err := g.Eat()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, eatRes{Outcome: out, Game: viewOf(g)})
		return nil
	})
}

func (s *Server) handleCursor(w http.ResponseWriter, r *http.Request) {
	var m game.CursorMove
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	s.withGame(w, r, true, func(g *game.Game) error {
		c, err := g.MoveCursor(m)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]any{"cursor": c, "keepSelected": g.Engine.KeepSelected()})
		return nil
	})
}

func (s *Server) handleReshuffle(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, true, func(g *game.Game) error {
		ok, err := g.Reshuffle()
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, map[string]bool{"reshuffled": ok})
		return nil
	})
}

type abilityReq struct {
	Ability game.Ability `json:"ability"`
}

type abilityRes struct {
	Result game.AbilityResult `json:"result"`
	Game   gameView           `json:"game"`
}

func (s *Server) handleAbility(w http.ResponseWriter, r *http.Request) {
	var req abilityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeGameError(w, game.ErrUnknownAbility.WithCause(err))
		return
	}
	s.withGame(w, r, true, func(g *game.Game) error {
		res, err := g.UseAbility(req.Ability)
		if err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, abilityRes{Result: res, Game: viewOf(g)})
		return nil
	})
}

// handleEnd records the client's report that the snake died.
func (s *Server) handleEnd(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, true, func(g *game.Game) error {
		if err := g.End(); err != nil {
			return err
		}
		writeJSON(w, http.StatusOK, viewOf(g))
		return nil
	})
}

func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, false, func(g *game.Game) error {
		out := g.Engine.RemainingCounts()
		if out == nil {
			out = []pool.Remaining{}
		}
		writeJSON(w, http.StatusOK, out)
		return nil
	})
}

func (s *Server) handleDiscards(w http.ResponseWriter, r *http.Request) {
	s.withGame(w, r, false, func(g *game.Game) error {
		writeJSON(w, http.StatusOK, map[string]any{
			"history":            nonNil(g.Engine.DiscardHistory()),
			"sorted":             nonNil(g.Engine.Discards()),
			"reshuffleAvailable": g.Engine.ReshuffleAvailable(),
		})
		return nil
	})
}

func nonNil(ts []tiles.Tile) []tiles.Tile {
	if ts == nil {
		return []tiles.Tile{}
	}
	return ts
}

// ----------------------------- persistence ---------------------------------

// persist mirrors g's counters into sqlite. finished is set on the request
// that ended the run.
func (s *Server) persist(ctx context.Context, g *game.Game, o owner, finished bool) {
	clause, arg := o.clause()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		log.Warn().Err(err).Msg("begin tx")
		return
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`UPDATE games SET tiles_taken=?, wins=?, kongs=? WHERE id=? AND `+clause,
		g.TilesTaken, g.Wins, g.Kongs, g.ID, arg); err != nil {
		log.Warn().Err(err).Msg("update game counters")
	}
	if finished {
		if _, err := tx.Exec(`UPDATE games SET status=?, finished_at=? WHERE id=? AND `+clause,
			string(g.Status), g.FinishedAt.UTC().Format(time.RFC3339), g.ID, arg); err != nil {
			log.Warn().Err(err).Msg("finish game")
		}
		if o.userID != "" {
			if err := bumpStats(tx, o.userID, g.Status == game.StatusWon); err != nil {
				log.Warn().Err(err).Str("user", o.userID).Msg("bump stats")
			}
		}
	}
	if err := tx.Commit(); err != nil {
		log.Warn().Err(err).Msg("commit game progress")
	}

	if finished && g.Daily != "" {
		err := s.daily.InsertResult(ctx, daily.Result{
			UserID:     o.id(),
			Date:       g.Daily,
			GameID:     g.ID,
			Won:        g.Status == game.StatusWon,
			Wins:       g.Wins,
			TilesTaken: g.TilesTaken,
			ElapsedMs:  g.Elapsed().Milliseconds(),
		})
		if err != nil {
			log.Warn().Err(err).Str("gameId", g.ID).Msg("insert daily result")
		}
	}
}
