// internal/httpserver/routes_daily.go
//
// Daily challenge routes:
//   - POST /daily/new         → start (or resume) today's seeded run
//   - GET  /daily/leaderboard → ranked results for today or ?date=YYYY-MM-DD
//
// Every player gets the same pool seed for a UTC date, and may finish one
// daily run per date (enforced by UNIQUE(user_id, date)). Play goes through
// the regular /game/{id}/* endpoints; the result is recorded when it ends.

package httpserver

import (
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/loongtiles/go-server/internal/daily"
	"github.com/loongtiles/go-server/internal/game"
)

type dailyServer struct {
	srv      *Server
	sessions map[string]string // userID|date → game id
	mu       sync.Mutex
}

func (s *Server) mountDaily(r chi.Router) {
	dd := &dailyServer{srv: s, sessions: make(map[string]string)}
	s.dailyRuns = dd
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", dd.handleNew)
		r.Get("/leaderboard", dd.handleLeaderboard)
	})
}

// prune drops sessions from dates other than today. Caller holds d.mu.
func (d *dailyServer) prune(today string) {
	for k := range d.sessions {
		if !strings.HasSuffix(k, "|"+today) {
			delete(d.sessions, k)
		}
	}
}

func (d *dailyServer) len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sessions)
}

type dailyNewRes struct {
	GameID string    `json:"gameId"`
	Date   string    `json:"date"`
	Played bool      `json:"played"`
	Game   *gameView `json:"game,omitempty"`
}

// handleNew resumes the caller's unfinished run for today or deals a new one.
func (d *dailyServer) handleNew(w http.ResponseWriter, r *http.Request) {
	s := d.srv
	o := s.ownerOf(w, r)
	uid := o.id()
	now := s.now()
	date := daily.DateKey(now)

	if played, err := s.daily.AlreadyPlayed(r.Context(), uid, date); err != nil {
		log.Warn().Err(err).Msg("daily already played")
	} else if played {
		writeJSON(w, http.StatusOK, dailyNewRes{Date: date, Played: true})
		return
	}

	key := uid + "|" + date
	d.mu.Lock()
	defer d.mu.Unlock()

	d.prune(date)
	if id, ok := d.sessions[key]; ok {
		if g, err := s.store.Get(r.Context(), id); err == nil && !g.Finished() {
			v := viewOf(g)
			writeJSON(w, http.StatusOK, dailyNewRes{GameID: id, Date: date, Game: &v})
			return
		}
		delete(d.sessions, key)
	}

	p, err := game.LookupPreset(s.cfg.Presets(), s.cfg.Daily.Difficulty)
	if err != nil {
		writeGameError(w, err)
		return
	}
	s1, s2 := daily.Seed(now, s.cfg.Daily.Salt)
	g, err := game.New(p, s.gameOptions(game.WithSeed(s1, s2), game.WithDaily(date))...)
	if err != nil {
		writeGameError(w, err)
		return
	}
	if err := s.store.Save(r.Context(), g); err != nil {
		log.Error().Err(err).Msg("save daily game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}
	s.insertGameRow(r.Context(), g, o)
	d.sessions[key] = g.ID

	v := viewOf(g)
	writeJSON(w, http.StatusOK, dailyNewRes{GameID: g.ID, Date: date, Game: &v})
}

type lbRes struct {
	Date string        `json:"date"`
	Top  []daily.LBRow `json:"top"`
}

// handleLeaderboard returns the top 20 for the given date (default today).
func (d *dailyServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = daily.DateKey(d.srv.now())
	} else if _, err := daily.ParseDateKey(date); err != nil {
		writeError(w, http.StatusBadRequest, "bad_date")
		return
	}
	rows, err := d.srv.daily.Leaderboard(r.Context(), date, 20)
	if err != nil {
		log.Error().Err(err).Msg("daily leaderboard")
		writeError(w, http.StatusInternalServerError, "server_error")
		return
	}
	if rows == nil {
		rows = []daily.LBRow{}
	}
	writeJSON(w, http.StatusOK, lbRes{Date: date, Top: rows})
}
