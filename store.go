package main

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// StoreConfig tunes the player registry.
type StoreConfig struct {
	// IdleTimeout removes players not seen for this long. Zero disables reaping.
	IdleTimeout     time.Duration
	AnalysisTimeout time.Duration
	// OnChange is called with the player id whenever that player's game changes.
	OnChange func(playerID string)
	// Connected reports whether the player has an open event stream. Such
	// players are never reaped, however long ago their last request was.
	Connected func(playerID string) bool
}

type player struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Store holds one controller per player, all sharing the same gateway and
// leaderboard.
type Store struct {
	mu      sync.Mutex
	players map[string]*player

	gateway     *Gateway
	leaderboard *Leaderboard
	cfg         StoreConfig

	retired sync.WaitGroup
	stop    chan struct{}
	done    chan struct{}
	once    sync.Once
}

// NewStore creates an empty registry and starts the reaper when an idle
// timeout is set.
func NewStore(gw *Gateway, lb *Leaderboard, cfg StoreConfig) *Store {
	s := &Store{
		players:     make(map[string]*player),
		gateway:     gw,
		leaderboard: lb,
		cfg:         cfg,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
	if cfg.IdleTimeout > 0 {
		go s.reaperLoop()
	} else {
		close(s.done)
	}
	return s
}

// Controller returns the player's controller, creating it on first use, and
// marks the player as active.
func (s *Store) Controller(playerID string) *Controller {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.players[playerID]; ok {
		p.lastSeen = time.Now()
		return p.ctrl
	}

	ctrl := NewController(s.gateway, s.leaderboard, ControllerConfig{
		AnalysisTimeout: s.cfg.AnalysisTimeout,
		OnChange: func() {
			if s.cfg.OnChange != nil {
				s.cfg.OnChange(playerID)
			}
		},
	})
	s.players[playerID] = &player{ctrl: ctrl, lastSeen: time.Now()}
	log.Debug().Str("player", playerID).Msg("player registered")
	return ctrl
}

// Lookup returns the player's controller without creating it or marking
// the player active.
func (s *Store) Lookup(playerID string) (*Controller, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.players[playerID]
	if !ok {
		return nil, false
	}
	return p.ctrl, true
}

// Leaderboard returns the shared leaderboard.
func (s *Store) Leaderboard() *Leaderboard {
	return s.leaderboard
}

// Gateway returns the shared generation gateway.
func (s *Store) Gateway() *Gateway {
	return s.gateway
}

// Len returns the number of registered players.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.players)
}

func (s *Store) reaperLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.cfg.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			if n := s.reap(now.Add(-s.cfg.IdleTimeout)); n > 0 {
				log.Debug().Int("players", n).Msg("reaped idle players")
			}
		}
	}
}

// reap removes players last seen before cutoff. Players still watching
// their game or waiting on a card are kept and marked seen. Their in-flight
// analyses are still awaited by Close.
func (s *Store) reap(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, p := range s.players {
		if !p.lastSeen.Before(cutoff) {
			continue
		}
		if s.busy(id, p.ctrl) {
			p.lastSeen = time.Now()
			continue
		}
		delete(s.players, id)
		s.retire(p.ctrl)
		n++
	}
	return n
}

func (s *Store) busy(id string, c *Controller) bool {
	if c.State() == StateLoading {
		return true
	}
	return s.cfg.Connected != nil && s.cfg.Connected(id)
}

func (s *Store) retire(c *Controller) {
	s.retired.Add(1)
	go func() {
		defer s.retired.Done()
		c.Wait()
	}()
}

// Close stops the reaper and waits for every pending analysis.
func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
	<-s.done

	s.mu.Lock()
	ctrls := make([]*Controller, 0, len(s.players))
	for _, p := range s.players {
		ctrls = append(ctrls, p.ctrl)
	}
	s.mu.Unlock()

	for _, c := range ctrls {
		c.Wait()
	}
	s.retired.Wait()
}
