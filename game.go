package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// GameState is the phase a player's controller is in.
type GameState string

const (
	StateSetup   GameState = "setup"
	StateLoading GameState = "loading"
	StatePlaying GameState = "playing"
	StateWon     GameState = "won"
)

const (
	maxTopicLen    = 120
	maxIndustryLen = 80
	maxRoleLen     = 60
	maxRoles       = 12

	defaultAnalysisTimeout = 30 * time.Second
)

// ErrTopicRequired is returned when a game is started without a topic.
var ErrTopicRequired = errors.New("topic is required")

// Settings describe the meeting a card is generated for.
type Settings struct {
	Topic    string   `json:"topic"`
	Industry string   `json:"industry"`
	Roles    []string `json:"roles"`
	Language Language `json:"language"`
}

// Normalize trims and bounds the settings and resolves the language.
func (s Settings) Normalize() (Settings, error) {
	out := Settings{
		Topic:    truncateRunes(strings.TrimSpace(s.Topic), maxTopicLen),
		Industry: truncateRunes(strings.TrimSpace(s.Industry), maxIndustryLen),
		Roles:    []string{},
	}
	if out.Topic == "" {
		return Settings{}, ErrTopicRequired
	}

	for _, r := range cleanStrings(s.Roles) {
		if len(out.Roles) == maxRoles {
			break
		}
		out.Roles = append(out.Roles, truncateRunes(r, maxRoleLen))
	}

	lang, err := ParseLanguage(string(s.Language))
	if err != nil {
		return Settings{}, fmt.Errorf("%w: %q", err, s.Language)
	}
	out.Language = lang
	return out, nil
}

// GameSession is one play-through, from start to quit or win.
type GameSession struct {
	ID             string
	Settings       Settings
	Card           Card
	StartTime      time.Time
	EndTime        time.Time
	WinningPattern *Pattern
	Analysis       *Analysis
}

// Elapsed is the time from start to win, or to now while playing.
func (s *GameSession) Elapsed(now time.Time) time.Duration {
	if s.StartTime.IsZero() {
		return 0
	}
	end := now
	if !s.EndTime.IsZero() {
		end = s.EndTime
	}
	return end.Sub(s.StartTime)
}

// ControllerConfig tunes a Controller. Zero values get defaults.
type ControllerConfig struct {
	AnalysisTimeout time.Duration
	Now             func() time.Time
	// OnChange is called, outside the controller lock, after every transition
	// and when an analysis arrives.
	OnChange func()
}

// Controller owns one player's game state. All mutations go through its
// transition methods; inputs that do not apply to the current state are
// ignored.
type Controller struct {
	mu      sync.Mutex
	state   GameState
	session *GameSession

	gateway     *Gateway
	leaderboard *Leaderboard
	cfg         ControllerConfig

	pending sync.WaitGroup
}

// NewController returns a controller in the setup state.
func NewController(gw *Gateway, lb *Leaderboard, cfg ControllerConfig) *Controller {
	if cfg.AnalysisTimeout <= 0 {
		cfg.AnalysisTimeout = defaultAnalysisTimeout
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Controller{
		state:       StateSetup,
		gateway:     gw,
		leaderboard: lb,
		cfg:         cfg,
	}
}

// State returns the current phase.
func (c *Controller) State() GameState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartGame generates a card and starts the timer. It only applies in the
// setup state. On failure the controller is back in setup without a card.
func (c *Controller) StartGame(ctx context.Context, s Settings) error {
	settings, err := s.Normalize()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.state != StateSetup {
		c.mu.Unlock()
		return nil
	}
	c.state = StateLoading
	c.mu.Unlock()
	c.notify()

	card, err := c.buildCard(ctx, settings)

	c.mu.Lock()
	if err != nil {
		c.state = StateSetup
		c.mu.Unlock()
		c.notify()
		return fmt.Errorf("generate card: %w", err)
	}

	c.session = &GameSession{
		ID:        uuid.NewString(),
		Settings:  settings,
		Card:      card,
		StartTime: c.cfg.Now(),
	}
	c.state = StatePlaying
	id := c.session.ID
	c.mu.Unlock()

	log.Info().Str("game", id).Str("topic", settings.Topic).Str("lang", string(settings.Language)).Msg("game started")
	c.notify()
	return nil
}

func (c *Controller) buildCard(ctx context.Context, s Settings) (Card, error) {
	phrases := c.gateway.GeneratePhrases(ctx, s.Topic, s.Industry, s.Roles, s.Language)
	// A caller that went away gets no game; a deadline still plays the fallback card.
	if err := ctx.Err(); errors.Is(err, context.Canceled) {
		return Card{}, err
	}
	return NewCard(phrases, c.gateway.FreeSpace(s.Language))
}

// ToggleCell flips a cell while playing and settles a win in the same step.
// It reports whether anything changed.
func (c *Controller) ToggleCell(ctx context.Context, id int) bool {
	c.mu.Lock()
	if c.state != StatePlaying || !c.session.Card.Toggle(id) {
		c.mu.Unlock()
		return false
	}
	if p, ok := c.session.Card.CheckWin(); ok {
		c.winLocked(ctx, p)
	}
	c.mu.Unlock()

	c.notify()
	return true
}

// winLocked stops the clock, records the result and requests an analysis
// without waiting for it. c.mu must be held.
func (c *Controller) winLocked(ctx context.Context, p Pattern) {
	s := c.session
	s.EndTime = c.cfg.Now()
	s.WinningPattern = &p
	c.state = StateWon

	elapsed := s.Elapsed(s.EndTime)
	e := LeaderboardEntry{
		ID:             s.ID,
		ElapsedMs:      elapsed.Milliseconds(),
		CompletionDate: s.EndTime.UTC(),
		Topic:          s.Settings.Topic,
	}
	if err := c.leaderboard.Record(context.WithoutCancel(ctx), e); err != nil {
		log.Error().Err(err).Str("game", s.ID).Msg("record leaderboard entry")
	}

	log.Info().Str("game", s.ID).Dur("elapsed", elapsed).Ints("pattern", p[:]).Msg("bingo")

	c.pending.Add(1)
	go c.analyze(s.ID, s.Settings, s.Card.PhrasesIn(p), elapsed)
}

func (c *Controller) analyze(gameID string, s Settings, phrases []string, elapsed time.Duration) {
	defer c.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.AnalysisTimeout)
	defer cancel()

	a := c.gateway.AnalyzeResult(ctx, s.Topic, phrases, elapsed, s.Language)

	c.mu.Lock()
	if c.session == nil || c.session.ID != gameID {
		c.mu.Unlock()
		log.Debug().Str("game", gameID).Msg("discarding analysis for finished session")
		return
	}
	c.session.Analysis = &a
	c.mu.Unlock()

	c.notify()
}

// Quit abandons a game in progress.
func (c *Controller) Quit() bool {
	return c.resetToSetup(StatePlaying)
}

// PlayAgain leaves the result screen.
func (c *Controller) PlayAgain() bool {
	return c.resetToSetup(StateWon)
}

// resetToSetup discards the session when the controller is in from. The
// leaderboard is untouched.
func (c *Controller) resetToSetup(from GameState) bool {
	c.mu.Lock()
	if c.state != from {
		c.mu.Unlock()
		return false
	}
	c.session = nil
	c.state = StateSetup
	c.mu.Unlock()

	c.notify()
	return true
}

// Wait blocks until in-flight analysis requests have finished.
func (c *Controller) Wait() {
	c.pending.Wait()
}

func (c *Controller) notify() {
	if c.cfg.OnChange != nil {
		c.cfg.OnChange()
	}
}

// Snapshot is the displayable state of a controller.
type Snapshot struct {
	State           GameState  `json:"state"`
	GameID          string     `json:"gameId,omitempty"`
	Settings        *Settings  `json:"settings,omitempty"`
	Cells           []Cell     `json:"cells,omitempty"`
	StartTime       *time.Time `json:"startTime,omitempty"`
	EndTime         *time.Time `json:"endTime,omitempty"`
	ElapsedMs       int64      `json:"elapsedMs"`
	Elapsed         string     `json:"elapsed"`
	WinningPattern  []int      `json:"winningPattern,omitempty"`
	Analysis        *Analysis  `json:"analysis,omitempty"`
	AnalysisPending bool       `json:"analysisPending"`
	Rank            int        `json:"rank,omitempty"`
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{State: c.state, Elapsed: formatElapsed(0)}
	s := c.session
	if s == nil {
		return snap
	}

	settings := s.Settings
	settings.Roles = append([]string(nil), s.Settings.Roles...)
	start := s.StartTime
	elapsed := s.Elapsed(c.cfg.Now())

	snap.GameID = s.ID
	snap.Settings = &settings
	snap.Cells = append([]Cell(nil), s.Card[:]...)
	snap.StartTime = &start
	snap.ElapsedMs = elapsed.Milliseconds()
	snap.Elapsed = formatElapsed(elapsed)

	if s.WinningPattern != nil {
		end := s.EndTime
		snap.EndTime = &end
		snap.WinningPattern = append([]int(nil), s.WinningPattern[:]...)
		snap.AnalysisPending = s.Analysis == nil
		snap.Rank = c.leaderboard.Rank(s.ID)
	}
	if s.Analysis != nil {
		a := *s.Analysis
		snap.Analysis = &a
	}
	return snap
}

// formatElapsed renders a duration as mm:ss.
func formatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) > n {
		s = strings.TrimSpace(string([]rune(s)[:n]))
	}
	return s
}
