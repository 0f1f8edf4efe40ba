package main

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
	"github.com/skip2/go-qrcode"
)

//go:embed frontend
var frontendFS embed.FS

const (
	playerCookieName = "meetingbingo_id"
	maxBodySize      = 16 << 10

	defaultLeaderboardLimit = 10
	maxLeaderboardLimit     = 100
	qrSize                  = 320
)

type ctxKey int

const playerKey ctxKey = 0

// rateLimiter is a simple per-IP token bucket rate limiter.
type rateLimiter struct {
	mu       sync.Mutex
	visitors map[string]*bucket
	rate     int           // tokens per interval
	interval time.Duration // refill interval
	stop     chan struct{}
	once     sync.Once
}

type bucket struct {
	tokens   int
	lastSeen time.Time
}

func newRateLimiter(rate int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		visitors: make(map[string]*bucket),
		rate:     rate,
		interval: interval,
		stop:     make(chan struct{}),
	}
	go rl.cleanupLoop()
	return rl
}

// cleanupLoop drops visitors idle for five minutes, once a minute.
func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			for ip, b := range rl.visitors {
				if time.Since(b.lastSeen) > 5*time.Minute {
					delete(rl.visitors, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

func (rl *rateLimiter) close() {
	rl.once.Do(func() { close(rl.stop) })
}

func (rl *rateLimiter) allow(ip string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.visitors[ip]
	if !ok {
		rl.visitors[ip] = &bucket{tokens: rl.rate - 1, lastSeen: time.Now()}
		return true
	}

	// Refill tokens based on elapsed time.
	elapsed := time.Since(b.lastSeen)
	refill := int(elapsed / rl.interval)
	if refill > 0 {
		b.tokens += refill * rl.rate
		if b.tokens > rl.rate {
			b.tokens = rl.rate
		}
		b.lastSeen = time.Now()
	}

	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// limit rejects requests once the client's bucket is empty.
func (rl *rateLimiter) limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientIP(r)) {
			jsonError(w, "too many requests, try again later", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Server is the main HTTP server.
type Server struct {
	r     *chi.Mux
	cfg   *Config
	store *Store
	sse   *Broadcaster
	genRL *rateLimiter
}

// NewServer wires routes for the given store. Register the returned server's
// PushState as the store's change hook to stream updates.
func NewServer(cfg *Config, store *Store, sse *Broadcaster) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		cfg:   cfg,
		store: store,
		sse:   sse,
		genRL: newRateLimiter(cfg.rateLimit, time.Minute),
	}
	store.Leaderboard().OnRecord(s.pushLeaderboard)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.r.Use(middleware.RequestID)
	s.r.Use(middleware.RealIP)
	s.r.Use(hlog.NewHandler(log.Logger))
	s.r.Use(hlog.AccessHandler(accessLog))
	s.r.Use(middleware.Recoverer)
	s.r.Use(s.securityHeaders)

	s.r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})
	s.r.Get("/version", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("meetingbingo v" + releaseVersion + "\n"))
	})
	if s.cfg.profile {
		s.r.Mount("/debug", middleware.Profiler())
	}

	s.r.Route("/api", func(r chi.Router) {
		r.Use(s.withPlayer)

		r.Get("/state", s.handleState)
		r.Get("/events", s.handleEvents)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/languages", s.handleLanguages)
		r.Get("/qr", s.handleQR)

		r.With(s.genRL.limit).Post("/game/start", s.handleStart)
		r.With(s.genRL.limit).Post("/roles", s.handleRoles)
		r.Post("/game/cells/{id}/toggle", s.handleToggle)
		r.Post("/game/quit", s.handleQuit)
		r.Post("/game/play-again", s.handlePlayAgain)

		r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
			jsonError(w, "not found", http.StatusNotFound)
		})
	})

	frontendDir, _ := fs.Sub(frontendFS, "frontend")
	s.r.Handle("/*", http.FileServer(http.FS(frontendDir)))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.r.ServeHTTP(w, r)
}

// Close releases background resources. It does not close the store.
func (s *Server) Close() {
	s.genRL.close()
}

func (s *Server) securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Content-Security-Policy", "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; connect-src 'self'")
		if s.cfg.scheme() == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, d time.Duration) {
	e := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		e = hlog.FromRequest(r).Error()
	}
	e.Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", d).
		Str("req", middleware.GetReqID(r.Context())).
		Msg("request")
}

// withPlayer makes sure every API request carries a player id cookie.
func (s *Server) withPlayer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := getOrSetPlayerID(w, r)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), playerKey, id)))
	})
}

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int((365 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
	return id
}

func playerID(r *http.Request) string {
	id, _ := r.Context().Value(playerKey).(string)
	return id
}

func (s *Server) controller(r *http.Request) *Controller {
	return s.store.Controller(playerID(r))
}

// PushState sends the player's current snapshot to their open streams.
func (s *Server) PushState(playerID string) {
	if s.sse.ClientCount(playerID) == 0 {
		return
	}
	c, ok := s.store.Lookup(playerID)
	if !ok {
		return
	}
	data, err := json.Marshal(c.Snapshot())
	if err != nil {
		log.Error().Err(err).Msg("encode state")
		return
	}
	s.sse.Send(playerID, "state", string(data))
}

func (s *Server) pushLeaderboard() {
	data, err := json.Marshal(s.store.Leaderboard().Entries(defaultLeaderboardLimit))
	if err != nil {
		log.Error().Err(err).Msg("encode leaderboard")
		return
	}
	s.sse.Broadcast("leaderboard", string(data))
}

// --- Game handlers ---

// GET /api/state
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.controller(r).Snapshot())
}

// POST /api/game/start: generate a card and start the clock.
func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	var settings Settings
	if !decodeBody(w, r, &settings) {
		return
	}
	if settings.Language == "" {
		settings.Language = MatchLanguage(r.Header.Get("Accept-Language"))
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.generateTimeout)
	defer cancel()

	c := s.controller(r)
	if err := c.StartGame(ctx, settings); err != nil {
		switch {
		case errors.Is(err, ErrTopicRequired), errors.Is(err, ErrUnsupportedLanguage):
			jsonError(w, err.Error(), http.StatusBadRequest)
		default:
			hlog.FromRequest(r).Error().Err(err).Msg("start game")
			jsonError(w, "could not generate a card, please try again", http.StatusBadGateway)
		}
		return
	}
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// POST /api/game/cells/{id}/toggle
func (s *Server) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		jsonError(w, "invalid cell id", http.StatusBadRequest)
		return
	}
	c := s.controller(r)
	c.ToggleCell(r.Context(), id)
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// POST /api/game/quit
func (s *Server) handleQuit(w http.ResponseWriter, r *http.Request) {
	c := s.controller(r)
	c.Quit()
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// POST /api/game/play-again
func (s *Server) handlePlayAgain(w http.ResponseWriter, r *http.Request) {
	c := s.controller(r)
	c.PlayAgain()
	writeJSON(w, http.StatusOK, c.Snapshot())
}

// POST /api/roles: suggest attendee roles for a meeting.
func (s *Server) handleRoles(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Topic    string   `json:"topic"`
		Industry string   `json:"industry"`
		Language Language `json:"language"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Language == "" {
		req.Language = MatchLanguage(r.Header.Get("Accept-Language"))
	}

	settings, err := Settings{Topic: req.Topic, Industry: req.Industry, Language: req.Language}.Normalize()
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.generateTimeout)
	defer cancel()

	roles := s.store.Gateway().SuggestRoles(ctx, settings.Topic, settings.Industry, settings.Language)
	writeJSON(w, http.StatusOK, map[string][]string{"roles": roles})
}

// GET /api/leaderboard?limit=
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultLeaderboardLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			jsonError(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = min(n, maxLeaderboardLimit)
	}
	writeJSON(w, http.StatusOK, s.store.Leaderboard().Entries(limit))
}

type languageInfo struct {
	Tag        Language `json:"tag"`
	Name       string   `json:"name"`
	NativeName string   `json:"nativeName"`
}

// GET /api/languages
func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	list := make([]languageInfo, 0, len(SupportedLanguages))
	for _, l := range SupportedLanguages {
		list = append(list, languageInfo{Tag: l, Name: l.EnglishName(), NativeName: l.NativeName()})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"languages": list,
		"preferred": MatchLanguage(r.Header.Get("Accept-Language")),
	})
}

// GET /api/events: SSE stream of the player's state.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id := playerID(r)
	c := s.store.Controller(id)

	s.sse.ServeSSE(w, r, id, func(cl *client) {
		data, err := json.Marshal(c.Snapshot())
		if err != nil {
			return
		}
		cl.offer(event{name: "state", data: string(data)})
	})
}

// GET /api/qr: PNG QR code linking to the app, to open it on a phone.
func (s *Server) handleQR(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	png, err := qrcode.Encode(scheme+"://"+r.Host+"/", qrcode.Medium, qrSize)
	if err != nil {
		jsonError(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	_, _ = w.Write(png)
}

// --- Helpers ---

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// clientIP returns the request's address without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return strings.TrimSpace(r.RemoteAddr)
}
