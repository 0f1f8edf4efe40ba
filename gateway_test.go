package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/genai"
)

// fakeGenerator answers with a fixed payload and records prompts.
type fakeGenerator struct {
	mu      sync.Mutex
	reply   string
	err     error
	delay   time.Duration
	prompts []string
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string, _ *genai.Schema) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	reply, err, delay := f.reply, f.err, f.delay
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return reply, err
}

func (f *fakeGenerator) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func testFallbacks(t *testing.T) Fallbacks {
	t.Helper()
	fbs, err := LoadFallbacks()
	if err != nil {
		t.Fatalf("load fallbacks: %v", err)
	}
	return fbs
}

func jsonList(n int) string {
	items := make([]string, n)
	for i := range items {
		items[i] = fmt.Sprintf("%q", fmt.Sprintf("model phrase %d", i))
	}
	return "[" + strings.Join(items, ",") + "]"
}

func TestGeneratePhrasesCount(t *testing.T) {
	fbs := testFallbacks(t)

	for _, n := range []int{0, 5, 24, 40} {
		gen := &fakeGenerator{reply: jsonList(n)}
		gw := NewGateway(gen, fbs)

		phrases := gw.GeneratePhrases(context.Background(), "Budget Review", "", nil, English)
		if len(phrases) != PhraseCount {
			t.Fatalf("n=%d: expected %d phrases, got %d", n, PhraseCount, len(phrases))
		}
		for i := 0; i < n && i < PhraseCount; i++ {
			if want := fmt.Sprintf("model phrase %d", i); phrases[i] != want {
				t.Fatalf("n=%d: phrase %d = %q, want %q", n, i, phrases[i], want)
			}
		}
		if len(cleanStrings(phrases)) != PhraseCount {
			t.Fatalf("n=%d: expected distinct phrases", n)
		}
	}
}

func TestGeneratePhrasesPaddingOrder(t *testing.T) {
	fbs := testFallbacks(t)
	gen := &fakeGenerator{reply: `["Synergy", "  ", "Quarterly vibes"]`}
	gw := NewGateway(gen, fbs)

	phrases := gw.GeneratePhrases(context.Background(), "Sync", "", nil, English)

	// "Synergy" is also in the padding list and must not appear twice.
	want := []string{"Synergy", "Quarterly vibes", "Can you hear me?", "Let's circle back", "Take this offline", "Low hanging fruit"}
	if diff := cmp.Diff(want, phrases[:len(want)]); diff != "" {
		t.Fatalf("padding mismatch (-want +got):\n%s", diff)
	}
}

func TestGeneratePhrasesFallback(t *testing.T) {
	fbs := testFallbacks(t)

	tests := map[string]Generator{
		"service error": &fakeGenerator{err: errors.New("boom")},
		"malformed":     &fakeGenerator{reply: "I cannot help with that"},
		"wrong shape":   &fakeGenerator{reply: `{"phrases": 3}`},
		"disabled":      nil,
	}

	for name, gen := range tests {
		t.Run(name, func(t *testing.T) {
			gw := NewGateway(gen, fbs)
			phrases := gw.GeneratePhrases(context.Background(), "Retro", "", nil, French)
			if diff := cmp.Diff(fbs[French].Phrases, phrases); diff != "" {
				t.Fatalf("expected French fallback (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeneratePhrasesFencedReply(t *testing.T) {
	gen := &fakeGenerator{reply: "Sure!\n```json\n" + jsonList(24) + "\n```"}
	gw := NewGateway(gen, testFallbacks(t))

	phrases := gw.GeneratePhrases(context.Background(), "Planning", "", nil, English)
	if phrases[23] != "model phrase 23" {
		t.Fatalf("expected model phrases, got %q", phrases[23])
	}
}

func TestGeneratePhrasesContextDone(t *testing.T) {
	fbs := testFallbacks(t)

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	expired, cancelExpired := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancelExpired()

	tests := map[string]context.Context{
		"cancelled": cancelled,
		"deadline":  expired,
	}
	for name, ctx := range tests {
		t.Run(name, func(t *testing.T) {
			gen := &fakeGenerator{reply: jsonList(24), delay: time.Second}
			phrases := NewGateway(gen, fbs).GeneratePhrases(ctx, "Planning", "", nil, German)
			if diff := cmp.Diff(fbs[German].Phrases, phrases); diff != "" {
				t.Fatalf("expected German fallback (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGeneratePhrasesPrompt(t *testing.T) {
	gen := &fakeGenerator{reply: jsonList(24)}
	gw := NewGateway(gen, testFallbacks(t))

	gw.GeneratePhrases(context.Background(), "Sprint Review", "Healthcare", []string{"Scrum Master", "CFO"}, Spanish)

	prompt := gen.lastPrompt()
	for _, want := range []string{`"Sprint Review"`, `"Healthcare"`, "Scrum Master, CFO", "Spanish", "JSON array"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestSuggestRoles(t *testing.T) {
	fbs := testFallbacks(t)

	gw := NewGateway(&fakeGenerator{reply: `[" Skeptical Developer ", "", "Budget-conscious Manager"]`}, fbs)
	got := gw.SuggestRoles(context.Background(), "Launch", "Tech", English)
	if diff := cmp.Diff([]string{"Skeptical Developer", "Budget-conscious Manager"}, got); diff != "" {
		t.Fatalf("roles mismatch (-want +got):\n%s", diff)
	}

	gw = NewGateway(&fakeGenerator{err: errors.New("unreachable")}, fbs)
	got = gw.SuggestRoles(context.Background(), "Launch", "Tech", German)
	if diff := cmp.Diff(fbs[German].Roles, got); diff != "" {
		t.Fatalf("expected German fallback roles (-want +got):\n%s", diff)
	}
}

func TestAnalyzeResult(t *testing.T) {
	fbs := testFallbacks(t)
	en := fbs[English].Analysis

	tests := []struct {
		name  string
		reply string
		err   error
		want  Analysis
	}{
		{"complete", `{"boredomScore": 87, "commentary": "Peak synergy."}`, nil, Analysis{87, "Peak synergy."}},
		{"zero is a real score", `{"boredomScore": 0, "commentary": "Riveting."}`, nil, Analysis{0, "Riveting."}},
		{"missing score", `{"commentary": "Meh."}`, nil, Analysis{50, "Meh."}},
		{"missing commentary", `{"boredomScore": 12}`, nil, Analysis{12, en.MissingCommentary}},
		{"out of range", `{"boredomScore": 140.6, "commentary": "x"}`, nil, Analysis{100, "x"}},
		{"negative", `{"boredomScore": -3, "commentary": "x"}`, nil, Analysis{0, "x"}},
		{"fractional", `{"boredomScore": 41.5, "commentary": "x"}`, nil, Analysis{42, "x"}},
		{"wrapped", "Result:\n```json\n{\"boredomScore\": 70, \"commentary\": \"ok\"}\n```", nil, Analysis{70, "ok"}},
		{"wrong types", `{"boredomScore": "high"}`, nil, Analysis{en.Score, en.Commentary}},
		{"garbage", `no json here`, nil, Analysis{en.Score, en.Commentary}},
		{"service error", "", errors.New("timeout"), Analysis{en.Score, en.Commentary}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := NewGateway(&fakeGenerator{reply: tt.reply, err: tt.err}, fbs)
			got := gw.AnalyzeResult(context.Background(), "Budget Review", []string{"Synergy"}, 90*time.Second, English)
			if got != tt.want {
				t.Fatalf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestAnalyzeResultPromptAndLanguage(t *testing.T) {
	fbs := testFallbacks(t)
	gen := &fakeGenerator{err: errors.New("down")}
	gw := NewGateway(gen, fbs)

	got := gw.AnalyzeResult(context.Background(), "Retro", []string{"Synergie", "Les KPI"}, 95*time.Second, French)
	if got.Commentary != fbs[French].Analysis.Commentary {
		t.Fatalf("expected French fallback commentary, got %q", got.Commentary)
	}

	prompt := gen.lastPrompt()
	for _, want := range []string{"95 seconds", `["Synergie","Les KPI"]`, "French"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}
