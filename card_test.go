package main

import (
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func testPhrases() []string {
	out := make([]string, PhraseCount)
	for i := range out {
		out[i] = fmt.Sprintf("phrase %d", i)
	}
	return out
}

func newTestCard(t *testing.T) Card {
	t.Helper()
	c, err := NewCard(testPhrases(), "FREE SPACE")
	if err != nil {
		t.Fatalf("new card: %v", err)
	}
	return c
}

func TestNewCardLayout(t *testing.T) {
	c := newTestCard(t)

	free := 0
	for pos, cell := range c {
		if cell.ID != pos {
			t.Fatalf("cell at %d has id %d", pos, cell.ID)
		}
		if cell.IsFree {
			free++
		}
	}
	if free != 1 || !c[FreeCellID].IsFree || !c[FreeCellID].Checked {
		t.Fatalf("expected exactly one checked free cell at %d", FreeCellID)
	}

	for i, text := range testPhrases() {
		id := i
		if i >= 12 {
			id = i + 1
		}
		if c[id].Text != text {
			t.Fatalf("phrase %d: expected at id %d, got %q", i, id, c[id].Text)
		}
	}
}

func TestNewCardWrongCount(t *testing.T) {
	for _, n := range []int{0, 23, 25} {
		if _, err := NewCard(make([]string, n), "FREE"); err == nil {
			t.Fatalf("expected error for %d phrases", n)
		}
	}
}

func TestToggle(t *testing.T) {
	c := newTestCard(t)

	if c.Toggle(FreeCellID) {
		t.Fatal("free cell should not toggle")
	}
	if !c[FreeCellID].Checked {
		t.Fatal("free cell must stay checked")
	}
	if c.Toggle(-1) || c.Toggle(CardCells) {
		t.Fatal("out of range ids should be ignored")
	}

	if !c.Toggle(3) || !c[3].Checked {
		t.Fatal("expected cell 3 checked")
	}
	if !c.Toggle(3) || c[3].Checked {
		t.Fatal("expected cell 3 unchecked")
	}
}

func TestCheckWinEachPattern(t *testing.T) {
	for _, p := range WinPatterns {
		c := newTestCard(t)
		c[FreeCellID].Checked = true
		for _, id := range p {
			c[id].Checked = true
		}

		got, ok := c.CheckWin()
		if !ok {
			t.Fatalf("pattern %v: expected win", p)
		}
		if got != p {
			t.Fatalf("expected %v, got %v", p, got)
		}
	}
}

func TestCheckWinTieBreak(t *testing.T) {
	c := newTestCard(t)
	for _, id := range []int{0, 1, 2, 3, 4, 6, 18, 24} {
		c[id].Checked = true
	}

	got, ok := c.CheckWin()
	if !ok {
		t.Fatal("expected win")
	}
	if got != (Pattern{0, 1, 2, 3, 4}) {
		t.Fatalf("rows come before diagonals, got %v", got)
	}
}

func TestCheckWinNone(t *testing.T) {
	c := newTestCard(t)
	c[0].Checked, c[1].Checked, c[2].Checked, c[3].Checked = true, true, true, true
	if p, ok := c.CheckWin(); ok {
		t.Fatalf("unexpected win %v", p)
	}
}

func TestPhrasesIn(t *testing.T) {
	c := newTestCard(t)
	for _, id := range []int{10, 11, 13, 14} {
		c[id].Checked = true
	}

	got := c.PhrasesIn(Pattern{10, 11, 12, 13, 14})
	want := []string{"phrase 10", "phrase 11", "phrase 12", "phrase 13"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("phrases mismatch (-want +got):\n%s", diff)
	}
}
