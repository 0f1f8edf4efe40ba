package main

import "fmt"

const (
	CardSize    = 5
	CardCells   = CardSize * CardSize
	PhraseCount = CardCells - 1
	FreeCellID  = CardCells / 2
)

// Cell is one position of the 5x5 card. IDs are row-major grid positions.
type Cell struct {
	ID      int    `json:"id"`
	Text    string `json:"text"`
	Checked bool   `json:"checked"`
	IsFree  bool   `json:"isFree"`
}

// Card is the fixed-size grid of a game session.
type Card [CardCells]Cell

// Pattern is a set of five cell IDs that completes a bingo.
type Pattern [CardSize]int

// WinPatterns are checked in this order: rows, columns, then diagonals.
var WinPatterns = [...]Pattern{
	{0, 1, 2, 3, 4}, {5, 6, 7, 8, 9}, {10, 11, 12, 13, 14}, {15, 16, 17, 18, 19}, {20, 21, 22, 23, 24},
	{0, 5, 10, 15, 20}, {1, 6, 11, 16, 21}, {2, 7, 12, 17, 22}, {3, 8, 13, 18, 23}, {4, 9, 14, 19, 24},
	{0, 6, 12, 18, 24}, {4, 8, 12, 16, 20},
}

// NewCard lays out 24 phrases around the free centre cell. Phrases 0..11
// keep their index as ID, phrases 12..23 are shifted by one.
func NewCard(phrases []string, freeText string) (Card, error) {
	var c Card
	if len(phrases) != PhraseCount {
		return c, fmt.Errorf("need %d phrases, got %d", PhraseCount, len(phrases))
	}

	for i, text := range phrases {
		id := i
		if i >= FreeCellID {
			id = i + 1
		}
		c[id] = Cell{ID: id, Text: text}
	}
	c[FreeCellID] = Cell{ID: FreeCellID, Text: freeText, Checked: true, IsFree: true}
	return c, nil
}

// Toggle flips a cell. It returns false for unknown IDs and the free cell.
func (c *Card) Toggle(id int) bool {
	if id < 0 || id >= CardCells || c[id].IsFree {
		return false
	}
	c[id].Checked = !c[id].Checked
	return true
}

// CheckWin returns the first completed pattern in WinPatterns order.
func (c *Card) CheckWin() (Pattern, bool) {
	for _, p := range WinPatterns {
		if c.complete(p) {
			return p, true
		}
	}
	return Pattern{}, false
}

func (c *Card) complete(p Pattern) bool {
	for _, id := range p {
		if !c[id].Checked {
			return false
		}
	}
	return true
}

// PhrasesIn returns the texts of the checked, non-free cells of p.
func (c *Card) PhrasesIn(p Pattern) []string {
	out := make([]string, 0, len(p))
	for _, id := range p {
		if cell := c[id]; cell.Checked && !cell.IsFree {
			out = append(out, cell.Text)
		}
	}
	return out
}
