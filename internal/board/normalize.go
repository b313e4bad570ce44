package board

import (
	"sort"

	"roomboard/internal/models"
)

// normalize returns the live columns of a board sorted by position, each with its live cards
// sorted by position. Archived entities are dropped. The input is never modified.
func normalize(cols []models.Column) []models.Column {
	out := make([]models.Column, 0, len(cols))
	for _, c := range cols {
		if c.Archived() {
			continue
		}
		cards := make([]models.Card, 0, len(c.Cards))
		for _, card := range c.Cards {
			if !card.Archived() {
				cards = append(cards, card)
			}
		}
		sort.SliceStable(cards, func(i, j int) bool { return cards[i].Position < cards[j].Position })
		c.Cards = cards
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// pickBoard keeps the previous board while it is still listed, else falls back to the first.
func pickBoard(ids []string, previous string) string {
	if len(ids) == 0 {
		return ""
	}
	if previous != "" {
		for _, id := range ids {
			if id == previous {
				return previous
			}
		}
	}
	return ids[0]
}
