package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercases", "Blinding Lights", "blinding lights"},
		{"strips punctuation", "MONTERO (Call Me By Your Name)", "montero call me by your name"},
		{"collapses whitespace", "  Bad   Guy  ", "bad guy"},
		{"keeps digits", "7 rings", "7 rings"},
		{"empty", "", ""},
		{"only punctuation", "***", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Normalize(tt.input))
		})
	}
}

func TestTokenJaccard_Score(t *testing.T) {
	sim := TokenJaccard{}

	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "Blinding Lights", "Blinding Lights", 1.0},
		{"case and punctuation ignored", "blinding lights", "Blinding Lights!", 1.0},
		{"word order ignored", "Lights Blinding", "Blinding Lights", 1.0},
		{"disjoint", "Blinding Lights", "Watermelon Sugar", 0.0},
		{"partial overlap", "Save Your Tears", "Save Tears", 2.0 / 3.0},
		{"both empty", "", "", 1.0},
		{"one empty", "Blinding Lights", "", 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, sim.Score(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTokenJaccard_FeatVariants(t *testing.T) {
	sim := TokenJaccard{}

	// Parenthesized feat credits should not tank the score
	score := sim.Score("Peaches (feat. Daniel Caesar)", "Peaches feat. Daniel Caesar")
	assert.Equal(t, 1.0, score)
}

func TestJaroWinkler_Score(t *testing.T) {
	sim := NewJaroWinkler()

	assert.Equal(t, 1.0, sim.Score("Blinding Lights", "blinding lights"))
	assert.Greater(t, sim.Score("Blinding Lights", "Blinding Lihgts"), 0.9)
	assert.Less(t, sim.Score("Blinding Lights", "Watermelon Sugar"), 0.7)
}
