package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectCategory_Sports(t *testing.T) {
	assert.Equal(t, CategorySports, DetectCategory("NBA Finals"))
}

func TestDetectCategory_CaseInsensitive(t *testing.T) {
	assert.Equal(t, CategorySports, DetectCategory("nba finals game 7"))
	assert.Equal(t, CategoryPolitics, DetectCategory("TRUMP wins the ELECTION"))
}

func TestDetectCategory_NoMatchFallsBackToOther(t *testing.T) {
	assert.Equal(t, CategoryOther, DetectCategory("Will it rain in Lisbon tomorrow?"))
	assert.Equal(t, CategoryOther, DetectCategory(""))
}

func TestDetectCategory_HighestScoreWins(t *testing.T) {
	// "rate" alone is finance, but two sports keywords outweigh it
	assert.Equal(t, CategorySports, DetectCategory("Will the team win the championship at this rate?"))
}

func TestDetectCategory_TieGoesToFirstDeclared(t *testing.T) {
	// One politics keyword, one finance keyword → politics declared first
	assert.Equal(t, CategoryPolitics, DetectCategory("Senate decision on the dollar"))
}

func TestDetectCategory_SubstringMatch(t *testing.T) {
	// Keyword matching is substring-based, not word-based
	assert.Equal(t, CategoryFinance, DetectCategory("Hyperinflation scenario"))
}

func TestParseCategory(t *testing.T) {
	cat, ok := ParseCategory("Sports")
	assert.True(t, ok)
	assert.Equal(t, CategorySports, cat)

	_, ok = ParseCategory("weather")
	assert.False(t, ok)
}

func TestCategoryTitle(t *testing.T) {
	assert.Equal(t, "Politics", CategoryPolitics.Title())
	assert.Equal(t, "Other", CategoryOther.Title())
}
