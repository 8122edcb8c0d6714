package domain

import "strings"

// Category buckets markets for the concentration guard.
type Category string

const (
	CategoryPolitics      Category = "politics"
	CategoryEntertainment Category = "entertainment"
	CategorySports        Category = "sports"
	CategoryFinance       Category = "finance"
	CategoryOther         Category = "other"
)

// AllCategories in display order for the proposal split line.
var AllCategories = []Category{
	CategoryPolitics, CategoryEntertainment, CategorySports, CategoryFinance, CategoryOther,
}

// Title returns the category capitalized for user-facing text.
func (c Category) Title() string {
	s := string(c)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// categoryKeywords is ordered: ties resolve to the first declared category.
var categoryKeywords = []struct {
	cat      Category
	keywords []string
}{
	{CategoryPolitics, []string{
		"election", "president", "congress", "senate", "vote",
		"trump", "governor", "primary", "democrat", "republican",
		"ballot", "poll", "candidate", "federal", "white house",
	}},
	{CategoryEntertainment, []string{
		"oscar", "emmy", "grammy", "award", "actor", "actress",
		"film", "movie", "singer", "celebrity", "music", "album",
		"box office", "director", "netflix", "hollywood",
	}},
	{CategorySports, []string{
		"nba", "nfl", "mlb", "nhl", "playoff", "championship",
		"tournament", "super bowl", "world cup", "league",
		"finals", "mvp", "season", "match", "game", "team",
		"basketball", "football", "baseball", "soccer",
	}},
	{CategoryFinance, []string{
		"fed", "rate", "bitcoin", "crypto", "inflation", "gdp",
		"recession", "stock", "market", "economy", "interest",
		"dollar", "btc", "eth", "ethereum", "nasdaq", "s&p",
		"earnings", "ipo", "debt", "treasury",
	}},
}

// DetectCategory classifies a market title by case-insensitive keyword hits.
// Highest hit count wins; ties go to the earlier category; zero hits → other.
func DetectCategory(marketName string) Category {
	name := strings.ToLower(marketName)

	best := CategoryOther
	bestScore := 0
	for _, entry := range categoryKeywords {
		score := 0
		for _, kw := range entry.keywords {
			if strings.Contains(name, kw) {
				score++
			}
		}
		if score > bestScore {
			best = entry.cat
			bestScore = score
		}
	}
	return best
}

// ParseCategory returns the category when the string is a known bucket.
func ParseCategory(s string) (Category, bool) {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryPolitics:
		return CategoryPolitics, true
	case CategoryEntertainment:
		return CategoryEntertainment, true
	case CategorySports:
		return CategorySports, true
	case CategoryFinance:
		return CategoryFinance, true
	case CategoryOther:
		return CategoryOther, true
	}
	return "", false
}
