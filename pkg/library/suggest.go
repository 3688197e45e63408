package library

import (
	"sort"
	"strings"

	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
)

// SuggestCategory returns the category of the first rule whose keyword occurs
// in the recent conversation text, case-insensitively. It returns "" when no
// rule matches.
func SuggestCategory(recentText string, rules []domain.Rule) string {
	if recentText == "" {
		return ""
	}
	text := strings.ToLower(recentText)
	for _, r := range rules {
		kw := strings.ToLower(strings.TrimSpace(r.Keyword))
		if kw != "" && strings.Contains(text, kw) {
			return r.SuggestedCategory
		}
	}
	return ""
}

// Search keeps the templates whose title, content or category contains term.
func Search(templates []domain.Template, term string) []domain.Template {
	needle := strings.ToLower(term)
	out := make([]domain.Template, 0, len(templates))
	for _, t := range templates {
		if strings.Contains(strings.ToLower(t.Title), needle) ||
			strings.Contains(strings.ToLower(t.Content), needle) ||
			strings.Contains(strings.ToLower(t.Category), needle) {
			out = append(out, t)
		}
	}
	return out
}

// Group is one section of the template picker.
type Group struct {
	Category  string            `json:"category"`
	Suggested bool              `json:"suggested,omitempty"`
	Favorites bool              `json:"favorites,omitempty"`
	Templates []domain.Template `json:"templates"`
}

// Arrange lays templates out the way the picker shows them: favorites first
// (drawn from the full list), then one group per category with the suggested
// category leading and the rest alphabetical.
func Arrange(all, filtered []domain.Template, favorites []string, suggested string) []Group {
	var groups []Group

	fav := make(map[string]bool, len(favorites))
	for _, id := range favorites {
		fav[id] = true
	}
	var favs []domain.Template
	for _, t := range all {
		if fav[t.ID] {
			favs = append(favs, t)
		}
	}
	if len(favs) > 0 {
		groups = append(groups, Group{Category: "Favorites", Favorites: true, Templates: favs})
	}

	byCat := make(map[string][]domain.Template)
	for _, t := range filtered {
		byCat[t.Category] = append(byCat[t.Category], t)
	}
	cats := make([]string, 0, len(byCat))
	for c := range byCat {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool {
		if cats[i] == suggested {
			return true
		}
		if cats[j] == suggested {
			return false
		}
		return cats[i] < cats[j]
	})

	for _, c := range cats {
		groups = append(groups, Group{Category: c, Suggested: suggested != "" && c == suggested, Templates: byCat[c]})
	}
	return groups
}
