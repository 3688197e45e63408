package domain

// Template is a reusable message stored in the library.
type Template struct {
	ID       string `json:"id" yaml:"id"`
	Title    string `json:"title" yaml:"title"`
	Category string `json:"category" yaml:"category"`
	Content  string `json:"content" yaml:"content"`
}

// Rule suggests a template category when its keyword shows up in the conversation.
type Rule struct {
	ID                string `json:"id" yaml:"id"`
	Keyword           string `json:"keyword" yaml:"keyword"`
	SuggestedCategory string `json:"suggestedCategory" yaml:"suggestedCategory"`
}

// Settings holds operator preferences persisted with the library.
type Settings struct {
	Enabled     bool `json:"enabled" yaml:"enabled"`
	AutoSuggest bool `json:"autoSuggest" yaml:"autoSuggest"`
}
