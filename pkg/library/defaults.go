package library

import (
	"github.com/jnickzlim/wa-chrome-assistance/pkg/domain"
	"github.com/jnickzlim/wa-chrome-assistance/pkg/dsl"
)

// DefaultTemplates is the general preset seeded into an empty library.
func DefaultTemplates() []domain.Template {
	return []domain.Template{
		{ID: "t1", Title: "Greeting", Category: "General", Content: "Hello! Thank you for reaching out. How can I help you today? 😊"},
		{ID: "t2", Title: "Quick Response", Category: "General", Content: "I've received your message and will get back to you as soon as possible. Thank you for your patience! 🙏"},
		{ID: "t3", Title: "Closing", Category: "General", Content: "I hope that helps! If you have any other questions, feel free to ask. Have a great day! 😊"},
		{ID: "t4", Title: "Away Message", Category: "General", Content: "Hello! I'm currently away from my desk, but I'll reply to your message as soon as I'm back. Thank you! 🕒"},
	}
}

// DefaultRules suggests the General category for greetings and help requests.
func DefaultRules() []domain.Rule {
	return []domain.Rule{
		{ID: "r1", Keyword: "hello", SuggestedCategory: "General"},
		{ID: "r2", Keyword: "help", SuggestedCategory: "General"},
	}
}

// DefaultSettings keeps assist mode off and suggestions on.
func DefaultSettings() domain.Settings {
	return domain.Settings{AutoSuggest: true}
}

// DefaultFlows returns the built-in flows. Missing ones are merged back into
// the library on every Init.
func DefaultFlows() []*domain.Flow {
	general := dsl.New("f_general").
		Name("General Inquiry").
		Add("welcome").
		Message("Hello! Thank you for contacting us. How can we assist you today?\n\n1. Pricing\n2. Support\n3. Other").
		ExpectReply().
		On("1", "pricing").
		On("2", "support").
		On("3", "other").
		Add("pricing").
		Message("You can find our current pricing on our website or I can send you a quote. Which would you prefer?").
		ExpectReply().
		Add("support").
		Message("Please describe the issue you're facing so our technical team can assist you.").
		ExpectReply().
		Add("other").
		Message("Please let us know how we can help and we'll get back to you shortly.").
		ExpectReply().
		MustBuild()

	return []*domain.Flow{general}
}
