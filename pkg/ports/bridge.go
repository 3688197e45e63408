package ports

import "context"

// Translator rewrites text into another language.
type Translator interface {
	Translate(ctx context.Context, text, sourceLang, targetLang string) (string, error)
}

// Refiner rewrites text into a more polished message.
type Refiner interface {
	Refine(ctx context.Context, text string) (string, error)
}
