package core

import (
	"context"
	"io"
)

// Translator defines the operations exposed by the translation client.
// The HTTP front end and the CLI depend on this interface only.
type Translator interface {
	// Translate translates text, consulting the result cache when enabled
	Translate(ctx context.Context, req TranslationRequest) (*TranslationResult, error)

	// DetectLanguage returns the language code of text
	DetectLanguage(ctx context.Context, text string) (*DetectionResult, error)

	// BreakSentences returns the sentence lengths of text in lang
	BreakSentences(ctx context.Context, text, lang string) (*SentenceBreakResult, error)

	// LanguageNames returns the raw language-names document localized to locale
	LanguageNames(ctx context.Context, locale string) ([]byte, error)

	// LanguagesSupported returns the language codes available for translation
	LanguagesSupported(ctx context.Context) ([]string, error)

	// Speak returns the synthesized audio for req
	Speak(ctx context.Context, req SpeechRequest) ([]byte, error)

	// SpeakTo streams the synthesized audio for req into w
	SpeakTo(ctx context.Context, req SpeechRequest, w io.Writer) (int64, error)
}

// TokenSource supplies bearer tokens for outgoing API calls
type TokenSource interface {
	Token(ctx context.Context) (AccessToken, error)
}
