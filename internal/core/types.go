package core

import "time"

// TranslationRequest represents a single text translation request
type TranslationRequest struct {
	Text string `json:"text"`
	From string `json:"from"`
	To   string `json:"to"`
}

// TranslationResult is the outcome of a translation.
// Failure is set whenever Success is false.
type TranslationResult struct {
	Text                   string `json:"text,omitempty"`
	From                   string `json:"from,omitempty"`
	To                     string `json:"to"`
	DetectedSourceLanguage string `json:"detected_source_language,omitempty"`
	Success                bool   `json:"success"`
	Cached                 bool   `json:"cached"`
	Failure                *Error `json:"failure,omitempty"`
}

// DetectionResult is the outcome of a language detection
type DetectionResult struct {
	Language string `json:"language,omitempty"`
	Success  bool   `json:"success"`
	Failure  *Error `json:"failure,omitempty"`
}

// SentenceBreakResult holds the character length of each sentence, in order
type SentenceBreakResult struct {
	Lengths []int  `json:"lengths"`
	Success bool   `json:"success"`
	Failure *Error `json:"failure,omitempty"`
}

// SpeechRequest represents a text-to-speech request.
// Format is optional and passed through (e.g. "audio/mp3").
type SpeechRequest struct {
	Text     string `json:"text"`
	Language string `json:"language"`
	Format   string `json:"format,omitempty"`
}

// AccessToken is a bearer credential with its expiry
type AccessToken struct {
	Value     string    `json:"access_token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ValidFor reports whether the token remains usable for at least skew from now.
func (t AccessToken) ValidFor(now time.Time, skew time.Duration) bool {
	if t.Value == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return false
	}
	return now.Add(skew).Before(t.ExpiresAt)
}
