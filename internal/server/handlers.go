// Package server provides HTTP handlers and server setup for the translator front end.
package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"gotranslator/internal/core"
)

const defaultSpeechContentType = "audio/wav"

// speechContentTypes maps the formats the Speak API accepts to response media types
var speechContentTypes = map[string]string{
	"audio/wav": "audio/wav",
	"audio/mp3": "audio/mpeg",
}

// speechContentType never echoes the client's format; unknown formats get the default.
func speechContentType(format string) string {
	if ct, ok := speechContentTypes[strings.ToLower(strings.TrimSpace(format))]; ok {
		return ct
	}
	return defaultSpeechContentType
}

// Handler holds the HTTP handlers
type Handler struct {
	translator core.Translator
}

// NewHandler creates a new handler with the given translator
func NewHandler(translator core.Translator) *Handler {
	return &Handler{
		translator: translator,
	}
}

type translateParams struct {
	Text string `query:"text" json:"text" form:"text"`
	From string `query:"from" json:"from" form:"from"`
	To   string `query:"to" json:"to" form:"to"`
}

type textParams struct {
	Text     string `query:"text" json:"text" form:"text"`
	Language string `query:"language" json:"language" form:"language"`
	Format   string `query:"format" json:"format" form:"format"`
}

// Translate handles GET and POST /v1/translate
func (h *Handler) Translate(c echo.Context) error {
	var p translateParams
	if err := c.Bind(&p); err != nil {
		return handleError(c, core.NewValidationError("invalid request: "+err.Error()))
	}

	result, err := h.translator.Translate(c.Request().Context(), core.TranslationRequest{
		Text: p.Text,
		From: p.From,
		To:   p.To,
	})
	if err != nil {
		if result == nil {
			return handleError(c, err)
		}
		// The translation succeeded; only the cache write failed.
		slog.Warn("translation not cached", "error", err)
	}
	if !result.Success {
		return handleError(c, result.Failure)
	}

	return c.JSON(http.StatusOK, result)
}

// Detect handles GET and POST /v1/detect
func (h *Handler) Detect(c echo.Context) error {
	var p textParams
	if err := c.Bind(&p); err != nil {
		return handleError(c, core.NewValidationError("invalid request: "+err.Error()))
	}

	result, err := h.translator.DetectLanguage(c.Request().Context(), p.Text)
	if err != nil {
		return handleError(c, err)
	}
	if !result.Success {
		return handleError(c, result.Failure)
	}

	return c.JSON(http.StatusOK, result)
}

// BreakSentences handles GET and POST /v1/breaksentences
func (h *Handler) BreakSentences(c echo.Context) error {
	var p textParams
	if err := c.Bind(&p); err != nil {
		return handleError(c, core.NewValidationError("invalid request: "+err.Error()))
	}

	result, err := h.translator.BreakSentences(c.Request().Context(), p.Text, p.Language)
	if err != nil {
		return handleError(c, err)
	}
	if !result.Success {
		return handleError(c, result.Failure)
	}

	return c.JSON(http.StatusOK, result)
}

// Languages handles GET /v1/languages
func (h *Handler) Languages(c echo.Context) error {
	langs, err := h.translator.LanguagesSupported(c.Request().Context())
	if err != nil {
		return handleError(c, err)
	}

	return c.JSON(http.StatusOK, map[string][]string{"languages": langs})
}

// LanguageNames handles GET /v1/languages/names?locale=
// The upstream XML document is passed through unchanged.
func (h *Handler) LanguageNames(c echo.Context) error {
	locale := c.QueryParam("locale")
	if locale == "" {
		return handleError(c, core.NewValidationError("locale is required"))
	}

	doc, err := h.translator.LanguageNames(c.Request().Context(), locale)
	if err != nil {
		return handleError(c, err)
	}

	return c.Blob(http.StatusOK, echo.MIMEApplicationXMLCharsetUTF8, doc)
}

// Speak handles GET and POST /v1/speak by streaming the synthesized audio
func (h *Handler) Speak(c echo.Context) error {
	var p textParams
	if err := c.Bind(&p); err != nil {
		return handleError(c, core.NewValidationError("invalid request: "+err.Error()))
	}

	c.Response().Header().Set(echo.HeaderContentType, speechContentType(p.Format))

	_, err := h.translator.SpeakTo(c.Request().Context(), core.SpeechRequest{
		Text:     p.Text,
		Language: p.Language,
		Format:   p.Format,
	}, c.Response())
	if err != nil {
		if c.Response().Committed {
			// Can't return error after headers are sent, log it
			slog.Error("speech stream interrupted", "error", err)
			return nil
		}
		c.Response().Header().Del(echo.HeaderContentType)
		return handleError(c, err)
	}

	return nil
}

// Health handles GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// handleError converts translator errors to appropriate HTTP responses
func handleError(c echo.Context, err error) error {
	var translatorErr *core.Error
	if errors.As(err, &translatorErr) {
		return c.JSON(translatorErr.HTTPStatusCode(), translatorErr.ToJSON())
	}

	slog.Error("unexpected error", "error", err)

	// Fallback for unexpected errors
	return c.JSON(http.StatusInternalServerError, map[string]interface{}{
		"error": map[string]interface{}{
			"type":    "internal_error",
			"message": "an unexpected error occurred",
		},
	})
}
