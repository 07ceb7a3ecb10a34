package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Built-in widget defaults used when neither the query string nor the
// environment provides a value.
const (
	DefaultTitle       = "Chat with us"
	DefaultGreeting    = "Hi there! How can I help you today?"
	DefaultSubtitle    = "We typically reply in a few seconds"
	DefaultPlaceholder = "Type your message..."

	DefaultSendCooldown     = time.Second
	DefaultFeedbackCooldown = time.Second
)

// DefaultSuggestions is the quick-reply list shown when none is configured.
func DefaultSuggestions() []string {
	return []string{
		"What can you help me with?",
		"How do I get started?",
		"Contact support",
	}
}

// DefaultAllowedOrigins is the fallback allow-list for parent-window messaging.
func DefaultAllowedOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost:5173"}
}

// WidgetEnv carries the environment-level fallbacks for widget configuration.
type WidgetEnv struct {
	WebhookURL       string
	Title            string
	Greeting         string
	Subtitle         string
	Placeholder      string
	PrimaryColor     string
	FontFamily       string
	LogoURL          string
	DisclaimerText   string
	Suggestions      string
	AllowedOrigins   string
	BorderRadius     string
	AutoOpen         bool
	ShowCloseButton  bool
	ForceFramed      bool
	SendCooldown     time.Duration
	FeedbackCooldown time.Duration
}

// DefaultWidgetEnv returns the fallbacks used when no environment is set.
func DefaultWidgetEnv() WidgetEnv {
	return WidgetEnv{
		ShowCloseButton:  true,
		SendCooldown:     DefaultSendCooldown,
		FeedbackCooldown: DefaultFeedbackCooldown,
	}
}

func loadWidgetEnv() (WidgetEnv, error) {
	env := DefaultWidgetEnv()

	autoOpen, err := parseBoolEnv("WIDGET_AUTO_OPEN", env.AutoOpen)
	if err != nil {
		return WidgetEnv{}, err
	}
	showClose, err := parseBoolEnv("WIDGET_SHOW_CLOSE_BUTTON", env.ShowCloseButton)
	if err != nil {
		return WidgetEnv{}, err
	}
	forceFramed, err := parseBoolEnv("WIDGET_FORCE_FRAMED", false)
	if err != nil {
		return WidgetEnv{}, err
	}
	sendCooldown, err := parseDurationEnv("WIDGET_SEND_COOLDOWN", env.SendCooldown)
	if err != nil {
		return WidgetEnv{}, err
	}
	feedbackCooldown, err := parseDurationEnv("WIDGET_FEEDBACK_COOLDOWN", env.FeedbackCooldown)
	if err != nil {
		return WidgetEnv{}, err
	}

	env.WebhookURL = strings.TrimSpace(os.Getenv("WEBHOOK_URL"))
	env.Title = strings.TrimSpace(os.Getenv("WIDGET_TITLE"))
	env.Greeting = strings.TrimSpace(os.Getenv("WIDGET_GREETING"))
	env.Subtitle = strings.TrimSpace(os.Getenv("WIDGET_SUBTITLE"))
	env.Placeholder = strings.TrimSpace(os.Getenv("WIDGET_PLACEHOLDER"))
	env.PrimaryColor = strings.TrimSpace(os.Getenv("WIDGET_PRIMARY_COLOR"))
	env.FontFamily = strings.TrimSpace(os.Getenv("WIDGET_FONT_FAMILY"))
	env.LogoURL = strings.TrimSpace(os.Getenv("WIDGET_LOGO_URL"))
	env.DisclaimerText = strings.TrimSpace(os.Getenv("WIDGET_DISCLAIMER_TEXT"))
	env.Suggestions = strings.TrimSpace(os.Getenv("WIDGET_SUGGESTIONS"))
	env.AllowedOrigins = strings.TrimSpace(os.Getenv("ALLOWED_ORIGINS"))
	env.BorderRadius = strings.TrimSpace(os.Getenv("WIDGET_BORDER_RADIUS"))
	env.AutoOpen = autoOpen
	env.ShowCloseButton = showClose
	env.ForceFramed = forceFramed
	env.SendCooldown = sendCooldown
	env.FeedbackCooldown = feedbackCooldown
	return env, nil
}

// Widget is the immutable per-page widget configuration.
type Widget struct {
	WebhookURL          string   `json:"webhookUrl"`
	Title               string   `json:"title"`
	Greeting            string   `json:"greeting"`
	Subtitle            string   `json:"subtitle"`
	Placeholder         string   `json:"placeholder"`
	Suggestions         []string `json:"suggestions"`
	SuggestionsDisabled bool     `json:"suggestionsDisabled"`
	PrimaryColor        string   `json:"primaryColor,omitempty"`
	FontFamily          string   `json:"fontFamily,omitempty"`
	BorderRadius        *int     `json:"borderRadius"`
	LogoURL             string   `json:"logoUrl,omitempty"`
	AutoOpen            bool     `json:"autoOpen"`
	ShowCloseButton     bool     `json:"showCloseButton"`
	DisclaimerText      string   `json:"disclaimerText,omitempty"`
	AllowedOrigins      []string `json:"allowedOrigins"`
}

// HasWebhook reports whether a webhook endpoint was resolved.
func (w Widget) HasWebhook() bool {
	return w.WebhookURL != ""
}

// AllowsOrigin reports whether origin is in the allow-list.
func (w Widget) AllowsOrigin(origin string) bool {
	for _, allowed := range w.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

// ResolveWidget derives the widget configuration from page query parameters,
// falling back to env and then to built-in defaults. Malformed values never
// fail; they degrade to the fallback.
func ResolveWidget(query url.Values, env WidgetEnv) Widget {
	w := Widget{
		WebhookURL:      firstNonEmpty(query.Get("webhookUrl"), env.WebhookURL),
		Title:           firstNonEmpty(query.Get("title"), env.Title, DefaultTitle),
		Greeting:        firstNonEmpty(query.Get("greeting"), env.Greeting, DefaultGreeting),
		Subtitle:        firstNonEmpty(query.Get("subtitle"), env.Subtitle, DefaultSubtitle),
		Placeholder:     firstNonEmpty(query.Get("placeholder"), env.Placeholder, DefaultPlaceholder),
		PrimaryColor:    firstNonEmpty(query.Get("primaryColor"), env.PrimaryColor),
		FontFamily:      firstNonEmpty(query.Get("fontFamily"), env.FontFamily),
		LogoURL:         firstNonEmpty(query.Get("logoUrl"), env.LogoURL),
		DisclaimerText:  firstNonEmpty(query.Get("disclaimerText"), env.DisclaimerText),
		AutoOpen:        resolveBool(query, "autoOpen", env.AutoOpen),
		ShowCloseButton: resolveBool(query, "showCloseButton", env.ShowCloseButton),
	}

	w.Suggestions, w.SuggestionsDisabled = resolveSuggestions(firstNonEmpty(query.Get("suggestions"), env.Suggestions))
	w.BorderRadius = parseOptionalInt(firstNonEmpty(query.Get("borderRadius"), env.BorderRadius))

	origins := SplitList(query.Get("allowedOrigins"))
	if len(origins) == 0 {
		origins = SplitList(env.AllowedOrigins)
	}
	if len(origins) == 0 {
		origins = DefaultAllowedOrigins()
	}
	w.AllowedOrigins = origins

	return w
}

// WithPresentation overlays the presentational fields resolved from query on
// w. Webhook, origins, autoOpen and showCloseButton stay as w has them since
// they drive the running session.
func (w Widget) WithPresentation(query url.Values, env WidgetEnv) Widget {
	p := ResolveWidget(query, env)
	w.Title = p.Title
	w.Greeting = p.Greeting
	w.Subtitle = p.Subtitle
	w.Placeholder = p.Placeholder
	w.Suggestions = p.Suggestions
	w.SuggestionsDisabled = p.SuggestionsDisabled
	w.PrimaryColor = p.PrimaryColor
	w.FontFamily = p.FontFamily
	w.BorderRadius = p.BorderRadius
	w.LogoURL = p.LogoURL
	w.DisclaimerText = p.DisclaimerText
	return w
}

func resolveSuggestions(raw string) ([]string, bool) {
	if raw == "false" {
		return nil, true
	}
	if items := SplitList(raw); len(items) > 0 {
		return items, false
	}
	return DefaultSuggestions(), false
}

func resolveBool(query url.Values, key string, fallback bool) bool {
	switch strings.TrimSpace(query.Get(key)) {
	case "true":
		return true
	case "false":
		return false
	default:
		return fallback
	}
}

// parseOptionalInt reads a leading integer, so "12px" yields 12.
func parseOptionalInt(raw string) *int {
	raw = strings.TrimSpace(raw)
	end := 0
	if end < len(raw) && (raw[end] == '-' || raw[end] == '+') {
		end++
	}
	digits := end
	for end < len(raw) && raw[end] >= '0' && raw[end] <= '9' {
		end++
	}
	if end == digits {
		return nil
	}
	val, err := strconv.Atoi(raw[:end])
	if err != nil {
		return nil
	}
	return &val
}

// SplitList splits a comma separated value, trimming entries and dropping empties.
func SplitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
