package module

import (
	"time"

	"timeline/internal/platform/config"
	"timeline/internal/services/posts/domain"
)

// Options controls the posts module
type Options struct {
	PublicBaseURL    string
	ListLimit        int
	MaxTextRunes     int
	StatementTimeout time.Duration

	// Media overrides where audio payloads live; nil keeps them in the repo
	Media domain.MediaStore
}

// FromConfig reads with TIMELINE_API_ prefix
func FromConfig(cfg config.Conf) Options {
	c := cfg.Prefix("TIMELINE_API_")
	return Options{
		PublicBaseURL:    c.MayURL("PUBLIC_URL", "http://localhost:8080").String(),
		ListLimit:        c.MayInt("LIST_LIMIT", 50),
		MaxTextRunes:     c.MayInt("MAX_TEXT_RUNES", 2000),
		StatementTimeout: c.MayDuration("STATEMENT_TIMEOUT", 5*time.Second),
	}
}

func (o Options) merge(overrides Options) Options {
	if overrides.PublicBaseURL != "" {
		o.PublicBaseURL = overrides.PublicBaseURL
	}
	if overrides.ListLimit != 0 {
		o.ListLimit = overrides.ListLimit
	}
	if overrides.MaxTextRunes != 0 {
		o.MaxTextRunes = overrides.MaxTextRunes
	}
	if overrides.StatementTimeout != 0 {
		o.StatementTimeout = overrides.StatementTimeout
	}
	if overrides.Media != nil {
		o.Media = overrides.Media
	}
	return o
}
