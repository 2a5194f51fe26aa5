package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	redact(&out.FX.AccessKey)
	redact(&out.Redis.Password)
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy the venue map and its slices so callers cannot mutate the
	// original through the redacted copy.
	if cfg.Venues != nil {
		out.Venues = make(map[string]VenueConfig, len(cfg.Venues))
		for name, v := range cfg.Venues {
			vc := v
			vc.DenyList = append([]string(nil), v.DenyList...)
			vc.ExcludeSymbols = append([]string(nil), v.ExcludeSymbols...)
			out.Venues[name] = vc
		}
	}
	if cfg.Scan.Pairs != nil {
		out.Scan.Pairs = append([]VenuePair(nil), cfg.Scan.Pairs...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
