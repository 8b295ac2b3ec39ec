package config

import "net/url"

// RedactURL masks the password in a PostgreSQL connection URL so the string
// is safe to print. If the URL cannot be parsed or carries no password, it
// is returned unchanged.
func RedactURL(raw string) string {
	if raw == "" {
		return ""
	}

	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}

	if u.User == nil {
		return raw
	}

	if _, hasPassword := u.User.Password(); !hasPassword {
		return raw
	}

	return u.Redacted()
}
