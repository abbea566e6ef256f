package article

import (
	"errors"
	"net/url"
	"strings"
)

// ErrInvalidURL marks an item link that cannot be normalized into a usable
// canonical URL. Items carrying it are rejected, not retried.
var ErrInvalidURL = errors.New("invalid article URL")

// Query parameters that identify a visitor rather than a document. Stripping
// them keeps syndicated copies of the same link on one canonical URL.
var trackingParams = map[string]bool{
	"fbclid":      true,
	"gclid":       true,
	"igshid":      true,
	"mc_cid":      true,
	"mc_eid":      true,
	"ref":         true,
	"yclid":       true,
	"_hsenc":      true,
	"_hsmi":       true,
	"mkt_tok":     true,
	"oly_anon_id": true,
	"oly_enc_id":  true,
}

func isTrackingParam(key string) bool {
	k := strings.ToLower(key)
	if k == "utm" || strings.HasPrefix(k, "utm_") {
		return true
	}
	return trackingParams[k]
}

// Canonicalize normalizes a raw article link into the canonical URL used as
// the global dedup key, and extracts its domain. Relative links are resolved
// against baseURL (typically the source's feed or site URL).
func Canonicalize(rawURL, baseURL string) (string, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", "", ErrInvalidURL
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", ErrInvalidURL
	}

	if !u.IsAbs() {
		if baseURL == "" {
			return "", "", ErrInvalidURL
		}
		base, err := url.Parse(baseURL)
		if err != nil || !base.IsAbs() {
			return "", "", ErrInvalidURL
		}
		u = base.ResolveReference(u)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "", "", ErrInvalidURL
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", "", ErrInvalidURL
	}

	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.RawFragment = ""
	u.User = nil

	query := u.Query()
	for key := range query {
		if isTrackingParam(key) {
			query.Del(key)
		}
	}
	u.RawQuery = query.Encode()

	return u.String(), host, nil
}
