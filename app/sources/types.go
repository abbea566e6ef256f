package sources

// Definition describes one external feed endpoint. Definitions live as
// <name>.yml files in the sources directory and are synced into the database
// at startup; the database row owns the mutable fetch state afterwards.
type Definition struct {
	Name             string // derived from filename (without .yml extension)
	URL              string `yaml:"url"`
	SiteDomain       string `yaml:"site_domain"`
	Method           string `yaml:"method"`            // feed, sitemap, api
	FrequencyMinutes int    `yaml:"frequency_minutes"` // per-source fetch cadence
	Active           bool   `yaml:"active"`
}

const (
	MethodFeed    = "feed"
	MethodSitemap = "sitemap"
	MethodAPI     = "api"
)
