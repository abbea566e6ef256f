package sources

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

type Catalog struct {
	dir              string
	defaultFrequency int
	mu               sync.RWMutex
	defs             map[string]*Definition
}

func NewCatalog(dir string, defaultFrequency int) *Catalog {
	return &Catalog{
		dir:              dir,
		defaultFrequency: defaultFrequency,
		defs:             make(map[string]*Definition),
	}
}

func (c *Catalog) Load() error {
	if _, err := os.Stat(c.dir); os.IsNotExist(err) {
		return nil
	}

	files, err := filepath.Glob(filepath.Join(c.dir, "*.yml"))
	if err != nil {
		return fmt.Errorf("failed to find YML files: %w", err)
	}

	for _, file := range files {
		name := strings.TrimSuffix(filepath.Base(file), ".yml")

		def, err := c.loadDefinition(name, file)
		if err != nil {
			return fmt.Errorf("error loading %s: %w", file, err)
		}

		slog.Debug("Source definition loaded", "source", name, "active", def.Active, "frequency_minutes", def.FrequencyMinutes)
	}

	return nil
}

func (c *Catalog) loadDefinition(name, file string) (*Definition, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read definition file: %w", err)
	}

	def := &Definition{Method: MethodFeed, Active: true}
	if err := yaml.Unmarshal(data, def); err != nil {
		return nil, fmt.Errorf("failed to parse definition file: %w", err)
	}
	def.Name = name

	if def.FrequencyMinutes <= 0 {
		def.FrequencyMinutes = c.defaultFrequency
	}

	if err := c.validate(def); err != nil {
		return nil, fmt.Errorf("invalid definition %s: %w", file, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[name] = def

	return def, nil
}

func (c *Catalog) validate(def *Definition) error {
	if def.URL == "" {
		return fmt.Errorf("url is required")
	}

	u, err := url.Parse(def.URL)
	if err != nil || !u.IsAbs() || u.Hostname() == "" {
		return fmt.Errorf("url must be absolute: %q", def.URL)
	}

	switch def.Method {
	case MethodFeed, MethodSitemap, MethodAPI:
	default:
		return fmt.Errorf("unknown method %q", def.Method)
	}

	if def.SiteDomain == "" {
		def.SiteDomain = strings.ToLower(u.Hostname())
	}

	return nil
}

func (c *Catalog) Get(name string) (*Definition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	def, ok := c.defs[name]
	return def, ok
}

func (c *Catalog) All() []*Definition {
	c.mu.RLock()
	defer c.mu.RUnlock()

	defs := make([]*Definition, 0, len(c.defs))
	for _, def := range c.defs {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })

	return defs
}

func (c *Catalog) Active() []*Definition {
	defs := c.All()

	active := make([]*Definition, 0, len(defs))
	for _, def := range defs {
		if def.Active {
			active = append(active, def)
		}
	}

	return active
}

func (c *Catalog) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.defs)
}
