package sources

import (
	"os"
	"path/filepath"
	"testing"
)

func writeDefinition(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write definition file: %v", err)
	}
}

func TestCatalogLoad(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "example.yml", `url: https://example.com/rss.xml
site_domain: example.com
method: feed
frequency_minutes: 15
active: true
`)
	writeDefinition(t, dir, "other.yml", `url: https://other.org/feed
active: false
`)

	catalog := NewCatalog(dir, 10)
	if err := catalog.Load(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if catalog.Count() != 2 {
		t.Fatalf("Expected 2 definitions, got: %d", catalog.Count())
	}

	def, ok := catalog.Get("example")
	if !ok {
		t.Fatal("Expected 'example' definition to be loaded")
	}
	if def.URL != "https://example.com/rss.xml" {
		t.Errorf("Unexpected URL: %s", def.URL)
	}
	if def.FrequencyMinutes != 15 {
		t.Errorf("Expected frequency 15, got: %d", def.FrequencyMinutes)
	}
	if def.Method != MethodFeed {
		t.Errorf("Expected method 'feed', got: %s", def.Method)
	}

	other, ok := catalog.Get("other")
	if !ok {
		t.Fatal("Expected 'other' definition to be loaded")
	}
	if other.Active {
		t.Error("Expected 'other' to be inactive")
	}
	if other.FrequencyMinutes != 10 {
		t.Errorf("Expected default frequency 10, got: %d", other.FrequencyMinutes)
	}
	if other.SiteDomain != "other.org" {
		t.Errorf("Expected site domain derived from URL, got: %s", other.SiteDomain)
	}
}

func TestCatalogActive(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "a.yml", "url: https://a.com/feed\nactive: true\n")
	writeDefinition(t, dir, "b.yml", "url: https://b.com/feed\nactive: false\n")

	catalog := NewCatalog(dir, 10)
	if err := catalog.Load(); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	active := catalog.Active()
	if len(active) != 1 {
		t.Fatalf("Expected 1 active definition, got: %d", len(active))
	}
	if active[0].Name != "a" {
		t.Errorf("Expected 'a', got: %s", active[0].Name)
	}
}

func TestCatalogRejectsInvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	writeDefinition(t, dir, "bad.yml", "url: not-a-url\n")

	catalog := NewCatalog(dir, 10)
	if err := catalog.Load(); err == nil {
		t.Error("Expected error for relative URL definition")
	}

	dir2 := t.TempDir()
	writeDefinition(t, dir2, "bad.yml", "url: https://a.com/feed\nmethod: carrier-pigeon\n")

	catalog2 := NewCatalog(dir2, 10)
	if err := catalog2.Load(); err == nil {
		t.Error("Expected error for unknown method")
	}
}

func TestCatalogMissingDirIsEmpty(t *testing.T) {
	catalog := NewCatalog(filepath.Join(t.TempDir(), "does-not-exist"), 10)
	if err := catalog.Load(); err != nil {
		t.Fatalf("Expected no error for missing dir, got: %v", err)
	}
	if catalog.Count() != 0 {
		t.Errorf("Expected empty catalog, got: %d", catalog.Count())
	}
}
