package routes

import (
	"fmt"
	"os"
	"strings"

	"github.com/marcelsud/webhook-relay/webhook"
	"gopkg.in/yaml.v3"
)

/* Loader reads relay mappings from a YAML seed file
 * Entries keep file order so imports are reproducible
 */

// Config represents the structure of a seed file
type Config struct {
	Webhooks []RouteConfig `yaml:"webhooks"`
}

// RouteConfig represents a single mapping in the YAML file
type RouteConfig struct {
	ID  string `yaml:"id"`
	URL string `yaml:"url"`
}

// Loader holds the loaded routes
type Loader struct {
	routes []*Route
	byID   map[string]*Route
}

// NewLoader creates a new route loader
func NewLoader() *Loader {
	return &Loader{
		byID: make(map[string]*Route),
	}
}

// Load reads and parses a seed file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading seed file: %w", err)
	}
	return l.Parse(data)
}

// Parse validates and adds the mappings in data
func (l *Loader) Parse(data []byte) error {
	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return fmt.Errorf("parsing seed YAML: %w", err)
	}

	for i, rc := range config.Webhooks {
		route := &Route{
			ID:  strings.TrimSpace(rc.ID),
			URL: strings.TrimSpace(rc.URL),
		}
		if err := route.Validate(); err != nil {
			return fmt.Errorf("validating entry %d: %w", i, err)
		}
		if _, exists := l.byID[route.ID]; exists {
			return fmt.Errorf("validating entry %d: duplicate id %s", i, route.ID)
		}
		l.byID[route.ID] = route
		l.routes = append(l.routes, route)
	}

	return nil
}

// List returns all loaded routes in file order
func (l *Loader) List() []*Route {
	routes := make([]*Route, len(l.routes))
	copy(routes, l.routes)
	return routes
}

// Webhooks returns the loaded routes as registry mappings
func (l *Loader) Webhooks() []webhook.Webhook {
	webhooks := make([]webhook.Webhook, 0, len(l.routes))
	for _, route := range l.routes {
		webhooks = append(webhooks, route.Webhook())
	}
	return webhooks
}
