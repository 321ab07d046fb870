package routes

import (
	"fmt"
	"strings"

	"github.com/marcelsud/webhook-relay/webhook"
)

/* Route is one relay mapping from a seed file
 * The identifier is kept as-is so relay URLs handed out by another
 * deployment keep working after an import
 */
type Route struct {
	ID  string
	URL string
}

// Validate checks the entry is usable as a relay path segment and destination
func (r *Route) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id cannot be empty")
	}
	if strings.ContainsAny(r.ID, "/?# \t") {
		return fmt.Errorf("id %q is not a valid path segment", r.ID)
	}
	if r.URL == "" {
		return fmt.Errorf("url cannot be empty for route %s", r.ID)
	}
	return nil
}

// Webhook converts the entry into a registry mapping
func (r *Route) Webhook() webhook.Webhook {
	return webhook.Webhook{ID: r.ID, URL: r.URL}
}
