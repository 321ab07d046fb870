package webhook

import "errors"

/* Webhook maps an opaque relay identifier to the real destination URL
 * Uses value semantics as it represents data, not behavior
 * A Webhook is created once and never updated
 */
type Webhook struct {
	ID  string
	URL string
}

// Registration is what a caller receives after registering a destination
type Registration struct {
	Webhook
	RelayURL string
}

var (
	// ErrNotFound is returned when no mapping exists for a relay identifier
	ErrNotFound = errors.New("webhook not found")

	// ErrInvalidDestination is returned when a destination URL fails the prefix policy
	ErrInvalidDestination = errors.New("invalid destination url")

	// ErrDuplicateID is returned by a Writer when the identifier is already taken
	ErrDuplicateID = errors.New("duplicate webhook id")
)
