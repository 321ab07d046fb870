package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

/* Service represents the business logic layer
 * Uses pointer semantics as it's an API, not data
 */

// DefaultDestinationPrefix only accepts Discord webhook endpoints
const DefaultDestinationPrefix = "https://discord.com/api/webhooks/"

// maxIDAttempts bounds id regeneration when the store reports a collision
const maxIDAttempts = 3

// UseCase defines the business operations for the relay registry
type UseCase interface {
	Register(ctx context.Context, destinationURL string) (Registration, error)
	Resolve(ctx context.Context, id string) (string, error)
	Count(ctx context.Context) (int64, error)
	Import(ctx context.Context, webhooks []Webhook) (ImportResult, error)
}

// ImportResult reports what happened to each mapping passed to Import
type ImportResult struct {
	Imported int
	Skipped  map[string]error
}

type Service struct {
	Repo              Repository
	BaseURL           string
	DestinationPrefix string
	newID             func() string
}

// NewService creates a new registry service with dependency injection
func NewService(repo Repository, baseURL, destinationPrefix string) *Service {
	if destinationPrefix == "" {
		destinationPrefix = DefaultDestinationPrefix
	}
	return &Service{
		Repo:              repo,
		BaseURL:           strings.TrimSuffix(baseURL, "/"),
		DestinationPrefix: destinationPrefix,
		newID:             func() string { return uuid.New().String() },
	}
}

// ValidateDestination applies the destination prefix policy
func (s *Service) ValidateDestination(destinationURL string) error {
	if !strings.HasPrefix(destinationURL, s.DestinationPrefix) {
		return fmt.Errorf("%w: must start with %s", ErrInvalidDestination, s.DestinationPrefix)
	}
	return nil
}

// RelayURL builds the client-facing URL for a relay identifier
func (s *Service) RelayURL(id string) string {
	return s.BaseURL + "/relay/" + id
}

// Register validates the destination and stores it under a fresh relay identifier
func (s *Service) Register(ctx context.Context, destinationURL string) (Registration, error) {
	destinationURL = strings.TrimSpace(destinationURL)
	if err := s.ValidateDestination(destinationURL); err != nil {
		return Registration{}, err
	}

	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		wh := Webhook{
			ID:  s.newID(),
			URL: destinationURL,
		}
		err := s.Repo.Insert(ctx, wh)
		if errors.Is(err, ErrDuplicateID) {
			continue
		}
		if err != nil {
			return Registration{}, fmt.Errorf("inserting webhook: %w", err)
		}
		return Registration{Webhook: wh, RelayURL: s.RelayURL(wh.ID)}, nil
	}
	return Registration{}, fmt.Errorf("inserting webhook: %w", ErrDuplicateID)
}

// Resolve returns the destination URL registered for id
func (s *Service) Resolve(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", ErrNotFound
	}
	wh, err := s.Repo.Select(ctx, id)
	if err != nil {
		return "", fmt.Errorf("selecting webhook: %w", err)
	}
	return wh.URL, nil
}

// Count returns the number of registered mappings
func (s *Service) Count(ctx context.Context) (int64, error) {
	n, err := s.Repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting webhooks: %w", err)
	}
	return n, nil
}

/* Import stores mappings that already have identifiers, e.g. when moving
 * relay URLs from another deployment. Existing ids are left as they are.
 */
func (s *Service) Import(ctx context.Context, webhooks []Webhook) (ImportResult, error) {
	result := ImportResult{Skipped: make(map[string]error)}
	for i, wh := range webhooks {
		if wh.ID == "" {
			return result, fmt.Errorf("importing webhook: entry %d has no id", i)
		}
		if err := s.ValidateDestination(wh.URL); err != nil {
			result.Skipped[wh.ID] = err
			continue
		}
		err := s.Repo.Insert(ctx, wh)
		if errors.Is(err, ErrDuplicateID) {
			result.Skipped[wh.ID] = err
			continue
		}
		if err != nil {
			return result, fmt.Errorf("importing webhook %s: %w", wh.ID, err)
		}
		result.Imported++
	}
	return result, nil
}
