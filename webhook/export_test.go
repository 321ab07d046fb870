package webhook

import "github.com/stretchr/testify/mock"

// SetIDGenerator replaces the relay id generator so tests can force collisions
func (s *Service) SetIDGenerator(f func() string) {
	s.newID = f
}

// MatchWebhook creates a custom matcher for webhook arguments in mocks
func MatchWebhook(matcher func(Webhook) bool) interface{} {
	return mock.MatchedBy(matcher)
}
