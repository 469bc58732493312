// Package contacts is the service adapter for the contacts web
// service. The service only exposes a full-book startup listing, so
// the adapter fetches once per session and answers lookups from the
// cached book.
package contacts

import (
	"context"
	"fmt"
	"sync"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/services"
)

const startupPath = "/co/startup"

// startupResponse is the /co/startup payload.
type startupResponse struct {
	Contacts []contactRecord `json:"contacts"`
	MeCardID string          `json:"meCardId"`
}

type contactRecord struct {
	ContactID   string        `json:"contactId"`
	FirstName   string        `json:"firstName"`
	LastName    string        `json:"lastName"`
	CompanyName string        `json:"companyName"`
	Emails      []fieldRecord `json:"emailAddresses"`
	Phones      []fieldRecord `json:"phones"`
	Etag        string        `json:"etag"`
}

type fieldRecord struct {
	Field string `json:"field"`
	Label string `json:"label"`
}

// Service is the contacts service adapter.
type Service struct {
	caller *services.Caller

	mu       sync.RWMutex
	contacts []domain.Contact
	byID     map[string]domain.Contact
	meCardID string
	loaded   bool
	// lastCount backs the spurious-empty-listing check.
	lastCount int
}

// NewService creates the contacts adapter on top of a caller for the
// contacts descriptor.
func NewService(caller *services.Caller) *Service {
	return &Service{caller: caller, byID: make(map[string]domain.Contact)}
}

// Refresh re-fetches the address book. A 200 listing that is empty
// while a previous listing in this session was not gets one retry,
// then domain.ErrInconsistentListing.
func (s *Service) Refresh(ctx context.Context) error {
	data, err := s.fetchStartup(ctx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	previous := s.lastCount
	s.mu.RUnlock()

	if previous > 0 && len(data.Contacts) == 0 {
		logger.Warn("contacts: listing went %d -> 0 entries, retrying once", previous)
		data, err = s.fetchStartup(ctx)
		if err != nil {
			return err
		}
		if len(data.Contacts) == 0 {
			return fmt.Errorf("contacts listing: %w", domain.ErrInconsistentListing)
		}
	}

	contacts := make([]domain.Contact, 0, len(data.Contacts))
	byID := make(map[string]domain.Contact, len(data.Contacts))
	for _, rec := range data.Contacts {
		c := toDomain(rec)
		contacts = append(contacts, c)
		byID[c.ID] = c
	}

	s.mu.Lock()
	s.contacts = contacts
	s.byID = byID
	s.meCardID = data.MeCardID
	s.loaded = true
	s.lastCount = len(contacts)
	s.mu.Unlock()
	return nil
}

// All returns the address book in service order, fetching on first
// use.
func (s *Service) All(ctx context.Context) ([]domain.Contact, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Contact, len(s.contacts))
	copy(out, s.contacts)
	return out, nil
}

// ByID looks up one contact by identifier.
func (s *Service) ByID(ctx context.Context, id string) (domain.Contact, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Contact{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return domain.Contact{}, fmt.Errorf("contact %q: %w", id, domain.ErrNotFound)
	}
	return c, nil
}

// Me returns the account owner's own card, when the service reports
// one.
func (s *Service) Me(ctx context.Context) (domain.Contact, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return domain.Contact{}, err
	}

	s.mu.RLock()
	meCardID := s.meCardID
	s.mu.RUnlock()

	if meCardID == "" {
		return domain.Contact{}, fmt.Errorf("no me-card on this account: %w", domain.ErrNotFound)
	}
	return s.ByID(ctx, meCardID)
}

func (s *Service) ensureLoaded(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.Refresh(ctx)
}

func (s *Service) fetchStartup(ctx context.Context) (*startupResponse, error) {
	body, err := s.caller.Do(ctx, services.Call{Method: "GET", Path: startupPath})
	if err != nil {
		return nil, err
	}

	var data startupResponse
	if err := services.DecodeJSON(body, &data); err != nil {
		return nil, fmt.Errorf("contacts startup: %w", err)
	}
	return &data, nil
}

func toDomain(rec contactRecord) domain.Contact {
	return domain.Contact{
		ID:        rec.ContactID,
		FirstName: rec.FirstName,
		LastName:  rec.LastName,
		Company:   rec.CompanyName,
		Emails:    fieldValues(rec.Emails),
		Phones:    fieldValues(rec.Phones),
		Etag:      rec.Etag,
	}
}

func fieldValues(fields []fieldRecord) []string {
	if len(fields) == 0 {
		return nil
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f.Field)
	}
	return out
}
