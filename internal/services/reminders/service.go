// Package reminders is the service adapter for the reminders web
// service: listing collections and items, creating and updating
// reminders, and the batch complete/move operations. It keeps a local
// cache of the last listing so item lookups and due-date queries do
// not re-fetch.
package reminders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/altocloud-labs/icloud-cli/internal/core/domain"
	"github.com/altocloud-labs/icloud-cli/internal/logger"
	"github.com/altocloud-labs/icloud-cli/internal/services"
)

const (
	startupPath = "/rd/startup"
	tasksPath   = "/rd/reminders/tasks"
	batchPath   = "/rd/reminders/tasks/batch"
)

// NewReminder is the input for Create.
type NewReminder struct {
	Title       string
	Description string
	// Collection is the target list title; empty selects the first
	// list.
	Collection string
	Priority   int
	Tags       []string
	DueDate    *time.Time
}

// Patch is a partial update; nil fields are left unchanged.
type Patch struct {
	Title       *string
	Description *string
	Priority    *int
	// Tags replaces the tag set when non-nil.
	Tags       []string
	DueDate    *time.Time
	Collection *string
}

// Service is the reminders service adapter.
type Service struct {
	caller *services.Caller
	now    func() time.Time

	mu          sync.RWMutex
	collections []domain.ReminderList
	byGUID      map[string]domain.Reminder
	// order holds listing order per list title.
	order map[string][]string
	// lastCount remembers the previous listing's collection count for
	// the spurious-empty-response check.
	lastCount int
	loaded    bool
}

// NewService creates the reminders adapter on top of a caller for the
// reminders descriptor.
func NewService(caller *services.Caller) *Service {
	return &Service{
		caller: caller,
		now:    time.Now,
		byGUID: make(map[string]domain.Reminder),
		order:  make(map[string][]string),
	}
}

// Refresh re-fetches the full listing and replaces the local cache.
// A 200 response whose collection set is empty while the previous
// listing in this session was non-empty is treated as the known
// spurious-empty failure: one immediate retry, then
// domain.ErrInconsistentListing.
func (s *Service) Refresh(ctx context.Context) error {
	data, err := s.fetchStartup(ctx)
	if err != nil {
		return err
	}

	s.mu.RLock()
	previous := s.lastCount
	s.mu.RUnlock()

	if previous > 0 && len(data.Collections) == 0 {
		logger.Warn("reminders: listing went %d -> 0 collections, retrying once", previous)
		data, err = s.fetchStartup(ctx)
		if err != nil {
			return err
		}
		if len(data.Collections) == 0 {
			return fmt.Errorf("reminders listing: %w", domain.ErrInconsistentListing)
		}
	}

	s.replaceCache(data)
	return nil
}

// Lists returns the reminder collections, fetching on first use.
func (s *Service) Lists(ctx context.Context) ([]domain.ReminderList, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.ReminderList, len(s.collections))
	copy(out, s.collections)
	return out, nil
}

// ByCollection returns the reminders of one list, in listing order.
func (s *Service) ByCollection(ctx context.Context, title string) ([]domain.Reminder, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	guids, ok := s.order[title]
	if !ok {
		return nil, fmt.Errorf("reminder list %q: %w", title, domain.ErrNotFound)
	}
	out := make([]domain.Reminder, 0, len(guids))
	for _, g := range guids {
		out = append(out, s.byGUID[g])
	}
	return out, nil
}

// Upcoming returns reminders due within the next days, grouped by list
// title.
func (s *Service) Upcoming(ctx context.Context, days int) (map[string][]domain.Reminder, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	from := s.now()
	to := from.AddDate(0, 0, days)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]domain.Reminder)
	for title, guids := range s.order {
		for _, g := range guids {
			r := s.byGUID[g]
			if r.DueDate == nil {
				continue
			}
			if r.DueDate.Before(from) || r.DueDate.After(to) {
				continue
			}
			out[title] = append(out[title], r)
		}
	}
	return out, nil
}

// Reminder looks up a cached reminder by identifier.
func (s *Service) Reminder(guid string) (domain.Reminder, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byGUID[guid]
	return r, ok
}

// Create adds a new reminder and returns its identifier.
func (s *Service) Create(ctx context.Context, in NewReminder) (string, error) {
	if in.Title == "" {
		return "", fmt.Errorf("reminder title required: %w", domain.ErrInvalidInput)
	}
	if err := s.ensureLoaded(ctx); err != nil {
		return "", err
	}

	list, err := s.resolveList(in.Collection)
	if err != nil {
		return "", err
	}

	guid := uuid.NewString()
	now := s.now()
	fields := taskFields{
		GUID:                guid,
		Title:               in.Title,
		Description:         in.Description,
		PGuid:               list.GUID,
		Priority:            in.Priority,
		Tags:                tagsOrEmpty(in.Tags),
		CreatedDate:         encodeDate(now),
		CreatedDateExtended: now.UnixMilli(),
		LastModifiedDate:    now.UnixMilli(),
		Alarms:              []any{},
		SubtaskOrder:        []any{},
		Attachments:         []any{},
	}
	if in.DueDate != nil {
		fields.DueDate = encodeDate(*in.DueDate)
		fields.DueDateTz = "UTC"
	}

	if _, err := s.caller.Do(ctx, services.Call{
		Method: "POST",
		Path:   tasksPath,
		Body:   taskEnvelope{Fields: fields},
	}); err != nil {
		return "", err
	}

	s.mu.Lock()
	s.byGUID[guid] = domain.Reminder{
		GUID:        guid,
		Title:       in.Title,
		Description: in.Description,
		ListGUID:    list.GUID,
		ListTitle:   list.Title,
		Priority:    in.Priority,
		Tags:        in.Tags,
		DueDate:     in.DueDate,
	}
	s.order[list.Title] = append(s.order[list.Title], guid)
	s.mu.Unlock()

	return guid, nil
}

// Update applies a partial update to an existing reminder.
func (s *Service) Update(ctx context.Context, guid string, patch Patch) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	current, ok := s.byGUID[guid]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("reminder %q: %w", guid, domain.ErrNotFound)
	}

	target := domain.ReminderList{GUID: current.ListGUID, Title: current.ListTitle}
	if patch.Collection != nil {
		list, err := s.resolveList(*patch.Collection)
		if err != nil {
			return err
		}
		target = list
	}

	updated := current
	updated.ListGUID = target.GUID
	updated.ListTitle = target.Title
	if patch.Title != nil {
		updated.Title = *patch.Title
	}
	if patch.Description != nil {
		updated.Description = *patch.Description
	}
	if patch.Priority != nil {
		updated.Priority = *patch.Priority
	}
	if patch.Tags != nil {
		updated.Tags = patch.Tags
	}
	if patch.DueDate != nil {
		updated.DueDate = patch.DueDate
	}

	fields := taskFields{
		GUID:             guid,
		Title:            updated.Title,
		Description:      updated.Description,
		PGuid:            updated.ListGUID,
		Priority:         updated.Priority,
		Tags:             tagsOrEmpty(updated.Tags),
		LastModifiedDate: s.now().UnixMilli(),
		Alarms:           []any{},
		SubtaskOrder:     []any{},
		Attachments:      []any{},
	}
	if updated.DueDate != nil {
		fields.DueDate = encodeDate(*updated.DueDate)
		fields.DueDateTz = "UTC"
	}

	if err := s.batch(ctx, []batchOperation{{Type: opUpdate, Data: taskEnvelope{Fields: fields}}}); err != nil {
		return err
	}

	s.mu.Lock()
	s.relocate(current, updated)
	s.mu.Unlock()
	return nil
}

// Complete marks a reminder completed on the service. The local copy
// is dropped from its list; the web service never reports completion
// state back, so there is nothing to keep in the listing.
func (s *Service) Complete(ctx context.Context, guid string) error {
	if err := s.ensureLoaded(ctx); err != nil {
		return err
	}

	s.mu.RLock()
	current, ok := s.byGUID[guid]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("reminder %q: %w", guid, domain.ErrNotFound)
	}

	if err := s.batch(ctx, []batchOperation{s.completeOp(current)}); err != nil {
		return err
	}

	s.mu.Lock()
	s.remove(current)
	s.mu.Unlock()
	return nil
}

// Move transfers a reminder to another list.
func (s *Service) Move(ctx context.Context, guid, targetList string) error {
	return s.Update(ctx, guid, Patch{Collection: &targetList})
}

// BatchComplete completes multiple reminders in one request. The
// result maps each input identifier to whether it was completed;
// unknown identifiers map to false without failing the batch.
func (s *Service) BatchComplete(ctx context.Context, guids []string) (map[string]bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(guids))
	var ops []batchOperation
	var known []domain.Reminder

	s.mu.RLock()
	for _, g := range guids {
		current, ok := s.byGUID[g]
		if !ok {
			results[g] = false
			continue
		}
		ops = append(ops, s.completeOp(current))
		known = append(known, current)
	}
	s.mu.RUnlock()

	if len(ops) == 0 {
		return results, nil
	}

	if err := s.batch(ctx, ops); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, r := range known {
		s.remove(r)
		results[r.GUID] = true
	}
	s.mu.Unlock()
	return results, nil
}

// BatchMove moves multiple reminders to another list in one request.
func (s *Service) BatchMove(ctx context.Context, guids []string, targetList string) (map[string]bool, error) {
	if err := s.ensureLoaded(ctx); err != nil {
		return nil, err
	}

	list, err := s.resolveList(targetList)
	if err != nil {
		return nil, err
	}

	results := make(map[string]bool, len(guids))
	var ops []batchOperation
	var moved []domain.Reminder

	s.mu.RLock()
	for _, g := range guids {
		current, ok := s.byGUID[g]
		if !ok {
			results[g] = false
			continue
		}
		fields := taskFields{
			GUID:             current.GUID,
			Title:            current.Title,
			Description:      current.Description,
			PGuid:            list.GUID,
			Priority:         current.Priority,
			Tags:             tagsOrEmpty(current.Tags),
			LastModifiedDate: s.now().UnixMilli(),
			Alarms:           []any{},
			SubtaskOrder:     []any{},
			Attachments:      []any{},
		}
		ops = append(ops, batchOperation{Type: opUpdate, Data: taskEnvelope{Fields: fields}})
		moved = append(moved, current)
	}
	s.mu.RUnlock()

	if len(ops) == 0 {
		return results, nil
	}

	if err := s.batch(ctx, ops); err != nil {
		return nil, err
	}

	s.mu.Lock()
	for _, r := range moved {
		updated := r
		updated.ListGUID = list.GUID
		updated.ListTitle = list.Title
		s.relocate(r, updated)
		results[r.GUID] = true
	}
	s.mu.Unlock()
	return results, nil
}

func (s *Service) fetchStartup(ctx context.Context) (*startupResponse, error) {
	body, err := s.caller.Do(ctx, services.Call{Method: "GET", Path: startupPath})
	if err != nil {
		return nil, err
	}

	var data startupResponse
	if err := services.DecodeJSON(body, &data); err != nil {
		return nil, fmt.Errorf("reminders startup: %w", err)
	}
	return &data, nil
}

func (s *Service) replaceCache(data *startupResponse) {
	titleByGUID := make(map[string]string, len(data.Collections))
	collections := make([]domain.ReminderList, 0, len(data.Collections))
	for _, c := range data.Collections {
		collections = append(collections, domain.ReminderList{GUID: c.GUID, Title: c.Title, Ctag: c.Ctag})
		titleByGUID[c.GUID] = c.Title
	}

	byGUID := make(map[string]domain.Reminder, len(data.Reminders))
	order := make(map[string][]string, len(data.Collections))
	for _, c := range collections {
		order[c.Title] = nil
	}
	for _, rec := range data.Reminders {
		title, ok := titleByGUID[rec.PGuid]
		if !ok {
			// Orphaned item; its list was not in the listing.
			continue
		}
		byGUID[rec.GUID] = toDomain(rec, title)
		order[title] = append(order[title], rec.GUID)
	}

	s.mu.Lock()
	s.collections = collections
	s.byGUID = byGUID
	s.order = order
	s.lastCount = len(collections)
	s.loaded = true
	s.mu.Unlock()
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

func (s *Service) resolveList(title string) (domain.ReminderList, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.collections) == 0 {
		return domain.ReminderList{}, fmt.Errorf("no reminder lists: %w", domain.ErrNotFound)
	}
	if title == "" {
		return s.collections[0], nil
	}
	for _, c := range s.collections {
		if c.Title == title {
			return c, nil
		}
	}
	return domain.ReminderList{}, fmt.Errorf("reminder list %q: %w", title, domain.ErrNotFound)
}

func (s *Service) completeOp(r domain.Reminder) batchOperation {
	now := s.now().UnixMilli()
	return batchOperation{
		Type: opComplete,
		Data: taskEnvelope{Fields: taskFields{
			GUID:             r.GUID,
			Title:            r.Title,
			PGuid:            r.ListGUID,
			Completed:        true,
			CompletedDate:    &now,
			LastModifiedDate: now,
			Tags:             tagsOrEmpty(r.Tags),
			Alarms:           []any{},
			SubtaskOrder:     []any{},
			Attachments:      []any{},
		}},
	}
}

func (s *Service) batch(ctx context.Context, ops []batchOperation) error {
	_, err := s.caller.Do(ctx, services.Call{
		Method: "POST",
		Path:   batchPath,
		Body:   batchRequest{Operations: ops},
	})
	return err
}

// remove drops a reminder from the cache (caller holds the lock).
func (s *Service) remove(r domain.Reminder) {
	delete(s.byGUID, r.GUID)
	s.order[r.ListTitle] = withoutGUID(s.order[r.ListTitle], r.GUID)
}

// relocate replaces a cached reminder, moving it between lists when
// the parent changed (caller holds the lock).
func (s *Service) relocate(old, updated domain.Reminder) {
	s.byGUID[updated.GUID] = updated
	if old.ListTitle != updated.ListTitle {
		s.order[old.ListTitle] = withoutGUID(s.order[old.ListTitle], old.GUID)
		s.order[updated.ListTitle] = append(s.order[updated.ListTitle], updated.GUID)
	}
}

func withoutGUID(guids []string, guid string) []string {
	out := guids[:0]
	for _, g := range guids {
		if g != guid {
			out = append(out, g)
		}
	}
	return out
}

func tagsOrEmpty(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
