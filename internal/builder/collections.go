package builder

import (
	"fmt"

	"github.com/google/uuid"

	"wedding-builder/internal/models"
)

// SetLocations replaces the locations. Items without an id get one and order
// follows slice position.
func (s *Store) SetLocations(items []models.Location) {
	items = withIDs(items, func(l *models.Location) *string { return &l.ID })
	s.mutate(FieldLocations, func(d *models.Draft) { d.Locations = models.OrderLocations(items) })
}

// AddLocation appends a location and returns its id
func (s *Store) AddLocation(l models.Location) string {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	s.mutate(FieldLocations, func(d *models.Draft) {
		d.Locations = models.OrderLocations(append(d.Locations, l))
	})
	return l.ID
}

// RemoveLocation deletes the location with id, reporting whether it existed
func (s *Store) RemoveLocation(id string) bool {
	return s.update(FieldLocations, func(d *models.Draft) error {
		items, ok := remove(d.Locations, id, locationID)
		if !ok {
			return errItemNotFound
		}
		d.Locations = models.OrderLocations(items)
		return nil
	}) == nil
}

// MoveLocation moves the location with id to position to
func (s *Store) MoveLocation(id string, to int) error {
	return s.update(FieldLocations, func(d *models.Draft) error {
		items, err := move(d.Locations, id, to, locationID)
		if err != nil {
			return err
		}
		d.Locations = models.OrderLocations(items)
		return nil
	})
}

// SetTimeline replaces the programme
func (s *Store) SetTimeline(items []models.TimelineItem) {
	items = withIDs(items, func(t *models.TimelineItem) *string { return &t.ID })
	s.mutate(FieldTimeline, func(d *models.Draft) { d.Timeline = models.OrderTimeline(items) })
}

// AddTimelineItem appends a programme item and returns its id
func (s *Store) AddTimelineItem(t models.TimelineItem) string {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	s.mutate(FieldTimeline, func(d *models.Draft) {
		d.Timeline = models.OrderTimeline(append(d.Timeline, t))
	})
	return t.ID
}

// RemoveTimelineItem deletes the programme item with id
func (s *Store) RemoveTimelineItem(id string) bool {
	return s.update(FieldTimeline, func(d *models.Draft) error {
		items, ok := remove(d.Timeline, id, timelineID)
		if !ok {
			return errItemNotFound
		}
		d.Timeline = models.OrderTimeline(items)
		return nil
	}) == nil
}

// MoveTimelineItem moves the programme item with id to position to
func (s *Store) MoveTimelineItem(id string, to int) error {
	return s.update(FieldTimeline, func(d *models.Draft) error {
		items, err := move(d.Timeline, id, to, timelineID)
		if err != nil {
			return err
		}
		d.Timeline = models.OrderTimeline(items)
		return nil
	})
}

// SetFAQItems replaces the FAQ
func (s *Store) SetFAQItems(items []models.FAQItem) {
	items = withIDs(items, func(f *models.FAQItem) *string { return &f.ID })
	s.mutate(FieldFAQItems, func(d *models.Draft) { d.FAQItems = models.OrderFAQItems(items) })
}

// AddFAQItem appends a question and returns its id
func (s *Store) AddFAQItem(f models.FAQItem) string {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	s.mutate(FieldFAQItems, func(d *models.Draft) {
		d.FAQItems = models.OrderFAQItems(append(d.FAQItems, f))
	})
	return f.ID
}

// RemoveFAQItem deletes the question with id
func (s *Store) RemoveFAQItem(id string) bool {
	return s.update(FieldFAQItems, func(d *models.Draft) error {
		items, ok := remove(d.FAQItems, id, faqID)
		if !ok {
			return errItemNotFound
		}
		d.FAQItems = models.OrderFAQItems(items)
		return nil
	}) == nil
}

// MoveFAQItem moves the question with id to position to
func (s *Store) MoveFAQItem(id string, to int) error {
	return s.update(FieldFAQItems, func(d *models.Draft) error {
		items, err := move(d.FAQItems, id, to, faqID)
		if err != nil {
			return err
		}
		d.FAQItems = models.OrderFAQItems(items)
		return nil
	})
}

var errItemNotFound = fmt.Errorf("%w: no item with that id", ErrInvalidValue)

// update is mutate for changes that can fail. Nothing is marked dirty when fn
// returns an error.
func (s *Store) update(field Field, fn func(d *models.Draft) error) error {
	s.mu.Lock()
	probe := s.draft.Clone()
	err := fn(&probe)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.mutate(field, func(d *models.Draft) {
		// re-run against the live draft; a concurrent change may have landed
		if err := fn(d); err != nil {
			s.log.Debug().Err(err).Str("field", string(field)).Msg("Collection change no longer applies")
		}
	})
	return nil
}

func locationID(l models.Location) string     { return l.ID }
func timelineID(t models.TimelineItem) string { return t.ID }
func faqID(f models.FAQItem) string           { return f.ID }

func withIDs[T any](items []T, id func(*T) *string) []T {
	out := make([]T, len(items))
	copy(out, items)
	for i := range out {
		if p := id(&out[i]); *p == "" {
			*p = uuid.NewString()
		}
	}
	return out
}

func indexOf[T any](items []T, id string, idOf func(T) string) int {
	for i, item := range items {
		if idOf(item) == id {
			return i
		}
	}
	return -1
}

func remove[T any](items []T, id string, idOf func(T) string) ([]T, bool) {
	i := indexOf(items, id, idOf)
	if i < 0 {
		return items, false
	}
	out := make([]T, 0, len(items)-1)
	out = append(out, items[:i]...)
	return append(out, items[i+1:]...), true
}

func move[T any](items []T, id string, to int, idOf func(T) string) ([]T, error) {
	from := indexOf(items, id, idOf)
	if from < 0 {
		return nil, errItemNotFound
	}
	if to < 0 || to >= len(items) {
		return nil, fmt.Errorf("%w: position %d out of range", ErrInvalidValue, to)
	}
	out := make([]T, 0, len(items))
	item := items[from]
	for i, it := range items {
		if i != from {
			out = append(out, it)
		}
	}
	out = append(out[:to], append([]T{item}, out[to:]...)...)
	return out, nil
}
