package builder

import (
	"encoding/json"
	"fmt"

	"wedding-builder/internal/models"
)

// MirrorKey is the key the draft is kept under in local storage
const MirrorKey = "wedding-builder:draft"

const mirrorVersion = 1

// Mirror is local key-value storage for the draft
type Mirror interface {
	Get(key string) ([]byte, bool, error)
	Put(key string, value []byte) error
	Delete(key string) error
}

type mirroredDraft struct {
	Version int          `json:"version"`
	Draft   models.Draft `json:"draft"`
}

// EncodeDraft serializes d for local storage. IsSaving is not kept.
func EncodeDraft(d models.Draft) ([]byte, error) {
	d.IsSaving = false
	data, err := json.Marshal(mirroredDraft{Version: mirrorVersion, Draft: d})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}
	return data, nil
}

// DecodeDraft reads a draft written by EncodeDraft, including ones written by
// other versions. Unknown fields are ignored and missing ones stay zero.
func DecodeDraft(data []byte) (models.Draft, error) {
	var m mirroredDraft
	if err := json.Unmarshal(data, &m); err != nil {
		return models.Draft{}, fmt.Errorf("failed to unmarshal draft: %w", err)
	}
	d := m.Draft
	d.IsSaving = false
	if d.SelectedPlan != "" && !d.SelectedPlan.Valid() {
		d.SelectedPlan = ""
	}
	d.Locations = models.OrderLocations(d.Locations)
	d.Timeline = models.OrderTimeline(d.Timeline)
	d.FAQItems = models.OrderFAQItems(d.FAQItems)
	return d, nil
}

// Restore replaces the draft with the locally stored copy, if there is a
// usable one. It reports whether anything was restored.
func (s *Store) Restore() bool {
	if s.mirror == nil {
		return false
	}

	data, ok, err := s.mirror.Get(MirrorKey)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read local draft")
		return false
	}
	if !ok {
		return false
	}

	d, err := DecodeDraft(data)
	if err != nil {
		s.log.Warn().Err(err).Msg("Ignoring unreadable local draft")
		return false
	}

	s.mu.Lock()
	d.IsSaving = s.draft.IsSaving
	s.draft = d
	s.epoch++
	s.seq++
	seq := s.seq
	snap := s.draft.Clone()
	s.mu.Unlock()

	// the stored copy already matches this state
	s.mirrorMu.Lock()
	if seq > s.mirrorSeq {
		s.mirrorSeq = seq
	}
	s.mirrorMu.Unlock()

	s.log.Debug().Str("invitation_id", snap.InvitationID).Bool("dirty", snap.IsDirty).Msg("Restored local draft")
	s.notify(Change{Kind: Restored, Draft: snap})
	return true
}

// writeMirror stores snap unless a newer state was already written. Failures
// are logged and dropped.
func (s *Store) writeMirror(seq uint64, snap models.Draft) {
	if s.mirror == nil {
		return
	}

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if seq <= s.mirrorSeq {
		return
	}
	data, err := EncodeDraft(snap)
	if err == nil {
		err = s.mirror.Put(MirrorKey, data)
	}
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to write local draft")
		return
	}
	s.mirrorSeq = seq
}

func (s *Store) clearMirror(seq uint64) {
	if s.mirror == nil {
		return
	}

	s.mirrorMu.Lock()
	defer s.mirrorMu.Unlock()

	if err := s.mirror.Delete(MirrorKey); err != nil {
		s.log.Warn().Err(err).Msg("Failed to delete local draft")
	}
	s.mirrorSeq = seq
}
