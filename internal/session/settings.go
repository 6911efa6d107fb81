package session

import (
	"context"
	"fmt"

	"github.com/workbench-ai/cli/internal/models"
)

// UpdateDraft merges partial fields into the local settings draft. It never
// issues a network call. Before a published copy has been loaded the edit is
// ignored with a diagnostic; the session does not fabricate settings.
func (s *Session) UpdateDraft(partial models.Settings) bool {
	if !s.store.MergeDraft(partial) {
		s.log.Warn("settings draft update ignored", "reason", "no published settings loaded")
		return false
	}
	return true
}

// PublishSettings sends the entire current draft (not a diff) as a wholesale
// replace. On success the sent snapshot becomes the published copy. On
// failure the draft is left untouched: a failed publish never discards the
// user's unsaved edits.
func (s *Session) PublishSettings(ctx context.Context) error {
	draft, ok := s.store.DraftSettings()
	if !ok {
		return fmt.Errorf("publish settings: %w", ErrInvalidState)
	}
	if err := s.client.UpdateSettings(ctx, s.projectID, draft); err != nil {
		s.notify(models.NoticeError, "Settings were not saved")
		return fmt.Errorf("publish settings: %w", err)
	}
	s.store.PromoteDraft(draft)
	s.notify(models.NoticeSuccess, "Settings saved")
	return nil
}
