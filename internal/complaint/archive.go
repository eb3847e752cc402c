package complaint

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dukerupert/flatmate/internal/model"
)

// StalenessWindow is how long a downvoted complaint may stay open before
// the archival sweep closes it.
const StalenessWindow = 3 * 24 * time.Hour

// ArchiveNotice replaces the description of auto-archived complaints.
const ArchiveNotice = "This complaint has been automatically archived due to low community support."

var errNotStale = errors.New("complaint no longer stale")

// StaleCutoff returns the latest first-downvote time that counts as stale at now.
func StaleCutoff(now time.Time) time.Time {
	return now.UTC().Add(-StalenessWindow)
}

// IsStale reports whether c is open, downvoted, and was first downvoted at
// least StalenessWindow before now.
func IsStale(c *model.Complaint, now time.Time) bool {
	if c.Resolved || c.Downvotes <= 0 || c.DownvotedAt == nil {
		return false
	}
	return !c.DownvotedAt.After(StaleCutoff(now))
}

// archive closes c without a resolver. The original description is lost.
func archive(c *model.Complaint, now time.Time) {
	t := now.UTC()
	c.Resolved = true
	c.ResolvedAt = &t
	c.Description = ArchiveNotice
}

// RunArchivalSweep archives every stale complaint and returns how many it
// archived. Each complaint is archived in its own store update; a failure on
// one is logged and the sweep moves on.
func (s *Service) RunArchivalSweep(ctx context.Context, now time.Time) (int, error) {
	ids, err := s.complaints.ListStaleIDs(ctx, StaleCutoff(now))
	if err != nil {
		return 0, fmt.Errorf("list stale complaints: %w", err)
	}

	archived := 0
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return archived, err
		}

		c, err := s.complaints.Update(ctx, id, func(c *model.Complaint) error {
			if !IsStale(c, now) {
				return errNotStale
			}
			archive(c, now)
			return nil
		})
		switch {
		case errors.Is(err, errNotStale):
			s.logger.Debug("skipping complaint, no longer stale", "complaint_id", id)
			continue
		case err != nil:
			s.logger.Error("archive complaint", "complaint_id", id, "error", err)
			continue
		case c == nil:
			continue
		}
		archived++
	}

	s.logger.Info("archival sweep finished", "candidates", len(ids), "archived", archived)
	return archived, nil
}
