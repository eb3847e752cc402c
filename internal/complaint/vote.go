package complaint

import (
	"fmt"
	"time"

	"github.com/dukerupert/flatmate/internal/model"
)

// ApplyVote records voterID's vote on c. A voter holds at most one vote per
// complaint; voting the other way moves the vote. c is left untouched when
// an error is returned.
func ApplyVote(c *model.Complaint, voterID string, vt model.VoteType, now time.Time) error {
	if voterID == c.FiledBy {
		return ErrSelfVote
	}
	if !vt.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidVoteType, vt)
	}
	if vt == model.VoteUp && c.UpvotedBy.Has(voterID) {
		return fmt.Errorf("%w: already upvoted", ErrDuplicateVote)
	}
	if vt == model.VoteDown && c.DownvotedBy.Has(voterID) {
		return fmt.Errorf("%w: already downvoted", ErrDuplicateVote)
	}

	if c.UpvotedBy == nil {
		c.UpvotedBy = model.NewVoteSet()
	}
	if c.DownvotedBy == nil {
		c.DownvotedBy = model.NewVoteSet()
	}

	switch vt {
	case model.VoteUp:
		if c.DownvotedBy.Remove(voterID) {
			c.Downvotes--
			if c.Downvotes == 0 {
				c.DownvotedAt = nil
			}
		}
		c.UpvotedBy.Add(voterID)
		c.Upvotes++
	case model.VoteDown:
		if c.UpvotedBy.Remove(voterID) {
			c.Upvotes--
		}
		c.DownvotedBy.Add(voterID)
		c.Downvotes++
		if c.Downvotes == 1 {
			t := now.UTC()
			c.DownvotedAt = &t
		}
	}

	refreshPunishment(c)
	return nil
}
