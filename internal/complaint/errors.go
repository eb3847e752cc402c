package complaint

import "errors"

var (
	// ErrValidation marks missing fields or values outside the closed enums.
	ErrValidation = errors.New("invalid complaint")
	// ErrNotFound means the referenced complaint does not exist.
	ErrNotFound = errors.New("complaint not found")
	// ErrSelfVote is returned when the filer votes on their own complaint.
	ErrSelfVote = errors.New("you cannot vote on your own complaint")
	// ErrDuplicateVote is returned when a voter repeats their active vote.
	ErrDuplicateVote = errors.New("vote already recorded")
	// ErrInvalidVoteType is returned for anything but upvote or downvote.
	ErrInvalidVoteType = errors.New("invalid vote type")
	// ErrAlreadyResolved is returned when resolving a resolved complaint.
	ErrAlreadyResolved = errors.New("complaint already resolved")
	// ErrReputationCredit means the complaint was resolved but the resolver's
	// karma could not be credited.
	ErrReputationCredit = errors.New("complaint resolved but karma was not credited")
)
