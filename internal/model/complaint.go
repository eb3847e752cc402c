package model

import (
	"encoding/json"
	"slices"
	"time"
)

type Category string

const (
	CategoryNoise       Category = "Noise"
	CategoryCleanliness Category = "Cleanliness"
	CategoryBills       Category = "Bills"
	CategoryPets        Category = "Pets"
	CategoryOther       Category = "Other"
)

// Categories lists the closed set of complaint categories.
var Categories = []Category{CategoryNoise, CategoryCleanliness, CategoryBills, CategoryPets, CategoryOther}

func (c Category) Valid() bool {
	return slices.Contains(Categories, c)
}

type Severity string

const (
	SeverityMild     Severity = "Mild"
	SeverityAnnoying Severity = "Annoying"
	SeverityMajor    Severity = "Major"
	SeverityNuclear  Severity = "Nuclear"
)

// Severities lists the closed set of severity levels, mildest first.
var Severities = []Severity{SeverityMild, SeverityAnnoying, SeverityMajor, SeverityNuclear}

func (s Severity) Valid() bool {
	return slices.Contains(Severities, s)
}

type VoteType string

const (
	VoteUp   VoteType = "upvote"
	VoteDown VoteType = "downvote"
)

func (v VoteType) Valid() bool {
	return v == VoteUp || v == VoteDown
}

// VoteSet holds the user IDs that cast one kind of vote on a complaint.
type VoteSet map[string]struct{}

func NewVoteSet(ids ...string) VoteSet {
	s := make(VoteSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s VoteSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was absent.
func (s VoteSet) Add(id string) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s VoteSet) Remove(id string) bool {
	if !s.Has(id) {
		return false
	}
	delete(s, id)
	return true
}

func (s VoteSet) Len() int {
	return len(s)
}

// IDs returns the members in sorted order.
func (s VoteSet) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (s VoteSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.IDs())
}

func (s *VoteSet) UnmarshalJSON(data []byte) error {
	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewVoteSet(ids...)
	return nil
}

type Complaint struct {
	ID                  string     `json:"id"`
	Title               string     `json:"title"`
	Description         string     `json:"description"`
	Category            Category   `json:"complaint_type"`
	Severity            Severity   `json:"severity_level"`
	FiledBy             string     `json:"filed_by"`
	FiledByName         string     `json:"filed_by_name,omitempty"`
	HouseholdCode       string     `json:"flat_code"`
	Upvotes             int        `json:"upvotes"`
	Downvotes           int        `json:"downvotes"`
	Resolved            bool       `json:"resolved"`
	ResolvedBy          *string    `json:"resolved_by"`
	ResolvedAt          *time.Time `json:"resolved_at"`
	DownvotedAt         *time.Time `json:"downvoted_at"`
	SuggestedPunishment *string    `json:"suggested_punishment"`
	UpvotedBy           VoteSet    `json:"upvoted_by"`
	DownvotedBy         VoteSet    `json:"downvoted_by"`
	Version             int64      `json:"-"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
