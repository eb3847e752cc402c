package complaint

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/flatmate/internal/model"
)

// ResolveReward is the karma a user earns for resolving a complaint.
const ResolveReward = 10

// TrendingLimit caps the trending list.
const TrendingLimit = 5

// Store persists complaints. Update must load the complaint, apply fn and
// write the result as one atomic unit; it returns (nil, nil) when no
// complaint has the given id and fn's error unchanged when fn fails.
type Store interface {
	Create(ctx context.Context, c *model.Complaint) error
	GetByID(ctx context.Context, id string) (*model.Complaint, error)
	Update(ctx context.Context, id string, fn func(*model.Complaint) error) (*model.Complaint, error)
	ListOpenByHousehold(ctx context.Context, householdCode string) ([]model.Complaint, error)
	ListAll(ctx context.Context) ([]model.Complaint, error)
	ListResolved(ctx context.Context) ([]model.Complaint, error)
	ListTrending(ctx context.Context, householdCode string, staleBefore time.Time, limit int) ([]model.Complaint, error)
	ListStaleIDs(ctx context.Context, staleBefore time.Time) ([]string, error)
	Stats(ctx context.Context, householdCode string, staleBefore time.Time) (*model.HouseholdStats, error)
}

// ReputationLedger credits karma to users.
type ReputationLedger interface {
	IncrementReputation(ctx context.Context, userID string, amount int) error
}

type Service struct {
	complaints Store
	reputation ReputationLedger
	logger     *slog.Logger
	now        func() time.Time
}

func NewService(complaints Store, reputation ReputationLedger, logger *slog.Logger) *Service {
	return &Service{
		complaints: complaints,
		reputation: reputation,
		logger:     logger,
		now:        time.Now,
	}
}

// NewComplaint carries the fields a flatmate supplies when filing.
type NewComplaint struct {
	Title         string
	Description   string
	Category      model.Category
	Severity      model.Severity
	FiledBy       string
	HouseholdCode string
}

func (n *NewComplaint) normalize() {
	n.Title = strings.TrimSpace(n.Title)
	n.Description = strings.TrimSpace(n.Description)
	n.HouseholdCode = NormalizeHouseholdCode(n.HouseholdCode)
}

func (n NewComplaint) validate() error {
	switch {
	case n.Title == "":
		return fmt.Errorf("%w: title is required", ErrValidation)
	case n.Description == "":
		return fmt.Errorf("%w: description is required", ErrValidation)
	case n.FiledBy == "":
		return fmt.Errorf("%w: filer is required", ErrValidation)
	case n.HouseholdCode == "":
		return fmt.Errorf("%w: flat code is required", ErrValidation)
	case !n.Category.Valid():
		return fmt.Errorf("%w: unknown complaint type %q", ErrValidation, n.Category)
	case !n.Severity.Valid():
		return fmt.Errorf("%w: unknown severity level %q", ErrValidation, n.Severity)
	}
	return nil
}

// NormalizeHouseholdCode trims and upper-cases a flat code.
func NormalizeHouseholdCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Create files a new open complaint with no votes.
func (s *Service) Create(ctx context.Context, n NewComplaint) (*model.Complaint, error) {
	n.normalize()
	if err := n.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	c := &model.Complaint{
		ID:            uuid.NewString(),
		Title:         n.Title,
		Description:   n.Description,
		Category:      n.Category,
		Severity:      n.Severity,
		FiledBy:       n.FiledBy,
		HouseholdCode: n.HouseholdCode,
		UpvotedBy:     model.NewVoteSet(),
		DownvotedBy:   model.NewVoteSet(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.complaints.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}

	s.logger.Info("complaint filed", "complaint_id", c.ID, "flat_code", c.HouseholdCode, "type", c.Category, "severity", c.Severity)
	return c, nil
}

// Vote applies voterID's vote to the complaint and persists it.
func (s *Service) Vote(ctx context.Context, id, voterID string, vt model.VoteType) (*model.Complaint, error) {
	now := s.now()
	c, err := s.complaints.Update(ctx, id, func(c *model.Complaint) error {
		return ApplyVote(c, voterID, vt, now)
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// Resolve closes the complaint on behalf of resolverID and credits them
// ResolveReward karma. The credit happens after the complaint is saved; if it
// fails the complaint stays resolved and ErrReputationCredit is returned.
func (s *Service) Resolve(ctx context.Context, id, resolverID string) (*model.Complaint, error) {
	now := s.now().UTC()
	c, err := s.complaints.Update(ctx, id, func(c *model.Complaint) error {
		if c.Resolved {
			return ErrAlreadyResolved
		}
		by := resolverID
		c.Resolved = true
		c.ResolvedBy = &by
		c.ResolvedAt = &now
		return nil
	})
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}

	if err := s.reputation.IncrementReputation(ctx, resolverID, ResolveReward); err != nil {
		return nil, fmt.Errorf("%w: complaint %s: %v", ErrReputationCredit, id, err)
	}

	s.logger.Info("complaint resolved", "complaint_id", id, "resolved_by", resolverID)
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Complaint, error) {
	c, err := s.complaints.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}

// ListOpen returns the household's unresolved complaints, newest first.
func (s *Service) ListOpen(ctx context.Context, householdCode string) ([]model.Complaint, error) {
	return s.complaints.ListOpenByHousehold(ctx, NormalizeHouseholdCode(householdCode))
}

// ListAll returns every complaint across households, newest first.
func (s *Service) ListAll(ctx context.Context) ([]model.Complaint, error) {
	return s.complaints.ListAll(ctx)
}

// ListResolved returns resolved complaints, most recently resolved first.
func (s *Service) ListResolved(ctx context.Context) ([]model.Complaint, error) {
	return s.complaints.ListResolved(ctx)
}

// Trending returns up to TrendingLimit open complaints with upvotes, ordered
// by upvotes then recency. Stale complaints are excluded whether or not the
// sweep has archived them yet. An empty householdCode spans all households.
func (s *Service) Trending(ctx context.Context, householdCode string) ([]model.Complaint, error) {
	return s.complaints.ListTrending(ctx, NormalizeHouseholdCode(householdCode), StaleCutoff(s.now()), TrendingLimit)
}

// Stats summarises complaint activity for a household.
func (s *Service) Stats(ctx context.Context, householdCode string) (*model.HouseholdStats, error) {
	return s.complaints.Stats(ctx, NormalizeHouseholdCode(householdCode), StaleCutoff(s.now()))
}
