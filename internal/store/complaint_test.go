package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/dukerupert/flatmate/internal/database"
	"github.com/dukerupert/flatmate/internal/model"
)

func setupComplaintTestDB(t *testing.T) (*ComplaintStore, *UserStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewComplaintStore(db), NewUserStore(db)
}

func createTestUser(t *testing.T, us *UserStore, name, code string) *model.User {
	t.Helper()
	u, err := us.Create(context.Background(), name, name+"@example.com", "pw", code)
	if err != nil {
		t.Fatalf("create user %s: %v", name, err)
	}
	return u
}

var baseTime = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func createTestComplaint(t *testing.T, cs *ComplaintStore, id, filer, code string, createdAt time.Time) *model.Complaint {
	t.Helper()
	c := &model.Complaint{
		ID:            id,
		Title:         "Dishes " + id,
		Description:   "Pile in the sink",
		Category:      model.CategoryCleanliness,
		Severity:      model.SeverityAnnoying,
		FiledBy:       filer,
		HouseholdCode: code,
		UpvotedBy:     model.NewVoteSet(),
		DownvotedBy:   model.NewVoteSet(),
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := cs.Create(context.Background(), c); err != nil {
		t.Fatalf("create complaint %s: %v", id, err)
	}
	return c
}

func TestComplaintCreateAndGet(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")

	createTestComplaint(t, cs, "c1", alice.ID, "FLAT7", baseTime)

	got, err := cs.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if got == nil {
		t.Fatal("expected complaint, got nil")
	}
	if got.Title != "Dishes c1" {
		t.Errorf("title = %q, want %q", got.Title, "Dishes c1")
	}
	if got.FiledByName != "alice" {
		t.Errorf("filed by name = %q, want %q", got.FiledByName, "alice")
	}
	if !got.CreatedAt.Equal(baseTime) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, baseTime)
	}
	if got.Resolved || got.ResolvedBy != nil || got.DownvotedAt != nil || got.SuggestedPunishment != nil {
		t.Errorf("new complaint has lifecycle state set: %+v", got)
	}
	if got.UpvotedBy.Len() != 0 || got.DownvotedBy.Len() != 0 {
		t.Error("expected empty vote sets")
	}
}

func TestComplaintGetNotFound(t *testing.T) {
	cs, _ := setupComplaintTestDB(t)

	got, err := cs.GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent complaint")
	}
}

func TestComplaintUpdatePersistsVotes(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	bob := createTestUser(t, us, "bob", "FLAT7")
	carol := createTestUser(t, us, "carol", "FLAT7")
	createTestComplaint(t, cs, "c1", alice.ID, "FLAT7", baseTime)

	downAt := baseTime.Add(time.Hour)
	_, err := cs.Update(ctx, "c1", func(c *model.Complaint) error {
		c.UpvotedBy.Add(bob.ID)
		c.Upvotes = 1
		c.DownvotedBy.Add(carol.ID)
		c.Downvotes = 1
		c.DownvotedAt = &downAt
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	// Switch bob to a downvote.
	_, err = cs.Update(ctx, "c1", func(c *model.Complaint) error {
		c.UpvotedBy.Remove(bob.ID)
		c.Upvotes = 0
		c.DownvotedBy.Add(bob.ID)
		c.Downvotes = 2
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	got, _ := cs.GetByID(ctx, "c1")
	if got.Upvotes != 0 || got.Downvotes != 2 {
		t.Errorf("votes = %d/%d, want 0/2", got.Upvotes, got.Downvotes)
	}
	if got.UpvotedBy.Len() != 0 {
		t.Errorf("upvoted_by = %v, want empty", got.UpvotedBy.IDs())
	}
	if !got.DownvotedBy.Has(bob.ID) || !got.DownvotedBy.Has(carol.ID) {
		t.Errorf("downvoted_by = %v, want bob and carol", got.DownvotedBy.IDs())
	}
	if got.DownvotedAt == nil || !got.DownvotedAt.Equal(downAt) {
		t.Errorf("downvoted_at = %v, want %v", got.DownvotedAt, downAt)
	}
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
}

func TestComplaintUpdateFnErrorRollsBack(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	bob := createTestUser(t, us, "bob", "FLAT7")
	createTestComplaint(t, cs, "c1", alice.ID, "FLAT7", baseTime)

	boom := errors.New("boom")
	_, err := cs.Update(ctx, "c1", func(c *model.Complaint) error {
		c.UpvotedBy.Add(bob.ID)
		c.Upvotes = 1
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	got, _ := cs.GetByID(ctx, "c1")
	if got.Upvotes != 0 || got.UpvotedBy.Len() != 0 {
		t.Errorf("votes persisted after failed update: %d %v", got.Upvotes, got.UpvotedBy.IDs())
	}
}

func TestComplaintUpdateNotFound(t *testing.T) {
	cs, _ := setupComplaintTestDB(t)

	called := false
	got, err := cs.Update(context.Background(), "missing", func(c *model.Complaint) error {
		called = true
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got != nil {
		t.Error("expected nil complaint")
	}
	if called {
		t.Error("fn should not run for a missing complaint")
	}
}

func TestComplaintUpdateVersionConflict(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	createTestComplaint(t, cs, "c1", alice.ID, "FLAT7", baseTime)

	// Simulate a concurrent writer bumping the version after our read.
	_, err := cs.Update(ctx, "c1", func(c *model.Complaint) error {
		c.Version--
		return nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

func TestComplaintUpdateLockedIsConflict(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "flatmate.db")
	db, err := database.Open(path)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	cs, us := NewComplaintStore(db), NewUserStore(db)
	alice := createTestUser(t, us, "alice", "FLAT7")
	createTestComplaint(t, cs, "c1", alice.ID, "FLAT7", baseTime)

	// A second handle with no busy timeout so lock contention surfaces at once.
	other, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open second handle: %v", err)
	}
	t.Cleanup(func() { other.Close() })

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE users SET karma = karma + 1`); err != nil {
		t.Fatalf("take write lock: %v", err)
	}

	_, err = NewComplaintStore(other).Update(ctx, "c1", func(c *model.Complaint) error {
		c.Upvotes++
		c.UpvotedBy.Add("bob")
		return nil
	})
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}
	got, err := cs.GetByID(ctx, "c1")
	if err != nil {
		t.Fatalf("get complaint: %v", err)
	}
	if got.Upvotes != 0 || got.Version != 1 {
		t.Errorf("upvotes = %d, version = %d, want 0 and 1", got.Upvotes, got.Version)
	}
}

func TestIsBusy(t *testing.T) {
	if isBusy(nil) {
		t.Error("isBusy(nil) = true")
	}
	if isBusy(errors.New("database is locked")) {
		t.Error("plain errors are not sqlite lock errors")
	}
	if err := writeErr("update complaint", errors.New("boom")); errors.Is(err, ErrConflict) {
		t.Errorf("writeErr(%v) should not be a conflict", err)
	}
}

func TestComplaintListings(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	bob := createTestUser(t, us, "bob", "FLAT9")

	createTestComplaint(t, cs, "old", alice.ID, "FLAT7", baseTime)
	createTestComplaint(t, cs, "new", alice.ID, "FLAT7", baseTime.Add(time.Hour))
	createTestComplaint(t, cs, "other-flat", bob.ID, "FLAT9", baseTime.Add(2*time.Hour))
	createTestComplaint(t, cs, "done", alice.ID, "FLAT7", baseTime.Add(3*time.Hour))
	createTestComplaint(t, cs, "done-later", alice.ID, "FLAT7", baseTime.Add(4*time.Hour))

	resolve := func(id string, at time.Time) {
		t.Helper()
		if _, err := cs.Update(ctx, id, func(c *model.Complaint) error {
			c.Resolved = true
			c.ResolvedBy = &bob.ID
			c.ResolvedAt = &at
			return nil
		}); err != nil {
			t.Fatalf("resolve %s: %v", id, err)
		}
	}
	resolve("done-later", baseTime.Add(5*time.Hour))
	resolve("done", baseTime.Add(6*time.Hour))

	open, err := cs.ListOpenByHousehold(ctx, "FLAT7")
	if err != nil {
		t.Fatalf("list open: %v", err)
	}
	assertIDs(t, "open", open, "new", "old")

	all, err := cs.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	assertIDs(t, "all", all, "done-later", "done", "other-flat", "new", "old")

	resolved, err := cs.ListResolved(ctx)
	if err != nil {
		t.Fatalf("list resolved: %v", err)
	}
	assertIDs(t, "resolved", resolved, "done", "done-later")
}

func TestListTrendingExcludesStale(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	bob := createTestUser(t, us, "bob", "FLAT7")
	carol := createTestUser(t, us, "carol", "FLAT7")

	now := baseTime.Add(10 * 24 * time.Hour)
	cutoff := now.Add(-72 * time.Hour)

	createTestComplaint(t, cs, "popular", alice.ID, "FLAT7", baseTime)
	createTestComplaint(t, cs, "stale", alice.ID, "FLAT7", baseTime.Add(time.Hour))
	createTestComplaint(t, cs, "fresh-downvote", alice.ID, "FLAT7", baseTime.Add(2*time.Hour))
	createTestComplaint(t, cs, "no-upvotes", alice.ID, "FLAT7", baseTime.Add(3*time.Hour))

	vote := func(id string, up []string, down []string, downAt *time.Time) {
		t.Helper()
		if _, err := cs.Update(ctx, id, func(c *model.Complaint) error {
			for _, u := range up {
				c.UpvotedBy.Add(u)
			}
			for _, d := range down {
				c.DownvotedBy.Add(d)
			}
			c.Upvotes = c.UpvotedBy.Len()
			c.Downvotes = c.DownvotedBy.Len()
			c.DownvotedAt = downAt
			return nil
		}); err != nil {
			t.Fatalf("vote %s: %v", id, err)
		}
	}
	staleAt := now.Add(-4 * 24 * time.Hour)
	freshAt := now.Add(-2 * 24 * time.Hour)
	vote("popular", []string{bob.ID, carol.ID}, nil, nil)
	vote("stale", []string{bob.ID, carol.ID}, nil, nil)
	if _, err := cs.Update(ctx, "stale", func(c *model.Complaint) error {
		c.UpvotedBy.Remove(carol.ID)
		c.Upvotes = 1
		c.DownvotedBy.Add(carol.ID)
		c.Downvotes = 1
		c.DownvotedAt = &staleAt
		return nil
	}); err != nil {
		t.Fatalf("downvote stale: %v", err)
	}
	vote("fresh-downvote", []string{bob.ID}, []string{carol.ID}, &freshAt)

	trending, err := cs.ListTrending(ctx, "FLAT7", cutoff, 5)
	if err != nil {
		t.Fatalf("list trending: %v", err)
	}
	assertIDs(t, "trending", trending, "popular", "fresh-downvote")

	top, err := cs.ListTrending(ctx, "", cutoff, 1)
	if err != nil {
		t.Fatalf("list trending limit 1: %v", err)
	}
	assertIDs(t, "trending top", top, "popular")

	ids, err := cs.ListStaleIDs(ctx, cutoff)
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(ids) != 1 || ids[0] != "stale" {
		t.Errorf("stale ids = %v, want [stale]", ids)
	}
}

func TestComplaintStats(t *testing.T) {
	cs, us := setupComplaintTestDB(t)
	ctx := context.Background()
	alice := createTestUser(t, us, "alice", "FLAT7")
	bob := createTestUser(t, us, "bob", "FLAT7")
	carol := createTestUser(t, us, "carol", "FLAT7")

	mk := func(id, filer string, cat model.Category, at time.Time) {
		t.Helper()
		c := &model.Complaint{
			ID: id, Title: id, Description: "d", Category: cat, Severity: model.SeverityMild,
			FiledBy: filer, HouseholdCode: "FLAT7",
			UpvotedBy: model.NewVoteSet(), DownvotedBy: model.NewVoteSet(),
			CreatedAt: at, UpdatedAt: at,
		}
		if err := cs.Create(ctx, c); err != nil {
			t.Fatalf("create %s: %v", id, err)
		}
	}
	mk("n1", alice.ID, model.CategoryNoise, baseTime)
	mk("n2", alice.ID, model.CategoryNoise, baseTime.Add(time.Minute))
	mk("b1", bob.ID, model.CategoryBills, baseTime.Add(2*time.Minute))
	mk("p1", bob.ID, model.CategoryPets, baseTime.Add(3*time.Minute))
	mk("o1", bob.ID, model.CategoryOther, baseTime.Add(4*time.Minute))

	now := baseTime.Add(time.Hour)
	downvote := func(id string, voters ...string) {
		t.Helper()
		cs.Update(ctx, id, func(c *model.Complaint) error {
			for _, v := range voters {
				c.DownvotedBy.Add(v)
			}
			c.Downvotes = c.DownvotedBy.Len()
			c.DownvotedAt = &now
			return nil
		})
	}
	downvote("n1", bob.ID, carol.ID)
	downvote("b1", carol.ID)
	cs.Update(ctx, "p1", func(c *model.Complaint) error {
		c.UpvotedBy.Add(alice.ID)
		c.Upvotes = 1
		return nil
	})

	stats, err := cs.Stats(ctx, "FLAT7", now.Add(-72*time.Hour))
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalComplaints != 5 {
		t.Errorf("total = %d, want 5", stats.TotalComplaints)
	}
	if len(stats.TopCategories) != 3 {
		t.Fatalf("top categories = %d, want 3", len(stats.TopCategories))
	}
	if stats.TopCategories[0].Category != model.CategoryNoise || stats.TopCategories[0].Count != 2 {
		t.Errorf("top category = %+v, want Noise x2", stats.TopCategories[0])
	}
	if len(stats.MostComplainedAt) != 2 {
		t.Fatalf("most complained at = %d, want 2", len(stats.MostComplainedAt))
	}
	if stats.MostComplainedAt[0].Name != "alice" || stats.MostComplainedAt[0].TotalDownvotes != 2 {
		t.Errorf("most complained at[0] = %+v, want alice with 2", stats.MostComplainedAt[0])
	}
	if stats.ProblemOfTheWeek == nil || stats.ProblemOfTheWeek.ID != "p1" {
		t.Errorf("problem of the week = %+v, want p1", stats.ProblemOfTheWeek)
	}
}

func assertIDs(t *testing.T, label string, got []model.Complaint, want ...string) {
	t.Helper()
	ids := make([]string, len(got))
	for i := range got {
		ids[i] = got[i].ID
	}
	if fmt.Sprint(ids) != fmt.Sprint(want) {
		t.Errorf("%s = %v, want %v", label, ids, want)
	}
}
