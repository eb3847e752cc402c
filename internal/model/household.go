package model

// LeaderboardEntry is one household member ranked by karma.
type LeaderboardEntry struct {
	UserID string `json:"id"`
	Name   string `json:"name"`
	Karma  int    `json:"karma_points"`
}

type CategoryCount struct {
	Category Category `json:"complaint_type"`
	Count    int      `json:"count"`
}

type DownvotedUser struct {
	UserID         string `json:"user_id"`
	Name           string `json:"name"`
	TotalDownvotes int    `json:"total_downvotes"`
}

// HouseholdStats aggregates complaint activity for one household.
type HouseholdStats struct {
	TotalComplaints  int             `json:"total_complaints"`
	TopCategories    []CategoryCount `json:"top_categories"`
	MostComplainedAt []DownvotedUser `json:"users_with_most_complaints_against_them"`
	ProblemOfTheWeek *Complaint      `json:"flatmate_problem_of_the_week"`
}
