package complaint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dukerupert/flatmate/internal/model"
)

func TestSuggestPunishment(t *testing.T) {
	tests := []struct {
		category model.Category
		severity model.Severity
		want     string
	}{
		{model.CategoryCleanliness, model.SeverityMajor, "You're responsible for cleaning the entire common area for a week!"},
		{model.CategoryCleanliness, model.SeverityNuclear, "You're responsible for cleaning the entire common area for a week!"},
		{model.CategoryNoise, model.SeverityMajor, "You owe everyone samosas and a silent night."},
		{model.CategoryNoise, model.SeverityNuclear, "You owe everyone samosas and a silent night."},
		{model.CategoryBills, model.SeverityMajor, "You're covering the next month's internet bill."},
		{model.CategoryPets, model.SeverityNuclear, "You're on pet-sitting duty for a month and buying new toys."},
		{model.CategoryOther, model.SeverityMajor, "This serious issue requires a group discussion."},
		{model.CategoryCleanliness, model.SeverityAnnoying, "You're making chai for everyone for a week."},
		{model.CategoryNoise, model.SeverityAnnoying, "You're treating everyone to coffee."},
		{model.CategoryBills, model.SeverityAnnoying, "You're doing grocery duty next week."},
		{model.CategoryPets, model.SeverityAnnoying, "You're organizing a pet playdate."},
		{model.CategoryOther, model.SeverityAnnoying, "A small gesture of apology is expected."},
		{model.CategoryNoise, model.SeverityMild, "A gentle reminder to be more mindful next time!"},
		{model.CategoryPets, model.SeverityMild, "A gentle reminder to be more mindful next time!"},
		{model.CategoryOther, model.SeverityMild, "A gentle reminder to be more mindful next time!"},
		{model.CategoryNoise, model.Severity("Apocalyptic"), NoPunishment},
		{model.CategoryNoise, model.Severity(""), NoPunishment},
	}

	for _, tt := range tests {
		t.Run(string(tt.severity)+"/"+string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.want, SuggestPunishment(tt.category, tt.severity))
		})
	}
}

func TestSuggestPunishmentCoversEveryPair(t *testing.T) {
	for _, sev := range model.Severities {
		for _, cat := range model.Categories {
			assert.NotEqual(t, NoPunishment, SuggestPunishment(cat, sev), "%s/%s", sev, cat)
		}
	}
}
