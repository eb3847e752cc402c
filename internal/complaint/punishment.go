package complaint

import "github.com/dukerupert/flatmate/internal/model"

// PunishmentThreshold is the upvote count at which a punishment is suggested.
const PunishmentThreshold = 10

// NoPunishment is returned for severities without a mapped punishment.
const NoPunishment = "No specific punishment suggested."

// SuggestPunishment maps a complaint's category and severity to the
// punishment text shown to the household.
func SuggestPunishment(category model.Category, severity model.Severity) string {
	switch severity {
	case model.SeverityMajor, model.SeverityNuclear:
		switch category {
		case model.CategoryCleanliness:
			return "You're responsible for cleaning the entire common area for a week!"
		case model.CategoryNoise:
			return "You owe everyone samosas and a silent night."
		case model.CategoryBills:
			return "You're covering the next month's internet bill."
		case model.CategoryPets:
			return "You're on pet-sitting duty for a month and buying new toys."
		default:
			return "This serious issue requires a group discussion."
		}
	case model.SeverityAnnoying:
		switch category {
		case model.CategoryCleanliness:
			return "You're making chai for everyone for a week."
		case model.CategoryNoise:
			return "You're treating everyone to coffee."
		case model.CategoryBills:
			return "You're doing grocery duty next week."
		case model.CategoryPets:
			return "You're organizing a pet playdate."
		default:
			return "A small gesture of apology is expected."
		}
	case model.SeverityMild:
		return "A gentle reminder to be more mindful next time!"
	}
	return NoPunishment
}

// refreshPunishment keeps SuggestedPunishment set exactly while upvotes are
// at or above the threshold. An existing suggestion is never rewritten.
func refreshPunishment(c *model.Complaint) {
	switch {
	case c.Upvotes >= PunishmentThreshold && c.SuggestedPunishment == nil:
		p := SuggestPunishment(c.Category, c.Severity)
		c.SuggestedPunishment = &p
	case c.Upvotes < PunishmentThreshold:
		c.SuggestedPunishment = nil
	}
}
