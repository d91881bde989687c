package service

import (
	"fmt"
	"strings"

	"itinerary-server/internal/model"
)

const minConceptSlots = 3

// budgetTierFor - ценовой ориентир по бюджету на человека в день
func budgetTierFor(budget float64) model.BudgetTier {
	switch {
	case budget < 60:
		return model.BudgetTierLow
	case budget <= 150:
		return model.BudgetTierMedium
	default:
		return model.BudgetTierHigh
	}
}

// DefaultTimeSlots - шаблон дня на случай, если генератор не ответил
func DefaultTimeSlots(budget float64) []model.TimeSlot {
	tier := budgetTierFor(budget)
	return []model.TimeSlot{
		{Time: "09:00", Activity: "Breakfast", Category: "cafe", Keywords: []string{"breakfast", "coffee"}, BudgetTier: tier},
		{Time: "10:30", Activity: "Morning walk", Category: "attraction", Keywords: []string{"old town", "viewpoint"}, BudgetTier: tier},
		{Time: "12:30", Activity: "Lunch", Category: "restaurant", Keywords: []string{"local food", "lunch"}, BudgetTier: tier},
		{Time: "14:00", Activity: "Museum", Category: "museum", Keywords: []string{"museum"}, BudgetTier: tier},
		{Time: "15:30", Activity: "Park", Category: "park", Keywords: []string{"garden", "park"}, BudgetTier: tier},
		{Time: "17:30", Activity: "Aperitivo", Category: "bar", Keywords: []string{"wine bar", "terrace"}, BudgetTier: tier},
		{Time: "19:30", Activity: "Dinner", Category: "restaurant", Keywords: []string{"dinner", "local cuisine"}, BudgetTier: tier},
		{Time: "21:30", Activity: "Evening walk", Category: "attraction", Keywords: []string{"night view"}, BudgetTier: tier},
	}
}

// validTimeSlots отбрасывает слоты без времени или активности и приводит поля к единому виду.
func validTimeSlots(slots []model.TimeSlot, defaultTier model.BudgetTier) []model.TimeSlot {
	out := make([]model.TimeSlot, 0, len(slots))
	for _, s := range slots {
		minutes, err := s.Minutes()
		if err != nil || strings.TrimSpace(s.Activity) == "" {
			continue
		}
		s.Time = fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
		s.Activity = strings.TrimSpace(s.Activity)
		s.Category = strings.ToLower(strings.TrimSpace(s.Category))
		if s.Category == "" {
			s.Category = "other"
		}
		keywords := s.Keywords[:0:0]
		for _, k := range s.Keywords {
			if k = strings.TrimSpace(k); k != "" {
				keywords = append(keywords, k)
			}
		}
		s.Keywords = keywords
		switch s.BudgetTier {
		case model.BudgetTierLow, model.BudgetTierMedium, model.BudgetTierHigh:
		default:
			s.BudgetTier = defaultTier
		}
		out = append(out, s)
	}
	model.SortTimeSlots(out)
	return out
}
