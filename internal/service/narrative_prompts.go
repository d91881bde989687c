package service

import (
	"fmt"
	"strings"
)

// Тон общий для всех вызовов: спокойный местный житель, без рекламы.
const toneContract = `You are a local who has lived in %[1]s for many years and is showing a friend around.
Write in a calm, first-person voice. No superlatives, no marketing language, no exclamation marks,
no words like "hidden gem", "must-see", "breathtaking" or "unforgettable".
Be concrete: what you see, what you order, where to sit. Never invent opening hours or prices.
Answer in language "%[2]s".`

func systemPrompt(city, language, task string) string {
	return fmt.Sprintf(toneContract, city, language) + "\n\n" + task
}

const (
	taskDayConcept = `Plan one day as a list of time slots. Reply with a JSON object only:
{"concept": "<one sentence idea of the day>",
 "timeSlots": [{"time": "HH:MM", "activity": "<short label>", "category": "<cafe|restaurant|bar|museum|attraction|park|shopping|other>",
   "keywords": ["<2-4 search keywords>"], "budgetTier": "<budget|moderate|premium>"}]}
Use 6 to 8 slots between 09:00 and 21:30: breakfast, a walk, lunch, a light activity, something before dinner, dinner.`

	taskDescribe  = "Describe the place in 2-3 sentences."
	taskRecommend = "Give one practical recommendation for this place in 1-2 sentences."
	taskTitle     = "Write a title for the day, at most 7 words. Reply with the title only."
	taskIntro     = "Write an opening paragraph for the day in 3-4 sentences."
	taskClosing   = "Write a closing paragraph for the day in 2-3 sentences."
	taskCaption   = "Write a photo caption of at most 12 words. Reply with the caption only."
	taskSlide     = `Write a short pause between stops. Reply with a JSON object only: {"title": "<at most 5 words>", "text": "<2 sentences>"}`
	taskColumns   = `Write three short practical notes for the day (for example clothing, transport, a local habit).
Reply with a JSON object only: {"columns": [{"title": "<2-3 words>", "text": "<1-2 sentences>"}, ...3 items]}`
	taskMetadata = `Reply with a JSON object only: {"title": "<at most 7 words>", "subtitle": "<at most 12 words>",
 "weather": "<1 sentence on what the weather is usually like on this date; no forecasts>"}`
)

const taskLocationFull = `For the main place write a description (2-3 sentences) and a recommendation (1-2 sentences).
Then suggest exactly 2 alternative real places in the same city for the same time of day, each different from the main place
and from these already used places: %s.
Reply with a JSON object only:
{"description": "...", "recommendation": "...",
 "alternatives": [{"name": "...", "address": "...", "description": "<1-2 sentences>", "recommendation": "<1 sentence>"}]}`

const taskLocationAlternatives = `Suggest exactly 2 alternative real places in the same city for the same time of day, each different from the main place
and from these already used places: %s.
Reply with a JSON object only:
{"alternatives": [{"name": "...", "address": "...", "description": "<1-2 sentences>", "recommendation": "<1 sentence>"}]}`

func placeInput(pc PlaceContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "City: %s\n", pc.City)
	fmt.Fprintf(&sb, "Place: %s\n", pc.Name)
	if pc.Address != "" {
		fmt.Fprintf(&sb, "Address: %s\n", pc.Address)
	}
	fmt.Fprintf(&sb, "Category: %s\n", pc.Category)
	if pc.TimeLabel != "" {
		fmt.Fprintf(&sb, "Time of day: %s\n", pc.TimeLabel)
	}
	writeAudience(&sb, pc.Audience, pc.Interests, pc.Concept)
	return sb.String()
}

func dayInput(dc DayContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "City: %s\n", dc.City)
	if dc.Date != "" {
		fmt.Fprintf(&sb, "Date: %s\n", dc.Date)
	}
	writeAudience(&sb, dc.Audience, dc.Interests, dc.Concept)
	if len(dc.Places) > 0 {
		fmt.Fprintf(&sb, "Places of the day: %s\n", strings.Join(dc.Places, "; "))
	}
	return sb.String()
}

func conceptInput(req ConceptRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "City: %s\nDate: %s\nBudget per person: %.0f\n", req.City, req.Date, req.Budget)
	writeAudience(&sb, req.Audience, req.Interests, "")
	return sb.String()
}

func writeAudience(sb *strings.Builder, audience string, interests []string, concept string) {
	if audience != "" {
		fmt.Fprintf(sb, "Traveller: %s\n", audience)
	}
	if len(interests) > 0 {
		fmt.Fprintf(sb, "Interests: %s\n", strings.Join(interests, ", "))
	}
	if concept != "" {
		fmt.Fprintf(sb, "Idea of the day: %s\n", concept)
	}
}

func usedList(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, "; ")
}
