package service

import (
	"fmt"

	"itinerary-server/internal/model"
)

// timeWindow - окно слота location. Слот подходит, если его час в [StartHour, EndHour).
type timeWindow struct {
	Start     string
	End       string
	StartHour int
	EndHour   int
	Label     string
}

func (w timeWindow) String() string {
	return fmt.Sprintf("%s-%s", w.Start, w.End)
}

func (w timeWindow) contains(slot model.TimeSlot) bool {
	h := slot.Hour()
	return h >= w.StartHour && h < w.EndHour
}

type templateSlot struct {
	Type   model.BlockType
	Role   model.TextRole
	Window *timeWindow
}

// dayTemplate - фиксированная последовательность из 17 слотов
var dayTemplate = []templateSlot{
	{Type: model.BlockTitle},
	{Type: model.BlockText, Role: model.TextIntro},
	{Type: model.BlockLocation, Window: &timeWindow{"09:00", "10:00", 9, 10, "breakfast / gentle start"}},
	{Type: model.BlockDivider},
	{Type: model.BlockPhoto},
	{Type: model.BlockLocation, Window: &timeWindow{"10:30", "12:00", 10, 12, "walking / exploring"}},
	{Type: model.BlockDivider},
	{Type: model.BlockLocation, Window: &timeWindow{"12:30", "15:00", 12, 15, "lunch / long break"}},
	{Type: model.BlockSlide},
	{Type: model.BlockDivider},
	{Type: model.BlockLocation, Window: &timeWindow{"15:30", "17:00", 15, 17, "light activity"}},
	{Type: model.BlockThreeColumns},
	{Type: model.BlockDivider},
	{Type: model.BlockLocation, Window: &timeWindow{"17:30", "19:00", 17, 19, "pre-dinner transition"}},
	{Type: model.BlockLocation, Window: &timeWindow{"19:30", "21:00", 19, 21, "dinner"}},
	{Type: model.BlockDivider},
	{Type: model.BlockText, Role: model.TextClosing},
}

// DayTemplateTypes возвращает типы блоков шаблона по порядку
func DayTemplateTypes() []model.BlockType {
	out := make([]model.BlockType, len(dayTemplate))
	for i, s := range dayTemplate {
		out[i] = s.Type
	}
	return out
}

// windowMatch - слот шаблона и индекс подобранного для него элемента
type windowMatch struct {
	Slot int
	Item int
}

// matchWindows проходит слоты location по порядку и каждому отдает первый свободный
// TimeSlot, попадающий в окно. skip - уже заполненные слоты шаблона, limit > 0 ограничивает
// число совпадений.
func matchWindows(slots []model.TimeSlot, skip map[int]bool, limit int) []windowMatch {
	used := make([]bool, len(slots))
	var out []windowMatch
	for i, ts := range dayTemplate {
		if ts.Window == nil || skip[i] {
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		for j, s := range slots {
			if !used[j] && ts.Window.contains(s) {
				used[j] = true
				out = append(out, windowMatch{Slot: i, Item: j})
				break
			}
		}
	}
	return out
}

// dividerLabel - подпись разделителя по следующему окну location
func dividerLabel(slot int) string {
	for i := slot + 1; i < len(dayTemplate); i++ {
		if w := dayTemplate[i].Window; w != nil {
			return fmt.Sprintf("%s · %s", w.Start, w.Label)
		}
	}
	return "Evening"
}
