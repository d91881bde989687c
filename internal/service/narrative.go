package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"itinerary-server/internal/model"
	"itinerary-server/pkg/ai"
	"itinerary-server/pkg/utils"

	"go.uber.org/zap"
)

// ConceptRequest - входные данные для идеи дня
type ConceptRequest struct {
	City      string
	Date      string
	Budget    float64
	Audience  string
	Interests []string
}

// DayConcept - идея дня и список слотов
type DayConcept struct {
	Text      string
	TimeSlots []model.TimeSlot
	Fallback  bool
}

// PlaceContext - то, что генератор знает о месте
type PlaceContext struct {
	Name      string
	Address   string
	Category  string
	City      string
	TimeLabel string
	Audience  string
	Interests []string
	Concept   string
	// Тексты из каталога. Если заданы, генератор для них не вызывается.
	CatalogDescription    string
	CatalogRecommendation string
	// Уже занятые имена, чтобы модель не предлагала их в альтернативы
	Used []string
}

// DayContext - контекст для текстов уровня дня
type DayContext struct {
	City      string
	Date      string
	Audience  string
	Interests []string
	Concept   string
	Places    []string
}

// AlternativeCandidate - альтернативное место от генератора
type AlternativeCandidate struct {
	Name           string `json:"name"`
	Address        string `json:"address"`
	Description    string `json:"description"`
	Recommendation string `json:"recommendation"`
}

// LocationNarrative - ответ для одного слота location
type LocationNarrative struct {
	Description    string
	Recommendation string
	Alternatives   []AlternativeCandidate
}

type SlideText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type ColumnText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

type Metadata struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Weather  string `json:"weather"`
}

// NarrativeGenerator - адаптер над AI клиентом. Ни один метод не возвращает ошибку генерации:
// при сбое используется детерминированный шаблон.
type NarrativeGenerator struct {
	client   ai.AIClient
	language string
	logger   *zap.Logger
}

// NewNarrativeGenerator создает адаптер. client может быть nil - тогда Ready вернет ErrConfiguration.
func NewNarrativeGenerator(client ai.AIClient, language string, logger *zap.Logger) *NarrativeGenerator {
	if language == "" {
		language = "en"
	}
	return &NarrativeGenerator{
		client:   client,
		language: language,
		logger:   logger.Named("NarrativeGenerator"),
	}
}

// Ready сообщает, можно ли запускать пайплайн
func (g *NarrativeGenerator) Ready() error {
	if g.client == nil {
		return fmt.Errorf("%w: AI client is not configured", model.ErrConfiguration)
	}
	return nil
}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

// generate вызывает модель. Пустая строка означает, что нужен шаблон.
func (g *NarrativeGenerator) generate(ctx context.Context, call, city, task, input string, params ai.GenerationParams) string {
	if g.client == nil {
		return ""
	}
	text, _, err := g.client.GenerateText(ctx, call, systemPrompt(city, g.language, task), input, params)
	if err != nil {
		g.logger.Warn("Narrative generation failed, using fallback",
			zap.String("call", call),
			zap.String("city", city),
			zap.Error(err),
		)
		return ""
	}
	return strings.TrimSpace(text)
}

// generateJSON вызывает модель и разбирает JSON. false - нужен шаблон.
func (g *NarrativeGenerator) generateJSON(ctx context.Context, call, city, task, input string, out interface{}) bool {
	raw := g.generate(ctx, call, city, task, input, ai.GenerationParams{Temperature: floatPtr(0.7), JSONMode: true})
	if raw == "" {
		return false
	}
	content := utils.ExtractJSONContent(raw)
	if content == "" {
		g.logger.Warn("No JSON in model response", zap.String("call", call), zap.String("response", utils.StringShort(raw, 200)))
		return false
	}
	if err := json.Unmarshal([]byte(content), out); err != nil {
		g.logger.Warn("Failed to parse model JSON", zap.String("call", call), zap.Error(err))
		return false
	}
	return true
}

func (g *NarrativeGenerator) textOr(ctx context.Context, call, city, task, input, fallback string, maxTokens int) string {
	text := g.generate(ctx, call, city, task, input, ai.GenerationParams{Temperature: floatPtr(0.7), MaxTokens: intPtr(maxTokens)})
	text = strings.Trim(text, "\"")
	if text == "" {
		narrativeFallbackTotal.WithLabelValues(call).Inc()
		return fallback
	}
	return text
}

// DayConcept генерирует идею дня. При сбое возвращает шаблон из 8 слотов.
func (g *NarrativeGenerator) DayConcept(ctx context.Context, req ConceptRequest) DayConcept {
	var resp struct {
		Concept   string           `json:"concept"`
		TimeSlots []model.TimeSlot `json:"timeSlots"`
	}
	if g.generateJSON(ctx, "day_concept", req.City, taskDayConcept, conceptInput(req), &resp) {
		slots := validTimeSlots(resp.TimeSlots, budgetTierFor(req.Budget))
		if len(slots) >= minConceptSlots {
			text := strings.TrimSpace(resp.Concept)
			if text == "" {
				text = fallbackConceptText(req)
			}
			return DayConcept{Text: text, TimeSlots: slots}
		}
		g.logger.Warn("Day concept has too few valid slots, using template", zap.Int("valid", len(slots)))
	}
	narrativeFallbackTotal.WithLabelValues("day_concept").Inc()
	return DayConcept{Text: fallbackConceptText(req), TimeSlots: DefaultTimeSlots(req.Budget), Fallback: true}
}

func (g *NarrativeGenerator) Describe(ctx context.Context, pc PlaceContext) string {
	if pc.CatalogDescription != "" {
		return pc.CatalogDescription
	}
	return g.textOr(ctx, "describe", pc.City, taskDescribe, placeInput(pc), fallbackDescription(pc), 200)
}

func (g *NarrativeGenerator) Recommend(ctx context.Context, pc PlaceContext) string {
	if pc.CatalogRecommendation != "" {
		return pc.CatalogRecommendation
	}
	return g.textOr(ctx, "recommend", pc.City, taskRecommend, placeInput(pc), fallbackRecommendation(pc), 120)
}

func (g *NarrativeGenerator) Title(ctx context.Context, dc DayContext) string {
	return g.textOr(ctx, "title", dc.City, taskTitle, dayInput(dc), fmt.Sprintf("A slow day in %s", dc.City), 40)
}

func (g *NarrativeGenerator) IntroText(ctx context.Context, dc DayContext) string {
	return g.textOr(ctx, "intro", dc.City, taskIntro, dayInput(dc), fallbackIntro(dc), 300)
}

func (g *NarrativeGenerator) ClosingText(ctx context.Context, dc DayContext) string {
	return g.textOr(ctx, "closing", dc.City, taskClosing, dayInput(dc),
		fmt.Sprintf("That is the day. %s will still be here tomorrow, so leave something for next time.", dc.City), 200)
}

func (g *NarrativeGenerator) PhotoCaption(ctx context.Context, dc DayContext, subject string) string {
	input := dayInput(dc) + "Photo subject: " + subject + "\n"
	return g.textOr(ctx, "photo_caption", dc.City, taskCaption, input, fmt.Sprintf("%s, between stops", dc.City), 40)
}

func (g *NarrativeGenerator) Slide(ctx context.Context, dc DayContext) SlideText {
	var resp SlideText
	if g.generateJSON(ctx, "slide", dc.City, taskSlide, dayInput(dc), &resp) && resp.Title != "" && resp.Text != "" {
		return resp
	}
	narrativeFallbackTotal.WithLabelValues("slide").Inc()
	return SlideText{
		Title: "A pause",
		Text:  fmt.Sprintf("Sit down somewhere in %s for a while. The afternoon does not need to be full.", dc.City),
	}
}

// ThreeColumns всегда возвращает три колонки; недостающие берутся из шаблона.
func (g *NarrativeGenerator) ThreeColumns(ctx context.Context, dc DayContext) [3]ColumnText {
	out := fallbackColumns(dc)
	var resp struct {
		Columns []ColumnText `json:"columns"`
	}
	if !g.generateJSON(ctx, "three_columns", dc.City, taskColumns, dayInput(dc), &resp) {
		narrativeFallbackTotal.WithLabelValues("three_columns").Inc()
		return out
	}
	for i := 0; i < len(out) && i < len(resp.Columns); i++ {
		if resp.Columns[i].Title != "" && resp.Columns[i].Text != "" {
			out[i] = resp.Columns[i]
		}
	}
	return out
}

// LocationSlot - один структурированный запрос: тексты основного места и до двух альтернатив.
// Тексты каталога сохраняются дословно. Если ответ без текста основного места,
// недостающее поле запрашивается отдельно через Describe/Recommend.
func (g *NarrativeGenerator) LocationSlot(ctx context.Context, pc PlaceContext) LocationNarrative {
	var resp struct {
		Description    string                 `json:"description"`
		Recommendation string                 `json:"recommendation"`
		Alternatives   []AlternativeCandidate `json:"alternatives"`
	}

	needMain := pc.CatalogDescription == "" || pc.CatalogRecommendation == ""
	task := fmt.Sprintf(taskLocationAlternatives, usedList(pc.Used))
	if needMain {
		task = fmt.Sprintf(taskLocationFull, usedList(pc.Used))
	}
	if !g.generateJSON(ctx, "location_slot", pc.City, task, placeInput(pc), &resp) {
		narrativeFallbackTotal.WithLabelValues("location_slot").Inc()
	}

	out := LocationNarrative{
		Description:    strings.TrimSpace(resp.Description),
		Recommendation: strings.TrimSpace(resp.Recommendation),
	}
	if pc.CatalogDescription != "" || out.Description == "" {
		out.Description = g.Describe(ctx, pc)
	}
	if pc.CatalogRecommendation != "" || out.Recommendation == "" {
		out.Recommendation = g.Recommend(ctx, pc)
	}
	for _, alt := range resp.Alternatives {
		alt.Name = strings.TrimSpace(alt.Name)
		if alt.Name == "" {
			continue
		}
		out.Alternatives = append(out.Alternatives, alt)
	}
	return out
}

func (g *NarrativeGenerator) Metadata(ctx context.Context, dc DayContext) Metadata {
	fallback := Metadata{
		Title:    fmt.Sprintf("A day in %s", dc.City),
		Subtitle: strings.TrimSpace(strings.Join([]string{dc.Date, dc.Audience}, " · ")),
		Weather:  fmt.Sprintf("Check the forecast for %s before heading out.", dc.City),
	}
	var resp Metadata
	if !g.generateJSON(ctx, "metadata", dc.City, taskMetadata, dayInput(dc), &resp) {
		narrativeFallbackTotal.WithLabelValues("metadata").Inc()
		return fallback
	}
	return Metadata{
		Title:    firstNonEmpty(resp.Title, fallback.Title),
		Subtitle: firstNonEmpty(resp.Subtitle, fallback.Subtitle),
		Weather:  firstNonEmpty(resp.Weather, fallback.Weather),
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// --- Шаблоны ---

func fallbackDescription(pc PlaceContext) string {
	category := pc.Category
	if category == "" {
		category = "local"
	}
	return fmt.Sprintf("%s is a quiet %s spot that fits an unhurried day in %s.", pc.Name, category, pc.City)
}

func fallbackRecommendation(pc PlaceContext) string {
	return fmt.Sprintf("Come a little before the busy hour and take your time at %s.", pc.Name)
}

func fallbackIntro(dc DayContext) string {
	focus := "walking, eating well and not rushing"
	if len(dc.Interests) > 0 {
		focus = strings.Join(dc.Interests, ", ")
	}
	return fmt.Sprintf("This is a day in %s built around %s. The pace is easy and every stop is close to the next one.", dc.City, focus)
}

func fallbackConceptText(req ConceptRequest) string {
	return fmt.Sprintf("An unhurried day in %s with good food and short walks between stops.", req.City)
}

func fallbackColumns(dc DayContext) [3]ColumnText {
	return [3]ColumnText{
		{Title: "What to wear", Text: "Comfortable shoes. Most of the day is on foot."},
		{Title: "Getting around", Text: fmt.Sprintf("Walk where you can and use public transport in %s for longer stretches.", dc.City)},
		{Title: "Good to know", Text: "Carry a little cash and a bottle of water."},
	}
}
