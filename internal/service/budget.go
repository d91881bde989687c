package service

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"itinerary-server/internal/model"
)

// BudgetTolerance - допустимое отклонение суммы от бюджета (±30%)
const BudgetTolerance = 0.3

// Цены по умолчанию на человека для уровней 0..4.
var categoryPrices = map[string][5]float64{
	"cafe":       {5, 10, 18, 30, 45},
	"restaurant": {10, 20, 35, 60, 100},
	"bar":        {6, 12, 20, 35, 55},
	"museum":     {0, 8, 15, 25, 40},
	"attraction": {0, 10, 20, 35, 60},
	"park":       {0, 3, 8, 15, 25},
	"shopping":   {10, 25, 50, 90, 150},
	"other":      {0, 10, 20, 35, 60},
}

func pricesFor(category string) [5]float64 {
	if p, ok := categoryPrices[strings.ToLower(strings.TrimSpace(category))]; ok {
		return p
	}
	return categoryPrices["other"]
}

// DefaultPrice - стартовая цена активности по категории и уровню цены
func DefaultPrice(category string, priceLevel int) float64 {
	return pricesFor(category)[model.ClampPriceLevel(priceLevel)]
}

// PriceLevelFor подбирает уровень, чья цена по умолчанию ближе всего к price.
func PriceLevelFor(category string, price float64) int {
	prices := pricesFor(category)
	best := 0
	for level := 1; level < len(prices); level++ {
		if math.Abs(prices[level]-price) < math.Abs(prices[best]-price) {
			best = level
		}
	}
	return best
}

// PriceRangeLabel - подпись ценового диапазона для отображения
func PriceRangeLabel(category string, priceLevel int, currency string) string {
	level := model.ClampPriceLevel(priceLevel)
	prices := pricesFor(category)
	marks := strings.Repeat(currency, max(level, 1))

	lo := prices[level]
	if level == len(prices)-1 {
		return fmt.Sprintf("%s · %.0f+ %s", marks, lo, currency)
	}
	hi := prices[level+1]
	if lo == 0 {
		return fmt.Sprintf("%s · up to %.0f %s", marks, hi, currency)
	}
	return fmt.Sprintf("%s · %.0f–%.0f %s", marks, lo, hi, currency)
}

// WithinBudget проверяет, что total попадает в окно [0.7, 1.3] от target
func WithinBudget(total, target float64) bool {
	return total >= target*(1-BudgetTolerance) && total <= target*(1+BudgetTolerance)
}

// TotalCost - сумма цен активностей
func TotalCost(activities []model.Activity) float64 {
	var sum float64
	for _, a := range activities {
		sum += a.Price
	}
	return sum
}

// BudgetNormalizer масштабирует цены активностей под бюджет
type BudgetNormalizer struct {
	currency string
}

func NewBudgetNormalizer(currency string) *BudgetNormalizer {
	return &BudgetNormalizer{currency: currency}
}

// Normalize возвращает новый срез активностей, сумма цен которых попадает в окно бюджета.
// Если сумма уже в окне, активности возвращаются без изменений.
// Если сумма равна нулю, возвращает исходные активности и ErrDegenerateBudget.
func (n *BudgetNormalizer) Normalize(activities []model.Activity, target float64) ([]model.Activity, error) {
	sum := TotalCost(activities)
	if sum == 0 {
		return activities, fmt.Errorf("%w: %d activities, target %.2f", model.ErrDegenerateBudget, len(activities), target)
	}
	if WithinBudget(sum, target) {
		return activities, nil
	}

	prices := apportion(activities, target/sum, math.Round(target))

	out := make([]model.Activity, len(activities))
	for i, a := range activities {
		a.Price = prices[i]
		a.PriceLevel = PriceLevelFor(a.Category, a.Price)
		a.PriceRange = PriceRangeLabel(a.Category, a.PriceLevel, n.currency)
		out[i] = a
	}
	return out, nil
}

// apportion округляет price×factor методом наибольших остатков,
// чтобы сумма целых цен совпала с total.
func apportion(activities []model.Activity, factor, total float64) []float64 {
	type share struct {
		idx  int
		frac float64
	}
	prices := make([]float64, len(activities))
	shares := make([]share, len(activities))
	var floors float64
	for i, a := range activities {
		scaled := a.Price * factor
		prices[i] = math.Floor(scaled)
		shares[i] = share{idx: i, frac: scaled - prices[i]}
		floors += prices[i]
	}

	sort.SliceStable(shares, func(i, j int) bool { return shares[i].frac > shares[j].frac })
	for units := int(total - floors); units > 0 && len(shares) > 0; units-- {
		prices[shares[0].idx]++
		shares = shares[1:]
	}
	return prices
}

// DeriveActivities строит активности из основных локаций блоков location.
func DeriveActivities(blocks []model.ContentBlock, currency string) []model.Activity {
	locations := model.LocationBlocks(blocks)
	activities := make([]model.Activity, 0, len(locations))
	for _, lc := range locations {
		main := lc.MainLocation
		level := model.ClampPriceLevel(main.PriceLevel)
		activities = append(activities, model.Activity{
			Time:            lc.Time,
			Name:            main.Name,
			Description:     main.Description,
			Category:        main.Category,
			Price:           DefaultPrice(main.Category, level),
			PriceLevel:      level,
			PriceRange:      PriceRangeLabel(main.Category, level, currency),
			Location:        main.Address,
			Photos:          main.Photos,
			Recommendations: main.Recommendation,
			Rating:          main.Rating,
		})
	}
	return activities
}
