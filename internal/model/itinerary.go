package model

import "time"

// Visibility - что видит пользователь: превью или полный план
type Visibility string

const (
	VisibilityPreview Visibility = "preview"
	VisibilityFull    Visibility = "full"
)

// Status - стадия жизненного цикла документа
type Status string

const (
	StatusGenerating Status = "generating"
	StatusPreview    Status = "preview"
	StatusPayment    Status = "payment"
	StatusFull       Status = "full"
	StatusError      Status = "error"
)

// Concept - короткая идея дня и слоты, из которых она состоит
type Concept struct {
	Text      string     `json:"text"`
	TimeSlots []TimeSlot `json:"timeSlots,omitempty"`
}

// Activity - проекция основной локации блока для подсчета стоимости.
// Не хранится отдельно, выводится из блоков.
type Activity struct {
	Time            string   `json:"time"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Price           float64  `json:"price"`
	PriceLevel      int      `json:"priceLevel"`
	PriceRange      string   `json:"priceRange"`
	Location        string   `json:"location"`
	Photos          []string `json:"photos"`
	Recommendations string   `json:"recommendations"`
	Rating          float64  `json:"rating"`
}

// Itinerary - корневой документ маршрута на день
type Itinerary struct {
	ID      string `json:"id,omitempty"`
	Version int64  `json:"version"`

	City      string   `json:"city"`
	Date      string   `json:"date"` // YYYY-MM-DD
	Budget    float64  `json:"budget"`
	Audience  string   `json:"audience,omitempty"`
	Interests []string `json:"interests,omitempty"`

	Concept  Concept `json:"concept"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Weather  string  `json:"weather"`

	ContentBlocks []ContentBlock `json:"contentBlocks"`
	Activities    []Activity     `json:"activities"`
	TotalCost     float64        `json:"totalCost"`
	WithinBudget  bool           `json:"withinBudget"`

	Visibility    Visibility `json:"visibility"`
	Status        Status     `json:"status"`
	FullPlanReady bool       `json:"fullPlanReady"`
	// PaidAt фиксирует оплату и переживает переход в error
	PaidAt *time.Time `json:"paidAt,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
