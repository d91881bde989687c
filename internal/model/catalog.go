package model

// CatalogSource - происхождение записи каталога
type CatalogSource string

const (
	CatalogVerified CatalogSource = "verified"
	CatalogAdmin    CatalogSource = "admin"
)

// CatalogQuery - фильтр поиска по каталогу. Пустые списки не фильтруют.
type CatalogQuery struct {
	City       string
	Categories []string
	Tags       []string
	Interests  []string
	Limit      int
}

// CatalogEntry - проверенная локация из каталога
type CatalogEntry struct {
	ID             string        `db:"id"`
	Name           string        `db:"name"`
	Address        string        `db:"address"`
	Rating         float64       `db:"rating"`
	PriceLevel     int           `db:"price_level"`
	Category       string        `db:"category"`
	Tags           []string      `db:"tags"`
	Interests      []string      `db:"interests"`
	Photos         []string      `db:"photos"`
	Description    string        `db:"description"`
	Recommendation string        `db:"recommendation"`
	Source         CatalogSource `db:"source"`
}

// ExternalPlace - результат внешнего гео-поиска
type ExternalPlace struct {
	ID         string
	Name       string
	Address    string
	Rating     float64
	PriceLevel int // -1, если провайдер не знает
	Photos     []string
}
