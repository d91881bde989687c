package service

import (
	"context"

	"itinerary-server/internal/model"
)

// CatalogStore - каталог проверенных локаций
type CatalogStore interface {
	Search(ctx context.Context, query model.CatalogQuery) ([]model.CatalogEntry, error)
}

// ExternalPlaceSearcher - внешний гео-поиск. Ready возвращает ошибку, если нет ключа.
type ExternalPlaceSearcher interface {
	SearchText(ctx context.Context, query, language string) ([]model.ExternalPlace, error)
	Ready() error
}

// PhotoSearcher - поиск иллюстративных фото
type PhotoSearcher interface {
	Search(ctx context.Context, query string, n int) ([]string, error)
}

// SessionStore - временное хранилище документов маршрутов
type SessionStore interface {
	// Save создает документ (пустой ID) или обновляет его с проверкой версии.
	Save(ctx context.Context, itinerary *model.Itinerary) (string, error)
	Load(ctx context.Context, id string) (*model.Itinerary, error)
	SetVisibility(ctx context.Context, id string, visibility model.Visibility) (*model.Itinerary, error)
}
