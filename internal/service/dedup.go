package service

import (
	"fmt"
	"strings"
	"sync"

	"itinerary-server/internal/model"
)

// usedRegistry - множества использованных локаций и фото в рамках одного прогона сборки.
// Все изменения идут под одним мьютексом: конкурентные слоты не могут занять одно и то же место.
type usedRegistry struct {
	mu         sync.Mutex
	names      map[string]struct{}
	identities map[string]struct{}
	photos     map[string]struct{}
}

func newUsedRegistry() *usedRegistry {
	return &usedRegistry{
		names:      make(map[string]struct{}),
		identities: make(map[string]struct{}),
		photos:     make(map[string]struct{}),
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ClaimLocation атомарно проверяет и занимает имя и идентичность.
// false - если имя пустое или что-то из пары уже занято.
func (r *usedRegistry) ClaimLocation(name, identityKey string) bool {
	key := normalizeName(name)
	if key == "" {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.names[key]; ok {
		return false
	}
	if identityKey != "" {
		if _, ok := r.identities[identityKey]; ok {
			return false
		}
		r.identities[identityKey] = struct{}{}
	}
	r.names[key] = struct{}{}
	return true
}

// ClaimSynthetic занимает первое свободное имя из base, "base (2)", "base (3)"...
func (r *usedRegistry) ClaimSynthetic(base string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := base
	for n := 2; ; n++ {
		if _, ok := r.names[normalizeName(name)]; !ok {
			r.names[normalizeName(name)] = struct{}{}
			return name
		}
		name = fmt.Sprintf("%s (%d)", base, n)
	}
}

// ClaimPhoto занимает URL фото. Пустой URL не занимается.
func (r *usedRegistry) ClaimPhoto(url string) bool {
	if url == "" {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.photos[url]; ok {
		return false
	}
	r.photos[url] = struct{}{}
	return true
}

// SeedFrom занимает все локации и фото из уже собранных блоков.
func (r *usedRegistry) SeedFrom(blocks []model.ContentBlock) {
	for _, b := range blocks {
		switch c := b.Content.(type) {
		case model.LocationContent:
			for _, card := range append([]model.LocationCard{c.MainLocation}, c.AlternativeLocations...) {
				r.ClaimLocation(card.Name, card.IdentityKey())
				for _, p := range card.Photos {
					r.ClaimPhoto(p)
				}
			}
		case model.PhotoContent:
			r.ClaimPhoto(c.URL)
		case model.SlideContent:
			r.ClaimPhoto(c.PhotoURL)
		case model.ThreeColumnsContent:
			for _, col := range c.Columns {
				r.ClaimPhoto(col.PhotoURL)
			}
		}
	}
}
