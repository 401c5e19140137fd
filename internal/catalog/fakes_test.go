package catalog

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"traking-shop/internal/models"
	"traking-shop/internal/store"
)

// memStore is an in-memory store.Store that counts the calls the pipeline makes.
type memStore struct {
	mu       sync.Mutex
	skins    []models.Skin
	products map[string]models.Product
	links    []models.AccountSkinLink

	lookupCalls int
	createCalls int
	updateCalls int
	linkCalls   int

	failCreateCall map[int]bool // 1-based CreateSkins call numbers that fail
	failLinks      error
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{products: map[string]models.Product{}, failCreateCall: map[int]bool{}}
}

func (m *memStore) addProduct(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[id] = models.Product{ID: id, Name: "account " + id}
}

func (m *memStore) FindSkinsBySkinExternalIDs(ctx context.Context, ids []string) ([]models.Skin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Skin
	for _, s := range m.skins {
		if want[s.SkinExternalID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) FindSkinsByIDs(ctx context.Context, ids []string) ([]models.Skin, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Skin
	for _, s := range m.skins {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) CreateSkins(ctx context.Context, skins []models.Skin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.createCalls++
	if m.failCreateCall[m.createCalls] {
		return errors.New("insert rejected")
	}
	for _, s := range skins {
		for _, existing := range m.skins {
			if existing.Key() == s.Key() {
				return errors.New("duplicate natural key")
			}
		}
	}
	for _, s := range skins {
		if s.ID == "" {
			s.ID = uuid.NewString()
		}
		m.skins = append(m.skins, s)
	}
	return nil
}

func (m *memStore) UpdateSkinByKey(ctx context.Context, skin models.Skin) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	for i := range m.skins {
		if m.skins[i].Key() == skin.Key() {
			m.skins[i].Weapon = skin.Weapon
			m.skins[i].Name = skin.Name
			m.skins[i].ImageURL = skin.ImageURL
			m.skins[i].Rarity = skin.Rarity
			m.skins[i].Collection = skin.Collection
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *memStore) ListSkins(ctx context.Context, f store.SkinFilter) ([]models.Skin, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Skin
	for _, s := range m.skins {
		if f.Weapon != "" && s.Weapon != f.Weapon {
			continue
		}
		if f.Rarity != "" && s.Rarity != f.Rarity {
			continue
		}
		if f.Collection != "" && s.Collection != f.Collection {
			continue
		}
		if f.ExcludeCollection != "" && s.Collection == f.ExcludeCollection {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(s.Name), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, s)
	}
	return out, int64(len(out)), nil
}

func (m *memStore) Facets(ctx context.Context) (store.Facets, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, r, c := map[string]bool{}, map[string]bool{}, map[string]bool{}
	for _, s := range m.skins {
		w[s.Weapon], r[s.Rarity], c[s.Collection] = true, true, true
	}
	return store.Facets{Weapons: keys(w), Rarities: keys(r), Collections: keys(c)}, nil
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (m *memStore) GetProduct(ctx context.Context, id string) (models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return p, store.ErrNotFound
	}
	return p, nil
}

func (m *memStore) LinkedSkins(ctx context.Context, productID string) ([]models.AccountSkinLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.AccountSkinLink
	for _, l := range m.links {
		if l.ProductID != productID {
			continue
		}
		for i := range m.skins {
			if m.skins[i].ID == l.SkinID {
				s := m.skins[i]
				l.Skin = &s
			}
		}
		out = append(out, l)
	}
	return out, nil
}

func (m *memStore) CreateLinks(ctx context.Context, productID string, skinIDs []string) ([]models.AccountSkinLink, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.linkCalls++
	if m.failLinks != nil {
		return nil, m.failLinks
	}
	var out []models.AccountSkinLink
	for _, id := range skinIDs {
		for _, l := range m.links {
			if l.ProductID == productID && l.SkinID == id {
				return nil, errors.New("duplicate link")
			}
		}
		out = append(out, models.AccountSkinLink{ID: uuid.NewString(), ProductID: productID, SkinID: id})
	}
	m.links = append(m.links, out...)
	return out, nil
}

func (m *memStore) DeleteLink(ctx context.Context, productID, linkID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, l := range m.links {
		if l.ID == linkID && l.ProductID == productID {
			m.links = append(m.links[:i], m.links[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

// fakeSource serves a fixed catalog
type fakeSource struct {
	weapons    []models.CatalogWeapon
	tiers      map[string]models.ContentTier
	weaponsErr error
	tiersErr   error
}

func (f *fakeSource) FetchWeapons(ctx context.Context) ([]models.CatalogWeapon, error) {
	if f.weaponsErr != nil {
		return nil, f.weaponsErr
	}
	return f.weapons, nil
}

func (f *fakeSource) FetchContentTiers(ctx context.Context) (map[string]models.ContentTier, error) {
	if f.tiersErr != nil {
		return nil, f.tiersErr
	}
	return f.tiers, nil
}

func draft(weapon string, i int) models.Skin {
	return models.Skin{
		Weapon:           weapon,
		Name:             fmt.Sprintf("%s Skin %d", weapon, i),
		ImageURL:         fmt.Sprintf("https://img/%s/%d.png", weapon, i),
		Rarity:           models.RarityCommon,
		Collection:       models.DefaultCollection,
		WeaponExternalID: "w-" + weapon,
		SkinExternalID:   fmt.Sprintf("%s-%d", weapon, i),
	}
}

func drafts(weapon string, n int) []models.Skin {
	out := make([]models.Skin, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, draft(weapon, i))
	}
	return out
}

func quietGateway(st store.Store) *Gateway {
	return NewGateway(st, WithPause(0, DefaultPauseEvery))
}
