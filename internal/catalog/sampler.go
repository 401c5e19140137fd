package catalog

import (
	"math/rand"
	"sync"
	"time"

	"traking-shop/internal/models"
)

// Sampler draws balanced random subsets of a skin pool. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSampler uses src for every random draw; a nil src seeds from the clock.
func NewSampler(src rand.Source) *Sampler {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Sampler{rng: rand.New(src)}
}

// Sample picks min(target, len(pool)) distinct skins, giving every weapon group
// floor(target/W) items (one more for the first target%W groups) before filling
// the shortfall from whatever is left.
func (s *Sampler) Sample(pool []models.Skin, target int) []models.Skin {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool = dedupe(pool)
	if target <= 0 || len(pool) == 0 {
		return []models.Skin{}
	}
	if target > len(pool) {
		target = len(pool)
	}

	groups, weapons := groupByWeapon(pool)
	perWeapon := target / len(weapons)
	remainder := target % len(weapons)

	used := make([]bool, len(pool))
	selected := make([]int, 0, target)
	for i, weapon := range weapons {
		want := perWeapon
		if i < remainder {
			want++
		}
		members := groups[weapon]
		s.rng.Shuffle(len(members), func(a, b int) { members[a], members[b] = members[b], members[a] })
		if want > len(members) {
			want = len(members)
		}
		for _, idx := range members[:want] {
			used[idx] = true
			selected = append(selected, idx)
		}
	}

	if short := target - len(selected); short > 0 {
		var rest []int
		for idx := range pool {
			if !used[idx] {
				rest = append(rest, idx)
			}
		}
		s.rng.Shuffle(len(rest), func(a, b int) { rest[a], rest[b] = rest[b], rest[a] })
		if short > len(rest) {
			short = len(rest)
		}
		selected = append(selected, rest[:short]...)
	}

	s.rng.Shuffle(len(selected), func(a, b int) { selected[a], selected[b] = selected[b], selected[a] })
	if len(selected) > target {
		selected = selected[:target]
	}
	out := make([]models.Skin, len(selected))
	for i, idx := range selected {
		out[i] = pool[idx]
	}
	return out
}

// Pick returns n skins drawn uniformly without replacement, ignoring weapons.
func (s *Sampler) Pick(pool []models.Skin, n int) []models.Skin {
	s.mu.Lock()
	defer s.mu.Unlock()

	pool = dedupe(pool)
	if n <= 0 {
		return []models.Skin{}
	}
	perm := s.rng.Perm(len(pool))
	if n > len(perm) {
		n = len(perm)
	}
	out := make([]models.Skin, n)
	for i := 0; i < n; i++ {
		out[i] = pool[perm[i]]
	}
	return out
}

// Between returns a uniform integer in [lo, hi]
func (s *Sampler) Between(lo, hi int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if hi <= lo {
		return lo
	}
	return lo + s.rng.Intn(hi-lo+1)
}

// groupByWeapon indexes the pool by weapon, keeping first-appearance order of weapons
func groupByWeapon(pool []models.Skin) (map[string][]int, []string) {
	groups := make(map[string][]int)
	var weapons []string
	for i, s := range pool {
		if _, ok := groups[s.Weapon]; !ok {
			weapons = append(weapons, s.Weapon)
		}
		groups[s.Weapon] = append(groups[s.Weapon], i)
	}
	return groups, weapons
}

// dedupe drops repeated skins by natural key, or by id for skins without one
func dedupe(pool []models.Skin) []models.Skin {
	seen := make(map[string]bool, len(pool))
	out := make([]models.Skin, 0, len(pool))
	for _, s := range pool {
		id := s.WeaponExternalID + "\x00" + s.SkinExternalID
		if s.WeaponExternalID == "" && s.SkinExternalID == "" {
			if s.ID == "" {
				out = append(out, s)
				continue
			}
			id = "id\x00" + s.ID
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, s)
	}
	return out
}
