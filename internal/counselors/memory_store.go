package counselors

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore implements Store with in-memory storage.
// Suitable for development and testing.
type MemoryStore struct {
	mu         sync.RWMutex
	counselors map[string]*Counselor
	order      []string // insertion order for stable listings
}

// NewMemoryStore creates a new in-memory counselor store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counselors: make(map[string]*Counselor),
	}
}

var _ Store = (*MemoryStore)(nil)

// CreateCounselor inserts a profile.
func (m *MemoryStore) CreateCounselor(ctx context.Context, c *Counselor) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.counselors {
		if strings.EqualFold(existing.Email, c.Email) {
			return ErrDuplicateEmail
		}
	}
	m.counselors[c.ID] = cloneCounselor(c)
	m.order = append(m.order, c.ID)
	return nil
}

// GetCounselor retrieves a profile by ID.
func (m *MemoryStore) GetCounselor(ctx context.Context, id string) (*Counselor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.counselors[id]
	if !ok {
		return nil, ErrCounselorNotFound
	}
	return cloneCounselor(c), nil
}

// ListCounselors returns profiles matching the filter in insertion order.
func (m *MemoryStore) ListCounselors(ctx context.Context, f Filter) ([]*Counselor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	matched := []*Counselor{}
	skipped := 0
	for _, id := range m.order {
		c, ok := m.counselors[id]
		if !ok || !matches(c, f) {
			continue
		}
		if skipped < f.Offset {
			skipped++
			continue
		}
		matched = append(matched, cloneCounselor(c))
		if f.Limit > 0 && len(matched) >= f.Limit {
			break
		}
	}
	return matched, nil
}

func matches(c *Counselor, f Filter) bool {
	if f.Verified != nil && c.IsVerified != *f.Verified {
		return false
	}
	if f.Available != nil && c.IsAvailable != *f.Available {
		return false
	}
	if f.Specialty != "" {
		found := false
		for _, s := range c.Specialties {
			if strings.EqualFold(s, f.Specialty) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if f.Location != "" &&
		!strings.Contains(strings.ToLower(c.Location), strings.ToLower(f.Location)) {
		return false
	}
	return true
}

// Specialties returns the distinct specialties of verified counselors,
// sorted.
func (m *MemoryStore) Specialties(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	seen := make(map[string]bool)
	out := []string{}
	for _, c := range m.counselors {
		if !c.IsVerified {
			continue
		}
		for _, s := range c.Specialties {
			if !seen[s] {
				seen[s] = true
				out = append(out, s)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// SetVerified flips the verification and availability flags.
func (m *MemoryStore) SetVerified(ctx context.Context, id string, verified, available bool, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	c, ok := m.counselors[id]
	if !ok {
		return ErrCounselorNotFound
	}
	c.IsVerified = verified
	c.IsAvailable = available
	c.UpdatedAt = at
	return nil
}

// DeleteCounselor removes a profile.
func (m *MemoryStore) DeleteCounselor(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.counselors[id]; !ok {
		return ErrCounselorNotFound
	}
	delete(m.counselors, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Counts returns verified and pending totals.
func (m *MemoryStore) Counts(ctx context.Context) (verified, pending int, err error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.counselors {
		if c.IsVerified {
			verified++
		} else {
			pending++
		}
	}
	return verified, pending, nil
}

func cloneCounselor(c *Counselor) *Counselor {
	cp := *c
	cp.Specialties = append([]string(nil), c.Specialties...)
	cp.Education = append([]string(nil), c.Education...)
	cp.Certifications = append([]string(nil), c.Certifications...)
	cp.Languages = append([]string(nil), c.Languages...)
	cp.SessionTypes = append([]string(nil), c.SessionTypes...)
	return &cp
}
