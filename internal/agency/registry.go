package agency

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"
)

// Agency is a prison or other custodial establishment reports are filed against.
type Agency struct {
	AgencyID    string `json:"agency_id"`
	Name        string `json:"name"`
	Active      bool   `json:"active"`
	ContactMail string `json:"contact_email"`
}

type AgenciesFile struct {
	Agencies []Agency `json:"agencies"`
}

type Registry struct {
	mu       sync.RWMutex
	agencies map[string]*Agency
}

func NewRegistry() *Registry {
	return &Registry{
		agencies: make(map[string]*Agency),
	}
}

func LoadFromFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read agencies config: %w", err)
	}

	var file AgenciesFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse agencies config: %w", err)
	}

	registry := NewRegistry()
	for i := range file.Agencies {
		registry.Register(&file.Agencies[i])
	}
	return registry, nil
}

func (r *Registry) Register(a *Agency) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agencies[a.AgencyID] = a
}

func (r *Registry) Get(agencyID string) *Agency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agencies[agencyID]
}

// IsActive reports whether reports may be filed against agencyID.
func (r *Registry) IsActive(agencyID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.agencies[agencyID]
	return ok && a.Active
}

// Name returns the display name of agencyID, or the id itself when unknown.
func (r *Registry) Name(agencyID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.agencies[agencyID]; ok && a.Name != "" {
		return a.Name
	}
	return agencyID
}

func (r *Registry) All() []*Agency {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]*Agency, 0, len(r.agencies))
	for _, a := range r.agencies {
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].AgencyID < result[j].AgencyID })
	return result
}
