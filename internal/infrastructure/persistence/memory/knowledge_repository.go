package memory

import (
	"context"
	"sync"

	"github.com/vitalroute/v1/internal/ports/outbound"
)

// KnowledgeRepository is an in-memory static knowledge base keyed by domain
type KnowledgeRepository struct {
	entries map[string][]outbound.KnowledgeEntry
	mutex   sync.RWMutex
}

// NewKnowledgeRepository creates an in-memory knowledge repository
func NewKnowledgeRepository() *KnowledgeRepository {
	return &KnowledgeRepository{
		entries: make(map[string][]outbound.KnowledgeEntry),
	}
}

// Put stores one knowledge entry under its domain
func (r *KnowledgeRepository) Put(ctx context.Context, entry outbound.KnowledgeEntry) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.entries[entry.Domain] = append(r.entries[entry.Domain], entry)
	return nil
}

// ByDomain lists the entries stored under one domain
func (r *KnowledgeRepository) ByDomain(ctx context.Context, domain string) ([]outbound.KnowledgeEntry, error) {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	stored := r.entries[domain]
	result := make([]outbound.KnowledgeEntry, len(stored))
	copy(result, stored)
	return result, nil
}

var _ outbound.KnowledgeRepository = (*KnowledgeRepository)(nil)
