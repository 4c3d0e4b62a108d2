package inbound

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

type claimStatus string

const (
	claimProcessing claimStatus = "processing"
	claimComplete   claimStatus = "complete"
)

type claimEntry struct {
	status    claimStatus
	claimID   string
	ttl       time.Duration
	expiresAt time.Time
}

// MemoryClaimStore keeps delivery claims in process memory. Claims do not
// survive a restart.
type MemoryClaimStore struct {
	Now func() time.Time

	mu      sync.Mutex
	entries map[string]claimEntry
	claims  map[string]string
	nextID  int
}

func NewMemoryClaimStore() *MemoryClaimStore {
	return &MemoryClaimStore{
		entries: map[string]claimEntry{},
		claims:  map[string]string{},
	}
}

func (s *MemoryClaimStore) Claim(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	if s == nil {
		return "", false, inboundInternal("inbound: claim store is nil", nil)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return "", false, inboundBadInput("inbound: claim key is required", nil)
	}
	if ttl <= 0 {
		ttl = DefaultClaimTTL
	}
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.init()
	s.evictExpiredLocked(now)
	if entry, exists := s.entries[key]; exists && now.Before(entry.expiresAt) {
		return "", false, nil
	} else if exists {
		// Processing lease lapsed without Complete or Fail.
		delete(s.claims, entry.claimID)
	}

	s.nextID++
	claimID := fmt.Sprintf("claim_%d", s.nextID)
	s.entries[key] = claimEntry{
		status:    claimProcessing,
		claimID:   claimID,
		ttl:       ttl,
		expiresAt: now.Add(ttl),
	}
	s.claims[claimID] = key
	return claimID, true, nil
}

func (s *MemoryClaimStore) Complete(_ context.Context, claimID string) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, entry, ok := s.activeLocked(claimID)
	if !ok {
		return nil
	}
	entry.status = claimComplete
	entry.expiresAt = s.now().Add(entry.ttl)
	s.entries[key] = entry
	delete(s.claims, entry.claimID)
	return nil
}

// Fail releases the claim so the next delivery of the same key runs again.
func (s *MemoryClaimStore) Fail(_ context.Context, claimID string, _ error) error {
	if s == nil {
		return inboundInternal("inbound: claim store is nil", nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key, entry, ok := s.activeLocked(claimID)
	if !ok {
		return nil
	}
	delete(s.entries, key)
	delete(s.claims, entry.claimID)
	return nil
}

func (s *MemoryClaimStore) activeLocked(claimID string) (string, claimEntry, bool) {
	s.init()
	claimID = strings.TrimSpace(claimID)
	key, ok := s.claims[claimID]
	if !ok {
		return "", claimEntry{}, false
	}
	entry, exists := s.entries[key]
	if !exists || entry.claimID != claimID || entry.status != claimProcessing {
		delete(s.claims, claimID)
		return "", claimEntry{}, false
	}
	return key, entry, true
}

func (s *MemoryClaimStore) evictExpiredLocked(now time.Time) {
	for key, entry := range s.entries {
		if entry.status == claimComplete && !now.Before(entry.expiresAt) {
			delete(s.entries, key)
		}
	}
}

func (s *MemoryClaimStore) init() {
	if s.entries == nil {
		s.entries = map[string]claimEntry{}
	}
	if s.claims == nil {
		s.claims = map[string]string{}
	}
}

func (s *MemoryClaimStore) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}
