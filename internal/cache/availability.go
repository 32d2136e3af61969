package cache

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var ErrCacheMiss = errors.New("availability not cached")

// AvailabilityEntry 票種可售數量快照，Version 取自票種的變動計數器
type AvailabilityEntry struct {
	TicketTypeID string `json:"ticket_type_id"`
	Total        int    `json:"total"`
	Booked       int    `json:"booked"`
	Available    int    `json:"available"`
	Version      int64  `json:"version"`
}

// AvailabilityCache 給前台顯示用的可售數量，只是 in-process 計數器的投影，不參與 reserve 判斷
type AvailabilityCache interface {
	// Put 只有 version 比快取新時才寫入，回傳是否有寫入
	Put(ctx context.Context, eventID string, entry AvailabilityEntry) (bool, error)
	Get(ctx context.Context, eventID, ticketTypeID string) (AvailabilityEntry, error)
	GetEvent(ctx context.Context, eventID string) ([]AvailabilityEntry, error)
	Invalidate(ctx context.Context, eventID string) error
}

type MemoryAvailabilityCache struct {
	mu      sync.RWMutex
	entries map[string]map[string]AvailabilityEntry
}

func NewMemoryAvailabilityCache() AvailabilityCache {
	return &MemoryAvailabilityCache{
		entries: make(map[string]map[string]AvailabilityEntry),
	}
}

func (c *MemoryAvailabilityCache) Put(ctx context.Context, eventID string, entry AvailabilityEntry) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	byType, ok := c.entries[eventID]
	if !ok {
		byType = make(map[string]AvailabilityEntry)
		c.entries[eventID] = byType
	}
	if cur, ok := byType[entry.TicketTypeID]; ok && cur.Version >= entry.Version {
		return false, nil
	}
	byType[entry.TicketTypeID] = entry
	return true, nil
}

func (c *MemoryAvailabilityCache) Get(ctx context.Context, eventID, ticketTypeID string) (AvailabilityEntry, error) {
	if err := ctx.Err(); err != nil {
		return AvailabilityEntry{}, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[eventID][ticketTypeID]
	if !ok {
		return AvailabilityEntry{}, ErrCacheMiss
	}
	return entry, nil
}

func (c *MemoryAvailabilityCache) GetEvent(ctx context.Context, eventID string) ([]AvailabilityEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	byType, ok := c.entries[eventID]
	if !ok || len(byType) == 0 {
		return nil, ErrCacheMiss
	}
	out := make([]AvailabilityEntry, 0, len(byType))
	for _, e := range byType {
		out = append(out, e)
	}
	sortEntries(out)
	return out, nil
}

func (c *MemoryAvailabilityCache) Invalidate(ctx context.Context, eventID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	delete(c.entries, eventID)
	c.mu.Unlock()
	return nil
}

func sortEntries(entries []AvailabilityEntry) {
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].TicketTypeID < entries[j].TicketTypeID
	})
}
