package relation

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Channel is the peer-facing side of the relation: keys published here are
// visible to every unit on the relation, and Collect gathers the value a
// given key has on each remote unit. Absent keys yield no value, never an
// error.
type Channel interface {
	Publish(key, value string) error
	Collect(key string) ([]string, error)
	UnitCount() int
}

// InMemoryChannel is a Channel held in process memory. It stands in for
// the relation transport in tests and in the CLI, where the surrounding
// orchestration layer owns the real wire.
type InMemoryChannel struct {
	mu        sync.RWMutex
	published map[string]string
	units     map[string]map[string]string
}

// NewInMemoryChannel creates a channel with no peer units.
func NewInMemoryChannel() *InMemoryChannel {
	return &InMemoryChannel{
		published: make(map[string]string),
		units:     make(map[string]map[string]string),
	}
}

// AddUnit registers a peer unit and returns its generated id.
func (c *InMemoryChannel) AddUnit() string {
	id := uuid.New().String()
	c.mu.Lock()
	c.units[id] = make(map[string]string)
	c.mu.Unlock()
	return id
}

// RemoveUnit drops a peer unit and its data.
func (c *InMemoryChannel) RemoveUnit(id string) {
	c.mu.Lock()
	delete(c.units, id)
	c.mu.Unlock()
}

// SetUnitData sets a key on a peer unit, as the remote side would.
func (c *InMemoryChannel) SetUnitData(id, key, value string) {
	c.mu.Lock()
	if unit, ok := c.units[id]; ok {
		unit[key] = value
	}
	c.mu.Unlock()
}

// Publish sets a key visible to all units on the relation.
func (c *InMemoryChannel) Publish(key, value string) error {
	c.mu.Lock()
	c.published[key] = value
	c.mu.Unlock()
	return nil
}

// Published returns the value this side last published for key.
func (c *InMemoryChannel) Published(key string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.published[key]
	return v, ok
}

// Collect returns the value each peer unit presents for key, skipping
// units without data. Units are visited in a stable order.
func (c *InMemoryChannel) Collect(key string) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.units))
	for id := range c.units {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var values []string
	for _, id := range ids {
		if v := c.units[id][key]; v != "" {
			values = append(values, v)
		}
	}
	return values, nil
}

// UnitCount returns the number of peer units on the relation.
func (c *InMemoryChannel) UnitCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.units)
}
