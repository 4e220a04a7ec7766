package hook

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrInterrupt signals that a hook handler wants to stop further processing.
// Returning it from a pre-event hook cancels the operation.
var ErrInterrupt = errors.New("hook interrupted")

// Fn is a hook handler function.
// Returns (modified data, nil) to continue, or (data, ErrInterrupt) to stop.
type Fn func(ctx context.Context, event string, data interface{}) (interface{}, error)

type entry struct {
	priority int
	fn       Fn
	name     string
}

// Center manages event hook registrations.
type Center struct {
	mu    sync.RWMutex
	hooks map[string][]*entry
}

// NewCenter creates a new Center.
func NewCenter() *Center {
	return &Center{hooks: make(map[string][]*entry)}
}

// Register adds a Fn for the given event with the given priority (lower runs
// first). name is used for Unregister.
func (c *Center) Register(event string, priority int, name string, fn Fn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.hooks[event]
	entries = append(entries, &entry{priority: priority, fn: fn, name: name})
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].priority < entries[j].priority
	})
	c.hooks[event] = entries
}

// Unregister removes all hooks with the given name for the given event.
func (c *Center) Unregister(event, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entries := c.hooks[event]
	n := 0
	for _, e := range entries {
		if e.name != name {
			entries[n] = e
			n++
		}
	}
	c.hooks[event] = entries[:n]
}

// Trigger executes all registered hooks for event in priority order.
// Data flows through each handler, allowing modification.
// If any handler returns ErrInterrupt, execution stops.
func (c *Center) Trigger(ctx context.Context, event string, data interface{}) (interface{}, error) {
	c.mu.RLock()
	entries := make([]*entry, len(c.hooks[event]))
	copy(entries, c.hooks[event])
	c.mu.RUnlock()

	var err error
	for _, e := range entries {
		data, err = e.fn(ctx, event, data)
		if errors.Is(err, ErrInterrupt) {
			return data, err
		}
	}
	return data, nil
}

// Guild lifecycle events.
const (
	BeforeGuildDisband = "before_guild_disband"
	AfterGuildDisband  = "after_guild_disband"
	AfterGuildCreate   = "after_guild_create"
)
