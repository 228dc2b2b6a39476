package client

import (
	"context"
	"sort"
	"sync"
)

// Item is any resource payload carrying an identity and a sort position.
type Item interface {
	ItemID() string
	ItemOrder() int
}

// Collection keeps a local ordered copy of one resource list. Mutations go
// through the API first; the local list only changes after the server
// accepts, so a failed call never disturbs what callers already see.
type Collection[T Item] struct {
	client    *Client
	path      string
	listQuery string

	mu      sync.Mutex
	items   []T
	loading bool
	lastErr error
}

func newCollection[T Item](c *Client, path string) *Collection[T] {
	return &Collection[T]{client: c, path: path}
}

// Fetch replaces the local list with the server's current one.
func (c *Collection[T]) Fetch(ctx context.Context) error {
	c.setLoading(true)
	defer c.setLoading(false)

	var fetched []T
	if err := c.client.do(ctx, "GET", c.path+c.listQuery, nil, &fetched); err != nil {
		c.setErr(err)
		return err
	}

	c.mu.Lock()
	c.items = fetched
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// Get fetches a single entry without touching the local list.
func (c *Collection[T]) Get(ctx context.Context, id string) (T, error) {
	var out T
	if err := c.client.do(ctx, "GET", c.path+"/"+id, nil, &out); err != nil {
		return out, err
	}
	return out, nil
}

// Create submits a new entry and, on success, inserts the server's copy
// into the local list at its sorted position.
func (c *Collection[T]) Create(ctx context.Context, input any) (T, error) {
	var out T
	if err := c.client.do(ctx, "POST", c.path, input, &out); err != nil {
		c.setErr(err)
		return out, err
	}

	c.mu.Lock()
	c.items = append(c.items, out)
	c.resortLocked()
	c.lastErr = nil
	c.mu.Unlock()
	return out, nil
}

// Update replaces an entry server-side and re-sorts the local list, since
// an edit may have changed the entry's position.
func (c *Collection[T]) Update(ctx context.Context, id string, input any) (T, error) {
	var out T
	if err := c.client.do(ctx, "PUT", c.path+"/"+id, input, &out); err != nil {
		c.setErr(err)
		return out, err
	}
	c.replaceLocal(out)
	return out, nil
}

// Delete removes an entry. The survivors keep their relative order, so no
// re-sort happens here.
func (c *Collection[T]) Delete(ctx context.Context, id string) error {
	if err := c.client.do(ctx, "DELETE", c.path+"/"+id, nil, nil); err != nil {
		c.setErr(err)
		return err
	}

	c.mu.Lock()
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ItemID() != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	c.lastErr = nil
	c.mu.Unlock()
	return nil
}

// Items returns a copy of the local list in its current order.
func (c *Collection[T]) Items() []T {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether a Fetch is in flight.
func (c *Collection[T]) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the error from the most recent failed call, or nil after a
// successful one.
func (c *Collection[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *Collection[T]) replaceLocal(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	replaced := false
	for i := range c.items {
		if c.items[i].ItemID() == item.ItemID() {
			c.items[i] = item
			replaced = true
			break
		}
	}
	if !replaced {
		c.items = append(c.items, item)
	}
	c.resortLocked()
	c.lastErr = nil
}

func (c *Collection[T]) resortLocked() {
	sort.SliceStable(c.items, func(i, j int) bool {
		return c.items[i].ItemOrder() < c.items[j].ItemOrder()
	})
}

func (c *Collection[T]) setLoading(v bool) {
	c.mu.Lock()
	c.loading = v
	c.mu.Unlock()
}

func (c *Collection[T]) setErr(err error) {
	c.mu.Lock()
	c.lastErr = err
	c.mu.Unlock()
}
