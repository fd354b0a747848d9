// Package approval holds mutating tool calls until a human approves or
// rejects them. Each request resolves at most once.
package approval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/muninn/internal/apperr"
	"github.com/starford/muninn/internal/models"
)

// Action performs the deferred effect.
type Action func(ctx context.Context) (models.ChangeRecord, error)

// Request describes a pending action for the UI. The executor is never exposed.
type Request struct {
	ID          string    `json:"id"`
	Tool        string    `json:"tool,omitempty"`
	Description string    `json:"description"`
	Preview     string    `json:"preview,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Resolution is reported to the resolve hook after approve or reject.
type Resolution struct {
	ID       string               `json:"id"`
	Approved bool                 `json:"approved"`
	Record   *models.ChangeRecord `json:"record,omitempty"`
	Error    string               `json:"error,omitempty"`
}

type pending struct {
	req    Request
	action Action
}

// Option configures a Gate.
type Option func(*Gate)

// WithHistory records every successfully executed action.
func WithHistory(h *History) Option {
	return func(g *Gate) {
		g.history = h
	}
}

// WithOnResolved registers a hook called after every approve or reject.
func WithOnResolved(fn func(Resolution)) Option {
	return func(g *Gate) {
		g.onResolved = fn
	}
}

// Gate maps approval ids to deferred actions.
type Gate struct {
	mu      sync.Mutex
	pending map[string]pending

	history    *History
	onResolved func(Resolution)
	now        func() time.Time
}

// NewGate returns an empty Gate.
func NewGate(opts ...Option) *Gate {
	g := &Gate{
		pending: make(map[string]pending),
		now:     time.Now,
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Register stores action under id. Registering an id twice fails with
// apperr.ErrAlreadyExists.
func (g *Gate) Register(id string, req Request, action Action) error {
	if id == "" || action == nil {
		return fmt.Errorf("approval: id and action required: %w", apperr.ErrInvalidArgument)
	}
	req.ID = id
	if req.CreatedAt.IsZero() {
		req.CreatedAt = g.now()
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.pending[id]; ok {
		return fmt.Errorf("approval: %s: %w", id, apperr.ErrAlreadyExists)
	}
	g.pending[id] = pending{req: req, action: action}
	return nil
}

// Request stores action under a fresh id and returns it.
func (g *Gate) Request(req Request, action Action) (string, error) {
	id := uuid.NewString()
	if err := g.Register(id, req, action); err != nil {
		return "", err
	}
	return id, nil
}

// take removes and returns the pending entry in one step.
func (g *Gate) take(id string) (pending, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[id]
	if ok {
		delete(g.pending, id)
	}
	return p, ok
}

// Approve removes the action and runs it. An unknown or already resolved id
// fails with apperr.ErrNotFound. The id is consumed even when the action fails.
func (g *Gate) Approve(ctx context.Context, id string) (models.ChangeRecord, error) {
	p, ok := g.take(id)
	if !ok {
		return models.ChangeRecord{}, fmt.Errorf("approval: %s: %w", id, apperr.ErrNotFound)
	}

	rec, err := p.action(ctx)
	res := Resolution{ID: id, Approved: true}
	if err != nil {
		res.Error = err.Error()
	} else {
		res.Record = &rec
		if g.history != nil {
			g.history.Add(id, rec)
		}
	}
	if g.onResolved != nil {
		g.onResolved(res)
	}
	return rec, err
}

// Reject discards the action without running it and reports whether it
// existed.
func (g *Gate) Reject(id string) bool {
	_, ok := g.take(id)
	if ok && g.onResolved != nil {
		g.onResolved(Resolution{ID: id})
	}
	return ok
}

// Get returns the pending request for id.
func (g *Gate) Get(id string) (Request, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	p, ok := g.pending[id]
	return p.req, ok
}

// Pending lists every unresolved request, oldest first.
func (g *Gate) Pending() []Request {
	g.mu.Lock()
	out := make([]Request, 0, len(g.pending))
	for _, p := range g.pending {
		out = append(out, p.req)
	}
	g.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
