package attrstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/loopgrid/internal/attribute"
	"github.com/specialistvlad/loopgrid/internal/ctxlog"
)

// Store owns attribute definitions and their base values. Definitions are
// append-only; values may be updated with Set.
//
// All methods are safe for concurrent use. Evaluations never write to the
// store; they work on a Snapshot.
type Store struct {
	mu       sync.RWMutex
	order    []string
	attrs    map[string]attribute.Attribute
	values   map[string]float64
	blocks   map[string]attribute.Block
	blockIDs []string
	revision uint64
}

// New creates a new, empty attribute store.
func New() *Store {
	return &Store{
		attrs:  make(map[string]attribute.Attribute),
		values: make(map[string]float64),
		blocks: make(map[string]attribute.Block),
	}
}

// Define registers attrs as one batch. Every dependency must name an attribute
// that is already defined or is part of the same batch, which is how mutually
// dependent attributes are introduced. On any error nothing is registered.
func (s *Store) Define(ctx context.Context, attrs ...attribute.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkBatch(attrs); err != nil {
		return err
	}
	s.commit(attrs)
	ctxlog.FromContext(ctx).Debug("Attributes defined.", "count", len(attrs), "total", len(s.order))
	return nil
}

// DefineBlock registers a block together with the attributes it introduces.
// Ids listed in b.Attributes may refer to attributes already in the store;
// the ids of attrs are appended to the block if not listed. The whole call
// is atomic.
func (s *Store) DefineBlock(ctx context.Context, b attribute.Block, attrs ...attribute.Attribute) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.ID == "" {
		return &attribute.Error{Kind: attribute.ErrInvalidDefinition, Err: fmt.Errorf("block id must not be empty")}
	}
	if _, exists := s.blocks[b.ID]; exists {
		return &attribute.Error{Kind: attribute.ErrDuplicateID, ID: b.ID, Err: fmt.Errorf("block already defined")}
	}
	if err := s.checkBatch(attrs); err != nil {
		return err
	}

	block := attribute.Block{
		ID:          b.ID,
		Name:        b.Name,
		Description: b.Description,
		Attributes:  append([]string(nil), b.Attributes...),
	}
	listed := make(map[string]struct{}, len(block.Attributes))
	for _, id := range block.Attributes {
		listed[id] = struct{}{}
	}
	batch := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		batch[a.ID] = struct{}{}
		if _, ok := listed[a.ID]; !ok {
			block.Attributes = append(block.Attributes, a.ID)
			listed[a.ID] = struct{}{}
		}
	}
	for _, id := range block.Attributes {
		_, inBatch := batch[id]
		_, inStore := s.attrs[id]
		if !inBatch && !inStore {
			return &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id, Err: fmt.Errorf("listed by block %q", b.ID)}
		}
	}

	s.commit(attrs)
	s.blocks[block.ID] = block
	s.blockIDs = append(s.blockIDs, block.ID)
	ctxlog.FromContext(ctx).Debug("Block defined.", "block", block.ID, "attributes", len(block.Attributes))
	return nil
}

// checkBatch validates attrs against the store and each other. Caller holds mu.
func (s *Store) checkBatch(attrs []attribute.Attribute) error {
	batch := make(map[string]struct{}, len(attrs))
	for _, a := range attrs {
		if err := a.Validate(); err != nil {
			return err
		}
		if _, exists := s.attrs[a.ID]; exists {
			return &attribute.Error{Kind: attribute.ErrDuplicateID, ID: a.ID}
		}
		if _, exists := batch[a.ID]; exists {
			return &attribute.Error{Kind: attribute.ErrDuplicateID, ID: a.ID, Err: fmt.Errorf("defined twice in one batch")}
		}
		batch[a.ID] = struct{}{}
	}
	for _, a := range attrs {
		for _, dep := range a.Dependencies {
			_, inStore := s.attrs[dep]
			_, inBatch := batch[dep]
			if !inStore && !inBatch {
				return &attribute.Error{Kind: attribute.ErrUnknownDependency, ID: a.ID, Ref: dep}
			}
		}
	}
	return nil
}

// commit appends a validated batch. Caller holds mu.
func (s *Store) commit(attrs []attribute.Attribute) {
	for _, a := range attrs {
		c := a.Clone()
		s.attrs[c.ID] = c
		s.order = append(s.order, c.ID)
		if c.Value != nil {
			s.values[c.ID] = *c.Value
		}
	}
	if len(attrs) > 0 {
		s.revision++
	}
}

// Get returns the current base value of id and whether it has one.
func (s *Store) Get(id string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.attrs[id]; !ok {
		return 0, false, &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id}
	}
	v, ok := s.values[id]
	return v, ok, nil
}

// Set updates the base value of id.
func (s *Store) Set(id string, value float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.attrs[id]; !ok {
		return &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id}
	}
	s.values[id] = value
	return nil
}

// SetAll copies every value of snap that names a defined attribute into the
// store. It is used to carry converged results forward as the next seeds.
func (s *Store) SetAll(snap Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range snap.IDs() {
		if _, ok := s.attrs[id]; !ok {
			return &attribute.Error{Kind: attribute.ErrUnknownAttribute, ID: id}
		}
	}
	for _, id := range snap.IDs() {
		v, _ := snap.Get(id)
		s.values[id] = v
	}
	return nil
}

// Snapshot returns an immutable copy of all current values.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return NewSnapshot(s.values)
}

// Attribute returns a copy of the definition of id.
func (s *Store) Attribute(id string) (attribute.Attribute, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.attrs[id]
	if !ok {
		return attribute.Attribute{}, false
	}
	return a.Clone(), true
}

// Attributes returns copies of all definitions in definition order.
func (s *Store) Attributes() []attribute.Attribute {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attribute.Attribute, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.attrs[id].Clone())
	}
	return out
}

// Block returns a copy of block id.
func (s *Store) Block(id string) (attribute.Block, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.blocks[id]
	if !ok {
		return attribute.Block{}, false
	}
	b.Attributes = append([]string(nil), b.Attributes...)
	return b, true
}

// Blocks returns copies of all blocks in definition order.
func (s *Store) Blocks() []attribute.Block {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]attribute.Block, 0, len(s.blockIDs))
	for _, id := range s.blockIDs {
		b := s.blocks[id]
		b.Attributes = append([]string(nil), b.Attributes...)
		out = append(out, b)
	}
	return out
}

// Len returns the number of defined attributes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Revision changes every time definitions are added. A dependency graph built
// at one revision must be rebuilt when the revision moves.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// Snapshot is an immutable mapping of attribute id to value.
type Snapshot struct {
	values map[string]float64
}

// NewSnapshot copies values into a new Snapshot.
func NewSnapshot(values map[string]float64) Snapshot {
	c := make(map[string]float64, len(values))
	for k, v := range values {
		c[k] = v
	}
	return Snapshot{values: c}
}

// Get returns the value of id and whether it is present.
func (s Snapshot) Get(id string) (float64, bool) {
	v, ok := s.values[id]
	return v, ok
}

// Len returns the number of values.
func (s Snapshot) Len() int {
	return len(s.values)
}

// IDs returns the ids with a value, sorted.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, len(s.values))
	for id := range s.values {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Map returns a mutable copy of the values.
func (s Snapshot) Map() map[string]float64 {
	c := make(map[string]float64, len(s.values))
	for k, v := range s.values {
		c[k] = v
	}
	return c
}
