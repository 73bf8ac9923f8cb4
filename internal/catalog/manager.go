package catalog

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

const firstID = 1

// Manager owns the authoritative product collection. Every mutation is saved
// through the Storage before it becomes visible; if the save fails the
// in-memory collection is left as it was.
type Manager struct {
	mu       sync.RWMutex
	products []Product

	store   Storage
	log     *zap.Logger
	metrics *Metrics
	strict  bool
}

type Option func(*Manager)

func WithLogger(log *zap.Logger) Option {
	return func(m *Manager) { m.log = log }
}

func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) { m.metrics = metrics }
}

// WithStrictLoad makes NewManager fail when the initial load fails instead of
// starting with an empty collection.
func WithStrictLoad(strict bool) Option {
	return func(m *Manager) { m.strict = strict }
}

func NewManager(ctx context.Context, store Storage, opts ...Option) (*Manager, error) {
	m := &Manager{
		store: store,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}

	products, err := store.Load(ctx)
	if err != nil {
		if m.strict {
			return nil, err
		}
		m.log.Warn("load products failed, starting with an empty catalog", zap.Error(err))
		products = []Product{}
	}

	m.products = products
	if m.metrics != nil {
		m.metrics.Products.Set(float64(len(products)))
	}
	return m, nil
}

func (m *Manager) Create(ctx context.Context, d Draft) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.create(ctx, d)
	m.metrics.observe("create", err, len(m.products))
	if err != nil {
		return Product{}, err
	}

	m.log.Info("product created", zap.Int("id", p.ID), zap.String("code", p.Code), zap.String("title", p.Title))
	return p, nil
}

func (m *Manager) create(ctx context.Context, d Draft) (Product, error) {
	if err := d.Validate(); err != nil {
		return Product{}, err
	}
	if m.indexOfCode(d.Code, -1) >= 0 {
		return Product{}, &DuplicateCodeError{Code: d.Code}
	}

	p := d.product(m.nextID())

	next := make([]Product, len(m.products), len(m.products)+1)
	copy(next, m.products)
	next = append(next, p)

	if err := m.commit(ctx, next); err != nil {
		return Product{}, err
	}
	return p, nil
}

// List returns a copy of the collection in insertion order.
func (m *Manager) List() []Product {
	return m.ListN(0)
}

// ListN returns the first n products, or all of them when n <= 0.
func (m *Manager) ListN(n int) []Product {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if n <= 0 || n > len(m.products) {
		n = len(m.products)
	}
	return cloneProducts(m.products[:n])
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.products)
}

func (m *Manager) Get(id int) (Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	i := m.indexOfID(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	return m.products[i], nil
}

// Update replaces every field except the id. The draft is validated like on
// create, and its code may not belong to another product.
func (m *Manager) Update(ctx context.Context, id int, d Draft) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, err := m.update(ctx, id, d)
	m.metrics.observe("update", err, len(m.products))
	if err != nil {
		return Product{}, err
	}

	m.log.Info("product updated", zap.Int("id", p.ID), zap.String("code", p.Code))
	return p, nil
}

func (m *Manager) update(ctx context.Context, id int, d Draft) (Product, error) {
	i := m.indexOfID(id)
	if i < 0 {
		return Product{}, ErrNotFound
	}
	if err := d.Validate(); err != nil {
		return Product{}, err
	}
	if m.indexOfCode(d.Code, i) >= 0 {
		return Product{}, &DuplicateCodeError{Code: d.Code}
	}

	p := d.product(id)

	next := cloneProducts(m.products)
	next[i] = p

	if err := m.commit(ctx, next); err != nil {
		return Product{}, err
	}
	return p, nil
}

func (m *Manager) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	err := m.delete(ctx, id)
	m.metrics.observe("delete", err, len(m.products))
	if err != nil {
		return err
	}

	m.log.Info("product deleted", zap.Int("id", id))
	return nil
}

func (m *Manager) delete(ctx context.Context, id int) error {
	i := m.indexOfID(id)
	if i < 0 {
		return ErrNotFound
	}

	next := make([]Product, 0, len(m.products)-1)
	next = append(next, m.products[:i]...)
	next = append(next, m.products[i+1:]...)

	return m.commit(ctx, next)
}

func (m *Manager) Ping(ctx context.Context) error {
	return m.store.Ping(ctx)
}

// commit saves next and only then swaps it in.
func (m *Manager) commit(ctx context.Context, next []Product) error {
	if err := m.store.Save(ctx, next); err != nil {
		m.log.Error("save products failed", zap.Error(err))
		if !isErr(err, ErrPersistence) {
			err = &PersistenceError{Op: "save", Err: err}
		}
		return err
	}
	m.products = next
	return nil
}

// nextID is one past the highest id held, so gaps left by deletes are never
// refilled below the current maximum.
func (m *Manager) nextID() int {
	maxID := firstID - 1
	for _, p := range m.products {
		if p.ID > maxID {
			maxID = p.ID
		}
	}
	return maxID + 1
}

func (m *Manager) indexOfID(id int) int {
	for i, p := range m.products {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// indexOfCode ignores the product at index skip.
func (m *Manager) indexOfCode(code string, skip int) int {
	for i, p := range m.products {
		if i != skip && p.Code == code {
			return i
		}
	}
	return -1
}

func isErr(err, target error) bool { return errors.Is(err, target) }
