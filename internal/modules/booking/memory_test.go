package booking

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"gohappygo/internal/cache"
	"gohappygo/internal/modules/demand"
	"gohappygo/internal/modules/request"
	"gohappygo/internal/modules/status"
	"gohappygo/internal/modules/transaction"
	"gohappygo/internal/modules/trip"
	"gohappygo/internal/notify"
	"gohappygo/internal/payment"
	"gohappygo/internal/types"
)

var (
	_ UnitOfWork      = (*memUoW)(nil)
	_ TripRepo        = memTrips{}
	_ DemandRepo      = memDemands{}
	_ RequestRepo     = memRequests{}
	_ TransactionRepo = memTransactions{}
	_ payment.Gateway = (*fakeGateway)(nil)
	_ notify.Notifier = (*recordingNotifier)(nil)
	_ cache.Cache     = (*recordingCache)(nil)
)

// memState is the whole database. A unit of work edits a clone and swaps it
// in on success, which gives the same all-or-nothing outcome as a rollback.
type memState struct {
	trips     map[types.ID]trip.Trip
	demands   map[types.ID]demand.Demand
	requests  map[types.ID]request.Request
	history   []request.HistoryEntry
	txs       map[types.ID]transaction.Transaction
	historyID int64
}

func newMemState() *memState {
	return &memState{
		trips:    map[types.ID]trip.Trip{},
		demands:  map[types.ID]demand.Demand{},
		requests: map[types.ID]request.Request{},
		txs:      map[types.ID]transaction.Transaction{},
	}
}

func (s *memState) clone() *memState {
	c := newMemState()
	for k, v := range s.trips {
		c.trips[k] = v
	}
	for k, v := range s.demands {
		c.demands[k] = v
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	for k, v := range s.txs {
		c.txs[k] = v
	}
	c.history = append([]request.HistoryEntry(nil), s.history...)
	c.historyID = s.historyID
	return c
}

// memUoW serialises units of work on one mutex, standing in for the row locks.
// failTxCreate makes every transaction insert fail. afterTripList runs once a
// read-side trip listing has been taken, outside the lock.
type memUoW struct {
	mu            sync.Mutex
	state         *memState
	failTxCreate  error
	afterTripList func()
}

func newMemUoW() *memUoW {
	return &memUoW{state: newMemState()}
}

func (u *memUoW) Do(ctx context.Context, fn func(ctx context.Context, r Repos) error) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	work := u.state.clone()
	if err := fn(ctx, memReposFor(memStore{u: u, tx: work})); err != nil {
		return err
	}
	u.state = work
	return nil
}

func (u *memUoW) Reader() Repos {
	return memReposFor(memStore{u: u})
}

// snapshot is for assertions only.
func (u *memUoW) snapshot() *memState {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.state.clone()
}

func memReposFor(s memStore) Repos {
	return Repos{
		Trips:        memTrips{s},
		Demands:      memDemands{s},
		Requests:     memRequests{s},
		Transactions: memTransactions{s},
	}
}

type memStore struct {
	u  *memUoW
	tx *memState
}

func (m memStore) with(fn func(st *memState) error) error {
	if m.tx != nil {
		return fn(m.tx)
	}
	m.u.mu.Lock()
	defer m.u.mu.Unlock()
	return fn(m.u.state)
}

type memTrips struct{ memStore }

func (m memTrips) Create(_ context.Context, t *trip.Trip) error {
	return m.with(func(st *memState) error {
		st.trips[t.ID] = *t
		return nil
	})
}

func (m memTrips) Get(_ context.Context, id types.ID) (*trip.Trip, error) {
	var out *trip.Trip
	err := m.with(func(st *memState) error {
		t, ok := st.trips[id]
		if !ok {
			return trip.ErrNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (m memTrips) GetForUpdate(ctx context.Context, id types.ID) (*trip.Trip, error) {
	return m.Get(ctx, id)
}

func (m memTrips) Save(_ context.Context, t *trip.Trip) error {
	return m.with(func(st *memState) error {
		cur, ok := st.trips[t.ID]
		if !ok {
			return trip.ErrNotFound
		}
		if cur.Version != t.Version {
			return trip.ErrConcurrentUpdate
		}
		t.Version++
		st.trips[t.ID] = *t
		return nil
	})
}

func (m memTrips) ListByOwner(_ context.Context, ownerID types.ID) ([]trip.Trip, error) {
	out := []trip.Trip{}
	err := m.with(func(st *memState) error {
		for _, t := range st.trips {
			if t.OwnerID == ownerID {
				out = append(out, t)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if m.tx == nil && m.u.afterTripList != nil {
		m.u.afterTripList()
	}
	return out, err
}

type memDemands struct{ memStore }

func (m memDemands) Create(_ context.Context, d *demand.Demand) error {
	return m.with(func(st *memState) error {
		st.demands[d.ID] = *d
		return nil
	})
}

func (m memDemands) Get(_ context.Context, id types.ID) (*demand.Demand, error) {
	var out *demand.Demand
	err := m.with(func(st *memState) error {
		d, ok := st.demands[id]
		if !ok {
			return demand.ErrNotFound
		}
		out = &d
		return nil
	})
	return out, err
}

func (m memDemands) GetForUpdate(ctx context.Context, id types.ID) (*demand.Demand, error) {
	return m.Get(ctx, id)
}

func (m memDemands) Save(_ context.Context, d *demand.Demand) error {
	return m.with(func(st *memState) error {
		cur, ok := st.demands[d.ID]
		if !ok {
			return demand.ErrNotFound
		}
		if cur.Version != d.Version {
			return demand.ErrConcurrentUpdate
		}
		d.Version++
		st.demands[d.ID] = *d
		return nil
	})
}

func (m memDemands) ListByOwner(_ context.Context, ownerID types.ID) ([]demand.Demand, error) {
	out := []demand.Demand{}
	err := m.with(func(st *memState) error {
		for _, d := range st.demands {
			if d.OwnerID == ownerID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type memRequests struct{ memStore }

func (m memRequests) Create(_ context.Context, r *request.Request) error {
	return m.with(func(st *memState) error {
		st.requests[r.ID] = *r
		return nil
	})
}

func (m memRequests) Get(_ context.Context, id types.ID) (*request.Request, error) {
	var out *request.Request
	err := m.with(func(st *memState) error {
		r, ok := st.requests[id]
		if !ok {
			return request.ErrNotFound
		}
		out = &r
		return nil
	})
	return out, err
}

func (m memRequests) GetForUpdate(ctx context.Context, id types.ID) (*request.Request, error) {
	return m.Get(ctx, id)
}

func (m memRequests) Save(_ context.Context, r *request.Request) error {
	return m.with(func(st *memState) error {
		cur, ok := st.requests[r.ID]
		if !ok {
			return request.ErrNotFound
		}
		if cur.Version != r.Version {
			return request.ErrConcurrentUpdate
		}
		r.Version++
		st.requests[r.ID] = *r
		return nil
	})
}

func (m memRequests) AppendHistory(_ context.Context, e *request.HistoryEntry) error {
	return m.with(func(st *memState) error {
		if _, ok := st.requests[e.RequestID]; !ok {
			return request.ErrNotFound
		}
		st.historyID++
		e.ID = st.historyID
		st.history = append(st.history, *e)
		return nil
	})
}

func (m memRequests) History(_ context.Context, requestID types.ID) ([]request.HistoryEntry, error) {
	out := []request.HistoryEntry{}
	err := m.with(func(st *memState) error {
		for _, e := range st.history {
			if e.RequestID == requestID {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func onTarget(r request.Request, target request.Target) bool {
	if target.Kind == request.TargetTrip {
		return r.TripID == target.ID
	}
	return r.DemandID == target.ID
}

func (m memRequests) AnyReached(_ context.Context, target request.Target, set status.Set, except types.ID) (bool, error) {
	found := false
	err := m.with(func(st *memState) error {
		for _, e := range st.history {
			r := st.requests[e.RequestID]
			if r.ID != except && onTarget(r, target) && set.Contains(e.Status) {
				found = true
				return nil
			}
		}
		return nil
	})
	return found, err
}

func (m memRequests) CountCurrent(_ context.Context, target request.Target, set status.Set) (int, error) {
	n := 0
	err := m.with(func(st *memState) error {
		for _, r := range st.requests {
			if onTarget(r, target) && set.Contains(r.Status) {
				n++
			}
		}
		return nil
	})
	return n, err
}

func (m memRequests) ListByTarget(_ context.Context, target request.Target) ([]request.Request, error) {
	return m.list(func(r request.Request) bool { return onTarget(r, target) })
}

func (m memRequests) ListByRequester(_ context.Context, requesterID types.ID) ([]request.Request, error) {
	return m.list(func(r request.Request) bool { return r.RequesterID == requesterID })
}

func (m memRequests) list(keep func(request.Request) bool) ([]request.Request, error) {
	out := []request.Request{}
	err := m.with(func(st *memState) error {
		for _, r := range st.requests {
			if keep(r) {
				out = append(out, r)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, err
}

type memTransactions struct{ memStore }

func (m memTransactions) Create(_ context.Context, tx *transaction.Transaction) error {
	if m.u != nil && m.u.failTxCreate != nil {
		return m.u.failTxCreate
	}
	return m.with(func(st *memState) error {
		for _, cur := range st.txs {
			if cur.RequestID == tx.RequestID {
				return transaction.ErrDuplicate
			}
		}
		st.txs[tx.ID] = *tx
		return nil
	})
}

func (m memTransactions) GetByRequest(_ context.Context, requestID types.ID) (*transaction.Transaction, error) {
	var out *transaction.Transaction
	err := m.with(func(st *memState) error {
		for _, tx := range st.txs {
			if tx.RequestID == requestID {
				out = &tx
				return nil
			}
		}
		return transaction.ErrNotFound
	})
	return out, err
}

func (m memTransactions) move(id types.ID, to transaction.Status, at time.Time) (bool, error) {
	moved := false
	err := m.with(func(st *memState) error {
		tx, ok := st.txs[id]
		if !ok || tx.Status != transaction.StatusPending {
			return nil
		}
		tx.Status = to
		tx.UpdatedAt = at
		if to == transaction.StatusReleased {
			tx.ReleasedAt = &at
		}
		st.txs[id] = tx
		moved = true
		return nil
	})
	return moved, err
}

func (m memTransactions) MarkReleased(_ context.Context, id types.ID, at time.Time) (bool, error) {
	return m.move(id, transaction.StatusReleased, at)
}

func (m memTransactions) Cancel(_ context.Context, id types.ID, at time.Time) (bool, error) {
	return m.move(id, transaction.StatusCancelled, at)
}

func (m memTransactions) AnyMoneyMoved(_ context.Context, tripID, demandID types.ID) (bool, error) {
	found := false
	err := m.with(func(st *memState) error {
		for _, tx := range st.txs {
			r := st.requests[tx.RequestID]
			onListing := (tripID != "" && r.TripID == tripID) || (demandID != "" && r.DemandID == demandID)
			if onListing && tx.Status.MoneyMoved() {
				found = true
			}
		}
		return nil
	})
	return found, err
}

func (m memTransactions) ListStuckReleases(_ context.Context, limit int) ([]transaction.Transaction, error) {
	out := []transaction.Transaction{}
	err := m.with(func(st *memState) error {
		for _, tx := range st.txs {
			if tx.Status == transaction.StatusPending && st.requests[tx.RequestID].Status == status.Completed {
				out = append(out, tx)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, err
}

type fakeGateway struct {
	mu       sync.Mutex
	err      error
	released []types.ID
}

func (g *fakeGateway) Release(_ context.Context, tx transaction.Transaction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.released = append(g.released, tx.ID)
	return nil
}

func (g *fakeGateway) fail(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.err = err
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.released)
}

type sent struct {
	UserID types.ID
	Event  notify.Event
}

type recordingNotifier struct {
	mu   sync.Mutex
	err  error
	sent []sent
}

func (n *recordingNotifier) Notify(_ context.Context, userID types.ID, event notify.Event, _ map[string]string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{UserID: userID, Event: event})
	return n.err
}

func (n *recordingNotifier) events(userID types.ID) []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []notify.Event
	for _, s := range n.sent {
		if s.UserID == userID {
			out = append(out, s.Event)
		}
	}
	return out
}

// recordingCache is a map cache with per-tag generations that remembers
// every invalidated tag.
type recordingCache struct {
	mu          sync.Mutex
	err         error
	values      map[string]any
	gens        map[string]int64
	invalidated []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{values: map[string]any{}, gens: map[string]int64{}}
}

func (c *recordingCache) Stamp(_ context.Context, tags ...string) (cache.Stamp, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := cache.Stamp{Tags: tags, Gens: make([]int64, len(tags))}
	for i, t := range tags {
		st.Gens[i] = c.gens[t]
	}
	return st, nil
}

func (c *recordingCache) Get(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return false, nil
	}
	switch d := dst.(type) {
	case *[]request.Request:
		*d = v.([]request.Request)
	case *[]trip.Trip:
		*d = v.([]trip.Trip)
	case *[]demand.Demand:
		*d = v.([]demand.Demand)
	default:
		return false, errors.New("recordingCache: unsupported type")
	}
	return true, nil
}

func (c *recordingCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[key] = value
	return nil
}

func (c *recordingCache) Invalidate(_ context.Context, tags ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, tags...)
	if c.err != nil {
		return c.err
	}
	for _, t := range tags {
		c.gens[t]++
	}
	return nil
}

func (c *recordingCache) wasInvalidated(tag string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, t := range c.invalidated {
		if t == tag {
			return true
		}
	}
	return false
}

type identityFunc func(types.ID) (bool, error)

func (f identityFunc) IsVerified(_ context.Context, userID types.ID) (bool, error) {
	return f(userID)
}
