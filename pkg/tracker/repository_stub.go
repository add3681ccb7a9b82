package tracker

import (
	"context"
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// RepositoryStub keeps entries and settings in memory. It backs the "memory"
// storage backend and the service tests. Transactions work on a copy that is
// swapped in on success, so a failing transaction leaves nothing behind.
type RepositoryStub struct {
	writeMu sync.Mutex // serializes transactions and direct writes
	mu      sync.RWMutex
	state   *stubState
	inTx    bool

	failAfter int // writes allowed before failErr is returned, -1 disables
	failErr   error
	parent    *RepositoryStub
}

type stubState struct {
	entries  map[string]DayEntry
	settings Settings
}

func (s *stubState) clone() *stubState {
	entries := make(map[string]DayEntry, len(s.entries))
	for date, entry := range s.entries {
		entries[date] = copyEntry(entry)
	}
	return &stubState{entries: entries, settings: s.settings}
}

func NewRepositoryStub() *RepositoryStub {
	return &RepositoryStub{
		state: &stubState{
			entries:  make(map[string]DayEntry),
			settings: DefaultSettings(),
		},
		failAfter: -1,
	}
}

func (r *RepositoryStub) WithTransaction(ctx context.Context, fn func(repo Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	r.writeMu.Lock()
	defer r.writeMu.Unlock()

	r.mu.RLock()
	txRepo := &RepositoryStub{state: r.state.clone(), inTx: true, failAfter: -1, parent: r}
	r.mu.RUnlock()

	if err := fn(txRepo); err != nil {
		return err
	}

	r.mu.Lock()
	r.state = txRepo.state
	r.mu.Unlock()
	return nil
}

func (r *RepositoryStub) GetEntry(ctx context.Context, date string) (*DayEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.state.entries[date]
	if !ok {
		return nil, nil
	}
	entry = copyEntry(entry)
	return &entry, nil
}

// StoreEntry rejects an id already held by another date, like the unique id
// column of the SQL schemas.
func (r *RepositoryStub) StoreEntry(ctx context.Context, entry DayEntry) error {
	return r.write(func(state *stubState) error {
		for date, stored := range state.entries {
			if stored.ID == entry.ID && date != entry.Date {
				err := fmt.Errorf("could not store entry for %s: id %s already used by %s", entry.Date, entry.ID, date)
				log.Error(err)
				return err
			}
		}
		state.entries[entry.Date] = copyEntry(entry)
		return nil
	})
}

func (r *RepositoryStub) DeleteEntry(ctx context.Context, date string) (bool, error) {
	deleted := false
	err := r.write(func(state *stubState) error {
		_, deleted = state.entries[date]
		delete(state.entries, date)
		return nil
	})
	return deleted, err
}

func (r *RepositoryStub) GetEntriesInRange(ctx context.Context, start, end string) ([]DayEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]DayEntry, 0)
	for date, entry := range r.state.entries {
		if date >= start && date <= end {
			result = append(result, copyEntry(entry))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result, nil
}

func (r *RepositoryStub) GetAllEntries(ctx context.Context) ([]DayEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]DayEntry, 0, len(r.state.entries))
	for _, entry := range r.state.entries {
		result = append(result, copyEntry(entry))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date > result[j].Date })
	return result, nil
}

func (r *RepositoryStub) DeleteAllEntries(ctx context.Context) (int, error) {
	removed := 0
	err := r.write(func(state *stubState) error {
		removed = len(state.entries)
		state.entries = make(map[string]DayEntry)
		return nil
	})
	return removed, err
}

func (r *RepositoryStub) GetSettings(ctx context.Context) (Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state.settings, nil
}

func (r *RepositoryStub) StoreSettings(ctx context.Context, settings Settings) error {
	return r.write(func(state *stubState) error {
		state.settings = settings
		return nil
	})
}

// FailAfterWrites makes the stub return err once n more writes have succeeded.
// It is used to simulate a storage failure in the middle of a transaction.
func (r *RepositoryStub) FailAfterWrites(n int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failAfter = n
	r.failErr = err
}

// EntryCount reports how many entries are stored.
func (r *RepositoryStub) EntryCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.state.entries)
}

func (r *RepositoryStub) write(apply func(state *stubState) error) error {
	if !r.inTx {
		r.writeMu.Lock()
		defer r.writeMu.Unlock()
	}
	if err := r.checkFailure(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return apply(r.state)
}

// checkFailure consumes one write from the failure budget of the root stub.
func (r *RepositoryStub) checkFailure() error {
	root := r
	if r.parent != nil {
		root = r.parent
	}
	root.mu.Lock()
	defer root.mu.Unlock()
	if root.failAfter < 0 {
		return nil
	}
	if root.failAfter == 0 {
		return root.failErr
	}
	root.failAfter--
	return nil
}

func copyEntry(entry DayEntry) DayEntry {
	entry.LunchPrice = clonePrice(entry.LunchPrice)
	entry.DinnerPrice = clonePrice(entry.DinnerPrice)
	return entry
}
