package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/yeremiapane/dock-scheduler/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DockLocks serialises admission work per dock. Work on different docks
// never contends. Each lock is a one-slot channel so waiting honours ctx.
// An entry lives only while someone holds or waits for it.
type DockLocks struct {
	mu    sync.Mutex
	locks map[uint]*dockLock
}

type dockLock struct {
	ch   chan struct{}
	refs int
}

func NewDockLocks() *DockLocks {
	return &DockLocks{locks: make(map[uint]*dockLock)}
}

func (l *DockLocks) ref(id uint) *dockLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	dl, ok := l.locks[id]
	if !ok {
		dl = &dockLock{ch: make(chan struct{}, 1)}
		l.locks[id] = dl
	}
	dl.refs++
	return dl
}

func (l *DockLocks) unref(id uint) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dl, ok := l.locks[id]; ok {
		dl.refs--
		if dl.refs <= 0 {
			delete(l.locks, id)
		}
	}
}

// Len reports how many docks currently have a holder or a waiter.
func (l *DockLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Acquire locks every given dock in ascending id order and returns a release
// func. If ctx ends first, locks already taken are released.
func (l *DockLocks) Acquire(ctx context.Context, ids ...uint) (func(), error) {
	ordered := uniqueSorted(ids)
	held := make([]uint, 0, len(ordered))
	entries := make(map[uint]*dockLock, len(ordered))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			id := held[i]
			<-entries[id].ch
			l.unref(id)
		}
	}

	for _, id := range ordered {
		dl := l.ref(id)
		select {
		case dl.ch <- struct{}{}:
			entries[id] = dl
			held = append(held, id)
		case <-ctx.Done():
			l.unref(id)
			release()
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

func uniqueSorted(ids []uint) []uint {
	out := make([]uint, 0, len(ids))
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// lockDockRow loads the dock inside tx, taking a row lock where the dialect
// supports one. sqlite relies on the in-process DockLocks alone.
func lockDockRow(tx *gorm.DB, id uint) (*models.Dock, error) {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var dock models.Dock
	if err := q.First(&dock, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDockNotFound
		}
		return nil, err
	}
	return &dock, nil
}
