package check

import (
	"context"
	"fmt"

	"github.com/jaczemann/sla-fw-sub001/internal/domain/resource"
)

// LockTable holds one lock per resource for a single phase run. A fresh
// table is allocated for every run of a group, so mutual exclusion is
// scoped to the phase, never to the whole procedure.
type LockTable map[resource.Resource]chan struct{}

// NewLockTable allocates a lock for every known resource.
func NewLockTable() LockTable {
	t := make(LockTable, len(resource.All()))
	for _, r := range resource.All() {
		t[r] = make(chan struct{}, 1)
	}
	return t
}

// acquire takes the locks for rs in canonical order, blocking until each
// is available or ctx is done. On success it returns a release function
// that frees the locks in reverse order.
func (t LockTable) acquire(ctx context.Context, rs []resource.Resource) (func(), error) {
	held := make([]resource.Resource, 0, len(rs))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-t[held[i]]
		}
	}
	for _, r := range resource.Sorted(rs) {
		l, ok := t[r]
		if !ok {
			release()
			return nil, fmt.Errorf("no lock for resource %q", r)
		}
		select {
		case l <- struct{}{}:
			held = append(held, r)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		}
	}
	return release, nil
}
