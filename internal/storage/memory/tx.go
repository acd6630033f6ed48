package memory

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"festreg/internal/storage"
	id "festreg/pkg/domain"
	dErrors "festreg/pkg/domain-errors"
)

// Events hashing to the same shard serialise together.
const numEventShards = 128

const defaultTxTimeout = 5 * time.Second

// UnitOfWork holds the event's shard for the whole callback. There is no
// rollback: callbacks validate first and write once, last.
type UnitOfWork struct {
	shards  [numEventShards]sync.Mutex
	stores  storage.Stores
	timeout time.Duration
}

type TxOption func(*UnitOfWork)

func WithTxTimeout(d time.Duration) TxOption {
	return func(u *UnitOfWork) {
		u.timeout = d
	}
}

func NewUnitOfWork(stores storage.Stores, opts ...TxOption) *UnitOfWork {
	u := &UnitOfWork{stores: stores, timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *UnitOfWork) RunInTx(ctx context.Context, eventID id.EventID, fn func(ctx context.Context, stores storage.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, hasDeadline := ctx.Deadline(); !hasDeadline && u.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, u.timeout)
		defer cancel()
	}

	shard := &u.shards[shardFor(eventID)]
	shard.Lock()
	defer shard.Unlock()

	// Waiting for the lock may have consumed the deadline.
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	return fn(ctx, u.stores)
}

func shardFor(eventID id.EventID) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(eventID.String()))
	return h.Sum32() % numEventShards
}
