package inmemory

import (
	"context"
	"sort"
	"time"

	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

type allocationRepositoryImpl struct {
	store *store
}

// NewAllocationRepositoryImpl returns a new inmemory AllocationRepository
// implementation.
func NewAllocationRepositoryImpl(store *store) domain.AllocationRepository {
	return &allocationRepositoryImpl{store}
}

func (r *allocationRepositoryImpl) AddAllocation(
	ctx context.Context, allocation *domain.DepositAllocation,
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	if _, ok := r.store.allocations[allocation.OrderId]; ok {
		return domain.ErrOrderAlreadyExists
	}
	key := targetKey(allocation.AssetId, allocation.Address, allocation.Memo)
	if _, ok := r.store.activeTargets[key]; ok {
		return domain.ErrDepositTargetInUse
	}

	r.store.allocations[allocation.OrderId] = *allocation
	r.store.activeTargets[key] = allocation.OrderId

	onRollback(ctx, r.store, func() {
		delete(r.store.allocations, allocation.OrderId)
		delete(r.store.activeTargets, key)
	})
	return nil
}

func (r *allocationRepositoryImpl) GetAllocation(
	ctx context.Context, orderId string,
) (*domain.DepositAllocation, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	allocation, ok := r.store.allocations[orderId]
	if !ok {
		return nil, domain.ErrAllocationNotFound
	}
	return &allocation, nil
}

func (r *allocationRepositoryImpl) GetActiveAllocations(
	ctx context.Context, assetId string,
) ([]domain.DepositAllocation, error) {
	defer r.store.beginRead(ctx)()
	r.store.lock.RLock()
	defer r.store.lock.RUnlock()

	allocations := make([]domain.DepositAllocation, 0)
	for _, orderId := range r.store.activeTargets {
		allocation := r.store.allocations[orderId]
		if len(assetId) > 0 && allocation.AssetId != assetId {
			continue
		}
		allocations = append(allocations, allocation)
	}
	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].AllocatedAt.Before(allocations[j].AllocatedAt)
	})
	return allocations, nil
}

func (r *allocationRepositoryImpl) ReleaseAllocation(
	ctx context.Context, orderId string, at time.Time,
) error {
	defer r.store.beginWrite(ctx)()
	r.store.lock.Lock()
	defer r.store.lock.Unlock()

	current, ok := r.store.allocations[orderId]
	if !ok {
		return domain.ErrAllocationNotFound
	}
	allocation := current
	if !allocation.Release(at) {
		return nil
	}

	key := targetKey(allocation.AssetId, allocation.Address, allocation.Memo)
	r.store.allocations[orderId] = allocation
	delete(r.store.activeTargets, key)

	onRollback(ctx, r.store, func() {
		r.store.allocations[orderId] = current
		r.store.activeTargets[key] = orderId
	})
	return nil
}
