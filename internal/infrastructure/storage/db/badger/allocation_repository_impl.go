package dbbadger

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/timshannon/badgerhold/v4"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
)

// activeTarget is the lock record of an actively allocated deposit target.
// Keying it by asset, address and memo makes concurrent allocations of the
// same target conflict at commit time.
type activeTarget struct {
	OrderId string
}

type allocationRepositoryImpl struct {
	store *badgerhold.Store
}

func NewAllocationRepositoryImpl(
	store *badgerhold.Store,
) domain.AllocationRepository {
	return allocationRepositoryImpl{store}
}

func (r allocationRepositoryImpl) AddAllocation(
	ctx context.Context, allocation *domain.DepositAllocation,
) error {
	key := targetKey(allocation.AssetId, allocation.Address, allocation.Memo)
	lock := activeTarget{allocation.OrderId}

	tx := txFromContext(ctx)
	var err error
	if tx != nil {
		err = r.store.TxInsert(tx, key, lock)
	} else {
		err = r.store.Insert(key, lock)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrDepositTargetInUse
		}
		return err
	}

	if tx != nil {
		err = r.store.TxInsert(tx, allocation.OrderId, *allocation)
	} else {
		err = r.store.Insert(allocation.OrderId, *allocation)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrKeyExists) {
			return domain.ErrOrderAlreadyExists
		}
		return err
	}
	return nil
}

func (r allocationRepositoryImpl) GetAllocation(
	ctx context.Context, orderId string,
) (*domain.DepositAllocation, error) {
	var allocation domain.DepositAllocation
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxGet(tx, orderId, &allocation)
	} else {
		err = r.store.Get(orderId, &allocation)
	}
	if err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, domain.ErrAllocationNotFound
		}
		return nil, err
	}
	return &allocation, nil
}

func (r allocationRepositoryImpl) GetActiveAllocations(
	ctx context.Context, assetId string,
) ([]domain.DepositAllocation, error) {
	query := badgerhold.Where("Active").Eq(true)
	if len(assetId) > 0 {
		query = query.And("AssetId").Eq(assetId)
	}

	var allocations []domain.DepositAllocation
	var err error
	if tx := txFromContext(ctx); tx != nil {
		err = r.store.TxFind(tx, &allocations, query)
	} else {
		err = r.store.Find(&allocations, query)
	}
	if err != nil {
		return nil, err
	}

	sort.SliceStable(allocations, func(i, j int) bool {
		return allocations[i].AllocatedAt.Before(allocations[j].AllocatedAt)
	})
	return allocations, nil
}

func (r allocationRepositoryImpl) ReleaseAllocation(
	ctx context.Context, orderId string, at time.Time,
) error {
	allocation, err := r.GetAllocation(ctx, orderId)
	if err != nil {
		return err
	}
	if !allocation.Release(at) {
		return nil
	}

	key := targetKey(allocation.AssetId, allocation.Address, allocation.Memo)
	if tx := txFromContext(ctx); tx != nil {
		if err := r.store.TxUpdate(tx, orderId, *allocation); err != nil {
			return err
		}
		return r.deleteTarget(r.store.TxDelete(tx, key, activeTarget{}))
	}

	if err := r.store.Update(orderId, *allocation); err != nil {
		return err
	}
	return r.deleteTarget(r.store.Delete(key, activeTarget{}))
}

func (r allocationRepositoryImpl) deleteTarget(err error) error {
	if err != nil && !errors.Is(err, badgerhold.ErrNotFound) {
		return err
	}
	return nil
}

func targetKey(assetId, address, memo string) string {
	return assetId + "|" + address + "|" + memo
}
