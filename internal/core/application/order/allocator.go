package order

import (
	"context"
	"sync"

	log "github.com/sirupsen/logrus"
	"github.com/thanhpk/randstr"
	"github.com/zecswap/zecswap-daemon/internal/core/domain"
	"github.com/zecswap/zecswap-daemon/internal/core/ports"
)

const memoDigits = "0123456789"

// allocator picks deposit targets from the address pool. Picking and
// committing a target happen under a lock scoped to the asset pool.
type allocator struct {
	repoManager ports.RepoManager
	pool        ports.AddressPool

	lock       *sync.Mutex
	assetLocks map[string]*sync.Mutex
	nextIndex  map[string]int
}

func newAllocator(repoManager ports.RepoManager, pool ports.AddressPool) *allocator {
	return &allocator{
		repoManager: repoManager,
		pool:        pool,
		lock:        &sync.Mutex{},
		assetLocks:  make(map[string]*sync.Mutex),
		nextIndex:   make(map[string]int),
	}
}

// allocate picks a free deposit target for the given asset and hands it to
// commit while still holding the asset pool lock.
func (a *allocator) allocate(
	ctx context.Context, asset domain.Asset,
	commit func(target domain.DepositTarget) (*domain.SwapOrder, error),
) (*domain.SwapOrder, error) {
	mu := a.assetLock(asset.AssetId)
	mu.Lock()
	defer mu.Unlock()

	target, err := a.pickTarget(ctx, asset)
	if err != nil {
		return nil, err
	}
	return commit(*target)
}

func (a *allocator) pickTarget(
	ctx context.Context, asset domain.Asset,
) (*domain.DepositTarget, error) {
	addresses := a.pool.Addresses(asset.AssetId)
	if len(addresses) <= 0 {
		log.Warnf("allocator: no deposit address configured for asset %s", asset.AssetId)
		return nil, domain.ErrAllocationUnavailable
	}

	allocations, err := a.repoManager.AllocationRepository().GetActiveAllocations(
		ctx, asset.AssetId,
	)
	if err != nil {
		return nil, err
	}
	memosByAddress := make(map[string]map[string]struct{})
	for _, alloc := range allocations {
		if _, ok := memosByAddress[alloc.Address]; !ok {
			memosByAddress[alloc.Address] = make(map[string]struct{})
		}
		memosByAddress[alloc.Address][alloc.Memo] = struct{}{}
	}

	if !asset.MemoRequired {
		for _, addr := range addresses {
			if _, inUse := memosByAddress[addr]; !inUse {
				return &domain.DepositTarget{Address: addr}, nil
			}
		}
		return nil, domain.ErrAllocationUnavailable
	}

	addr := a.nextAddress(asset.AssetId, addresses)
	usedMemos := memosByAddress[addr]
	for i := 0; i < domain.MaxMemoAttempts; i++ {
		memo := randstr.String(domain.MemoLength, memoDigits)
		if _, inUse := usedMemos[memo]; !inUse {
			return &domain.DepositTarget{Address: addr, Memo: memo}, nil
		}
	}
	return nil, domain.ErrAllocationUnavailable
}

// nextAddress returns the pool addresses of an asset in round robin.
func (a *allocator) nextAddress(assetId string, addresses []string) string {
	a.lock.Lock()
	defer a.lock.Unlock()

	i := a.nextIndex[assetId] % len(addresses)
	a.nextIndex[assetId] = i + 1
	return addresses[i]
}

func (a *allocator) assetLock(assetId string) *sync.Mutex {
	a.lock.Lock()
	defer a.lock.Unlock()

	mu, ok := a.assetLocks[assetId]
	if !ok {
		mu = &sync.Mutex{}
		a.assetLocks[assetId] = mu
	}
	return mu
}
