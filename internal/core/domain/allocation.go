package domain

import "time"

// DepositAllocation binds a deposit target of an asset pool to an order. At
// most one active allocation exists for every asset, address and memo.
type DepositAllocation struct {
	OrderId     string
	AssetId     string
	Address     string
	Memo        string
	Active      bool
	AllocatedAt time.Time
	ReleasedAt  time.Time
}

func NewDepositAllocation(
	orderId, assetId string, target DepositTarget, now time.Time,
) *DepositAllocation {
	return &DepositAllocation{
		OrderId:     orderId,
		AssetId:     assetId,
		Address:     target.Address,
		Memo:        target.Memo,
		Active:      true,
		AllocatedAt: now,
	}
}

func (a *DepositAllocation) Target() DepositTarget {
	return DepositTarget{a.Address, a.Memo}
}

// Release makes the deposit target available again. It's a no-op for an
// already released allocation.
func (a *DepositAllocation) Release(now time.Time) bool {
	if !a.Active {
		return false
	}
	a.Active = false
	a.ReleasedAt = now
	return true
}
