package service

import (
	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/service/balancecache"
	"github.com/google/uuid"

	"github.com/XtheWiz/divvy-jones-backend-sub002/internal/domain"
)

// BalanceService is the read-through front door the HTTP layer calls for a
// group's balances: it is the engine and the cache wired together
// so handlers never touch balancecache.Cache directly.
type BalanceService struct {
	engine *BalanceEngine
	cache  *balancecache.Cache
}

func NewBalanceService(engine *BalanceEngine, cache *balancecache.Cache) *BalanceService {
	return &BalanceService{engine: engine, cache: cache}
}

// GetGroupBalances returns the group's balances, recomputing on a cache
// miss or when skipCache is set.
func (s *BalanceService) GetGroupBalances(groupID uuid.UUID, skipCache bool) (*domain.GroupBalances, error) {
	return s.cache.GetOrCompute(groupID, skipCache, s.engine.Compute)
}
