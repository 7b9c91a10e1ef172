package plan

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"

	"github.com/quizly/backend/core"
)

type Repository interface {
	GetPlan(ctx context.Context, userID string) (Plan, error)
	UpdatePlan(ctx context.Context, userID string, up UpdatePlan) (Plan, error)
}

type Service struct {
	repo   Repository
	cache  core.Cache
	ttl    time.Duration
	logger core.Logger
}

func NewService(repo Repository, cache core.Cache, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		ttl:    conf.Cache.PlanTTL,
		logger: logger,
	}
}

func cacheKey(userID string) string { return core.CacheKeyPlanPrefix + userID }

// Get returns the user's plan. Users unknown to the plan service are on the free plan.
func (svc *Service) Get(ctx context.Context, userID string) (Plan, error) {
	var p Plan
	if found, err := svc.cache.Get(ctx, cacheKey(userID), &p); err != nil {
		svc.logger.Warn(fmt.Sprintf("plan cache get: %v", err), err)
	} else if found {
		return p, nil
	}

	p, err := svc.repo.GetPlan(ctx, userID)
	if err != nil {
		if !core.IsNotFound(err) {
			return Plan{}, errors.Wrap(err, "fetching plan")
		}
		p = Default(userID)
	}
	if !p.Tier.Valid() {
		svc.logger.Warn(fmt.Sprintf("plan service returned unknown tier %q for %s", p.Tier, userID))
		p.Tier = TierFree
	}

	if err = svc.cache.Set(ctx, cacheKey(userID), p, svc.ttl); err != nil {
		svc.logger.Warn(fmt.Sprintf("plan cache set: %v", err), err)
	}
	return p, nil
}

// Update forwards a validated UpdatePlan and drops the cached copy.
func (svc *Service) Update(ctx context.Context, userID string, up UpdatePlan) (Plan, error) {
	p, err := svc.repo.UpdatePlan(ctx, userID, up)
	if err != nil {
		return Plan{}, errors.Wrap(err, "updating plan")
	}
	if err = svc.cache.Delete(ctx, cacheKey(userID)); err != nil {
		svc.logger.Warn(fmt.Sprintf("plan cache delete: %v", err), err)
	}
	return p, nil
}
