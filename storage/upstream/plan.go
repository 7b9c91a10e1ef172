package upstream

import (
	"context"
	"net/http"

	"github.com/quizly/backend/core/plan"
)

type PlanRepository struct {
	client *Client
}

var _ plan.Repository = (*PlanRepository)(nil)

func NewPlanRepository(client *Client) *PlanRepository {
	return &PlanRepository{client: client}
}

func (repo *PlanRepository) GetPlan(ctx context.Context, userID string) (plan.Plan, error) {
	var p plan.Plan
	if err := repo.client.Do(ctx, http.MethodGet, "/plans/"+escape(userID), nil, &p); err != nil {
		return plan.Plan{}, notFound(err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return p, nil
}

func (repo *PlanRepository) UpdatePlan(ctx context.Context, userID string, up plan.UpdatePlan) (plan.Plan, error) {
	var p plan.Plan
	if err := repo.client.Do(ctx, http.MethodPut, "/plans/"+escape(userID), up, &p); err != nil {
		return plan.Plan{}, notFound(err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	if p.Tier == "" {
		p.Tier = up.Tier
		p.RenewsAt = up.RenewsAt
	}
	return p, nil
}
