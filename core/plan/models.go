package plan

import (
	"time"

	"github.com/go-playground/validator/v10"
)

type Tier string

// Tiers
const (
	TierFree     Tier = "free"
	TierConsumer Tier = "consumer"
	TierElite    Tier = "elite"
	TierBusiness Tier = "business"
)

// Tiers is ordered from the cheapest to the most expensive plan.
var Tiers = []Tier{TierFree, TierConsumer, TierElite, TierBusiness}

// Limits gate feature access and quotas. A zero Max* means unlimited.
type Limits struct {
	MaxQuizzes        int  `json:"maxQuizzes"`   // generated per usage period
	MaxQuestions      int  `json:"maxQuestions"` // per quiz
	MaxAttempts       int  `json:"maxAttempts"`  // per candidate & published quiz
	MaxPublishDays    int  `json:"maxPublishDays"`
	SecretKey         bool `json:"secretKey"`
	CandidateFeedback bool `json:"candidateFeedback"`
}

var tierLimits = map[Tier]Limits{
	TierFree:     {MaxQuizzes: 3, MaxQuestions: 10, MaxAttempts: 1, MaxPublishDays: 7},
	TierConsumer: {MaxQuizzes: 20, MaxQuestions: 20, MaxAttempts: 3, MaxPublishDays: 30, SecretKey: true},
	TierElite:    {MaxQuizzes: 100, MaxQuestions: 40, MaxAttempts: 5, MaxPublishDays: 90, SecretKey: true, CandidateFeedback: true},
	TierBusiness: {MaxQuestions: 50, MaxAttempts: 10, MaxPublishDays: 365, SecretKey: true, CandidateFeedback: true},
}

func (t Tier) Valid() bool {
	_, ok := tierLimits[t]
	return ok
}

// Limits returns the tier's limits; unknown tiers get the free ones.
func (t Tier) Limits() Limits {
	if l, ok := tierLimits[t]; ok {
		return l
	}
	return tierLimits[TierFree]
}

type Plan struct {
	UserID    string     `json:"userId"`
	Tier      Tier       `json:"tier"`
	RenewsAt  *time.Time `json:"renewsAt,omitempty"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Details is the plan as shown to its owner.
type Details struct {
	Plan
	Limits Limits `json:"limits"`
}

func (p Plan) Details() Details {
	return Details{Plan: p, Limits: p.Tier.Limits()}
}

// Default is the plan of users unknown to the plan service.
func Default(userID string) Plan {
	return Plan{UserID: userID, Tier: TierFree}
}

type UpdatePlan struct {
	Tier     Tier       `json:"tier" validate:"required,plantier"`
	RenewsAt *time.Time `json:"renewsAt,omitempty" validate:"omitempty,futuretime"`
}

func (up *UpdatePlan) Validate(validate *validator.Validate) error {
	return validate.Struct(up)
}
