package upstream

import (
	"github.com/quizly/backend/core"
)

const (
	ServiceCompany = "company"
	ServiceQuiz    = "quiz"
	ServicePublish = "publish"
	ServiceResult  = "result"
	ServicePlan    = "plan"
	ServiceEmail   = "email"
)

// Repositories bundles one repository per upstream service.
type Repositories struct {
	Companies    *CompanyRepository
	Quizzes      *QuizRepository
	Publications *PublicationRepository
	Results      *ResultRepository
	Plans        *PlanRepository
	Emails       *EmailRepository // nil when the email service is not configured
}

func NewRepositories(conf core.ServicesConfig) *Repositories {
	repos := &Repositories{
		Companies:    NewCompanyRepository(NewClient(ServiceCompany, conf.Company, conf.Timeout)),
		Quizzes:      NewQuizRepository(NewClient(ServiceQuiz, conf.Quiz, conf.Timeout)),
		Publications: NewPublicationRepository(NewClient(ServicePublish, conf.Publish, conf.Timeout)),
		Results:      NewResultRepository(NewClient(ServiceResult, conf.Result, conf.Timeout)),
		Plans:        NewPlanRepository(NewClient(ServicePlan, conf.Plan, conf.Timeout)),
	}
	if conf.Email.BaseURL != "" {
		repos.Emails = NewEmailRepository(NewClient(ServiceEmail, conf.Email, conf.Timeout))
	}
	return repos
}
