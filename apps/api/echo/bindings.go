package echoapi

import (
	"sort"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/quizly/backend/core"
	"github.com/quizly/backend/core/quiz"
)

var (
	orderingParam = "ordering"
	quizOrderings = map[string]func(a, b quiz.Quiz) int{
		"createdAt": func(a, b quiz.Quiz) int { return a.CreatedAt.Compare(b.CreatedAt) },
		"updatedAt": func(a, b quiz.Quiz) int { return a.UpdatedAt.Compare(b.UpdatedAt) },
		"title":     func(a, b quiz.Quiz) int { return strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)) },
	}
)

type ordering struct {
	Field     string
	Ascending bool
}

type Ordering struct {
	Orderings []ordering
}

// Bind parses `?ordering=title,-createdAt`. Unknown fields are rejected.
func (ord *Ordering) Bind(ctx echo.Context) error {
	val := ctx.QueryParam(orderingParam)
	if val == "" {
		return nil
	}

	for _, field := range strings.Split(val, ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		if _, ok := quizOrderings[field]; !ok {
			return core.NewValidationError(nil, core.FieldError{Field: orderingParam, Error: "unknown field: " + field})
		}
		ord.Orderings = append(ord.Orderings, ordering{Field: field, Ascending: !descending})
	}
	return nil
}

// QuizFilter holds the quiz list query params.
type QuizFilter struct {
	Ordering
	Published *bool
}

func (f *QuizFilter) Bind(ctx echo.Context) error {
	if err := f.Ordering.Bind(ctx); err != nil {
		return err
	}
	if val := ctx.QueryParam("published"); val != "" {
		published, err := strconv.ParseBool(val)
		if err != nil {
			return core.NewValidationError(nil, core.FieldError{Field: "published", Error: "must be true or false"})
		}
		f.Published = &published
	}
	return nil
}

// Apply filters and sorts quizzes; newest first by default.
func (f QuizFilter) Apply(quizzes []quiz.Quiz) []quiz.Quiz {
	out := make([]quiz.Quiz, 0, len(quizzes))
	for _, q := range quizzes {
		if f.Published == nil || q.IsPublished == *f.Published {
			out = append(out, q)
		}
	}

	orderings := f.Orderings
	if len(orderings) == 0 {
		orderings = []ordering{{Field: "createdAt"}}
	}
	sort.SliceStable(out, func(i, j int) bool {
		for _, ord := range orderings {
			c := quizOrderings[ord.Field](out[i], out[j])
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
	return out
}
