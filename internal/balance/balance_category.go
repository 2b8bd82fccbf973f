package balance

import (
	"strings"

	balanceerrors "go-leave/internal/balance/errors"
)

type Category string

const (
	CategoryCasual  Category = "casual"
	CategoryMedical Category = "medical"
)

// Categories returns the closed set of leave categories in display order.
func Categories() []Category {
	return []Category{CategoryCasual, CategoryMedical}
}

func ParseCategory(v string) (Category, error) {
	switch Category(strings.ToLower(strings.TrimSpace(v))) {
	case CategoryCasual:
		return CategoryCasual, nil
	case CategoryMedical:
		return CategoryMedical, nil
	default:
		return "", balanceerrors.ErrUnknownCategory
	}
}

func (c Category) String() string { return string(c) }

// Balance maps each category to its remaining whole days.
type Balance map[Category]int

// Defaults are the allowances provisioned at onboarding.
type Defaults struct {
	Casual  int
	Medical int
}

func (d Defaults) Days(c Category) int {
	switch c {
	case CategoryCasual:
		return d.Casual
	case CategoryMedical:
		return d.Medical
	}
	return 0
}
