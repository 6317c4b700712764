package enums

import "fmt"

// ArticleStatus captures the state of one physical inventory unit.
type ArticleStatus string

const (
	ArticleStatusInStock  ArticleStatus = "in_stock"
	ArticleStatusReserved ArticleStatus = "reserved"
	ArticleStatusSold     ArticleStatus = "sold"
	ArticleStatusReturned ArticleStatus = "returned"
	ArticleStatusDamaged  ArticleStatus = "damaged"
)

var validArticleStatuses = []ArticleStatus{
	ArticleStatusInStock,
	ArticleStatusReserved,
	ArticleStatusSold,
	ArticleStatusReturned,
	ArticleStatusDamaged,
}

// String implements fmt.Stringer.
func (a ArticleStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known ArticleStatus.
func (a ArticleStatus) IsValid() bool {
	for _, candidate := range validArticleStatuses {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseArticleStatus converts raw input into an ArticleStatus.
func ParseArticleStatus(value string) (ArticleStatus, error) {
	for _, candidate := range validArticleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid article status %q", value)
}
