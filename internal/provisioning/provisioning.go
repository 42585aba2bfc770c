// Package provisioning implements the provisioning-criteria write service.
// A criteria names a set of loan-age buckets and the provision percentage to
// reserve for each.
package provisioning

import (
	"context"

	"github.com/shopspring/decimal"
)

// Bucket assigns a provision percentage to a loan-age range, in days.
type Bucket struct {
	MinAge    int             `json:"minAge" validate:"gte=0"`
	MaxAge    int             `json:"maxAge" validate:"gtefield=MinAge"`
	Provision decimal.Decimal `json:"provisioningPercentage" validate:"positive_decimal"`
}

// Criteria is the provisioning-criteria aggregate.
type Criteria struct {
	ID         int64    `json:"id"`
	ExternalID string   `json:"externalId"`
	Name       string   `json:"criteriaName"`
	Buckets    []Bucket `json:"definitions"`
}

// Clone returns a deep copy of the criteria.
func (c *Criteria) Clone() *Criteria {
	cp := *c

	if c.Buckets != nil {
		cp.Buckets = make([]Bucket, len(c.Buckets))
		copy(cp.Buckets, c.Buckets)
	}

	return &cp
}

// Repository is the persistence contract the provisioning service depends on.
type Repository interface {
	CreateCriteria(ctx context.Context, c *Criteria) (int64, error)
	FindCriteria(ctx context.Context, id int64) (*Criteria, error)
	FindCriteriaByName(ctx context.Context, name string) (*Criteria, error)
	UpdateCriteria(ctx context.Context, c *Criteria) error
}
