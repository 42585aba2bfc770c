package batch

import (
	"github.com/anil-trigital/GST/internal/client"
	"github.com/anil-trigital/GST/internal/loan"
	"github.com/anil-trigital/GST/internal/provisioning"
)

// NewPlatformRegistry builds the registry of every batch operation the
// platform supports, bound to the given write services. The table is built
// once at startup; adding an operation means adding one strategy and one
// line here, never touching the dispatch loop.
func NewPlatformRegistry(
	clients *client.Service,
	loans *loan.Service,
	criteria *provisioning.Service,
) (*Registry, error) {
	registry := NewRegistry()

	entries := []struct {
		method   string
		template string
		strategy Strategy
	}{
		{"POST", "clients", NewCreateClientStrategy(clients)},
		{"POST", "clients/{id}?command=activate", NewActivateClientStrategy(clients)},
		{"GET", "clients/{id}", NewGetClientStrategy(clients)},
		{"POST", "loans", NewSubmitLoanStrategy(loans)},
		{"POST", "loans/{id}?command=approve", NewApproveLoanStrategy(loans)},
		{"POST", "loans/{id}?command=disburse", NewDisburseLoanStrategy(loans)},
		{"POST", "loans/{id}/transactions?command=repayment", NewLoanRepaymentStrategy(loans)},
		{"GET", "loans/{id}", NewGetLoanStrategy(loans)},
		{"POST", "provisioningcriteria", NewCreateProvisioningCriteriaStrategy(criteria)},
		{"PUT", "provisioningcriteria/{id}", NewUpdateProvisioningCriteriaStrategy(criteria)},
	}

	for _, entry := range entries {
		if err := registry.Register(entry.method, entry.template, entry.strategy); err != nil {
			return nil, err
		}
	}

	return registry, nil
}
