package ports

import (
	"context"
	"errors"

	"tracking-sentinel/internal/features/directory/domain"
)

// ErrCompanyNotFound is returned when no company carries the tenant number.
var ErrCompanyNotFound = errors.New("company not found")

// CompanyDirectory resolves ledger tenants to CRM companies and their
// report recipients.
type CompanyDirectory interface {
	// FindCompanyByTenant returns the company holding the tenant number, or
	// ErrCompanyNotFound.
	FindCompanyByTenant(ctx context.Context, tenant int) (*domain.Company, error)
	// WhatsAppContacts returns the company's contacts that have a usable
	// WhatsApp number.
	WhatsAppContacts(ctx context.Context, companyID int64) ([]domain.Contact, error)
}
