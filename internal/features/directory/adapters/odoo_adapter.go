package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/core/httpclient"
	"tracking-sentinel/internal/core/logger"
	"tracking-sentinel/internal/features/directory/domain"
	"tracking-sentinel/internal/features/directory/ports"
)

const jsonrpcPath = "/jsonrpc"

// OdooAdapter reads companies and contacts from Odoo over JSON-RPC. The
// authenticated uid is cached after the first call.
type OdooAdapter struct {
	client *resty.Client
	cfg    config.OdooConfig
	log    *zap.Logger

	mu  sync.Mutex
	uid int64
}

// NewOdooAdapter creates an adapter against the configured Odoo instance.
func NewOdooAdapter(cfg config.OdooConfig) *OdooAdapter {
	return &OdooAdapter{
		client: httpclient.NewResty(cfg.URL, 30*time.Second),
		cfg:    cfg,
		log:    logger.Named("odoo"),
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int       `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (a *OdooAdapter) call(ctx context.Context, service, method string, args []any, out any) error {
	var result rpcResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetBody(rpcRequest{
			JSONRPC: "2.0",
			Method:  "call",
			Params:  rpcParams{Service: service, Method: method, Args: args},
			ID:      1,
		}).
		SetResult(&result).
		Post(jsonrpcPath)
	if err != nil {
		return fmt.Errorf("odoo %s.%s call failed: %w", service, method, err)
	}
	if resp.IsError() {
		return fmt.Errorf("odoo %s.%s returned status %d", service, method, resp.StatusCode())
	}
	if result.Error != nil {
		return fmt.Errorf("odoo %s.%s failed: %s", service, method, result.Error.Message)
	}
	if out != nil {
		if err := json.Unmarshal(result.Result, out); err != nil {
			return fmt.Errorf("failed to decode odoo %s.%s result: %w", service, method, err)
		}
	}
	return nil
}

// ensureUID authenticates once and caches the resulting user id.
func (a *OdooAdapter) ensureUID(ctx context.Context) (int64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.uid != 0 {
		return a.uid, nil
	}

	var uid int64
	err := a.call(ctx, "common", "authenticate",
		[]any{a.cfg.DB, a.cfg.Username, a.cfg.Password, map[string]any{}}, &uid)
	if err != nil {
		return 0, err
	}
	if uid == 0 {
		return 0, errors.New("odoo authentication rejected")
	}
	a.uid = uid
	a.log.Info("Odoo authentication succeeded", zap.Int64("uid", uid))
	return uid, nil
}

func (a *OdooAdapter) executeKw(ctx context.Context, model, method string, domainFilter any, options map[string]any, out any) error {
	uid, err := a.ensureUID(ctx)
	if err != nil {
		return err
	}
	args := []any{a.cfg.DB, uid, a.cfg.Password, model, method, domainFilter, options}
	return a.call(ctx, "object", "execute_kw", args, out)
}

// partnerRecord mirrors the res.partner fields the adapter reads. Odoo
// renders empty fields as false, hence the custom decoding.
type partnerRecord struct {
	ID       int64
	Name     string
	Email    string
	Phone    string
	Mobile   string
	Function string
}

func (p *partnerRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &p.ID); err != nil {
			return err
		}
	}
	p.Name = odooString(raw["name"])
	p.Email = odooString(raw["email"])
	p.Phone = odooString(raw["phone"])
	p.Mobile = odooString(raw["mobile"])
	p.Function = odooString(raw["function"])
	return nil
}

// odooString reads a string field that may be the literal false.
func odooString(raw json.RawMessage) string {
	var s string
	if raw == nil || json.Unmarshal(raw, &s) != nil {
		return ""
	}
	return s
}

// FindCompanyByTenant returns the company holding the tenant number.
func (a *OdooAdapter) FindCompanyByTenant(ctx context.Context, tenant int) (*domain.Company, error) {
	filter := []any{[]any{
		[]any{a.cfg.TenantField, "=", tenant},
		[]any{"is_company", "=", true},
	}}
	options := map[string]any{
		"fields": []string{"id", "name", "email", "phone", a.cfg.TenantField},
		"limit":  1,
	}

	var records []partnerRecord
	if err := a.executeKw(ctx, "res.partner", "search_read", filter, options, &records); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: tenant %d", ports.ErrCompanyNotFound, tenant)
	}

	r := records[0]
	return &domain.Company{
		ID:     r.ID,
		Name:   r.Name,
		Email:  r.Email,
		Phone:  r.Phone,
		Tenant: tenant,
	}, nil
}

// WhatsAppContacts returns the company's child contacts that have a usable
// phone number, preferring the mobile field.
func (a *OdooAdapter) WhatsAppContacts(ctx context.Context, companyID int64) ([]domain.Contact, error) {
	filter := []any{[]any{
		[]any{"parent_id", "=", companyID},
	}}
	options := map[string]any{
		"fields": []string{"id", "name", "mobile", "phone", "function"},
	}

	var records []partnerRecord
	if err := a.executeKw(ctx, "res.partner", "search_read", filter, options, &records); err != nil {
		return nil, err
	}

	contacts := make([]domain.Contact, 0, len(records))
	for _, r := range records {
		number := domain.CleanPhone(r.Mobile)
		if number == "" {
			number = domain.CleanPhone(r.Phone)
		}
		if number == "" {
			continue
		}
		contacts = append(contacts, domain.Contact{
			ID:             r.ID,
			Name:           r.Name,
			WhatsAppNumber: number,
			Role:           r.Function,
		})
	}
	a.log.Info("Resolved WhatsApp contacts",
		zap.Int64("company_id", companyID),
		zap.Int("contacts", len(contacts)))
	return contacts, nil
}
