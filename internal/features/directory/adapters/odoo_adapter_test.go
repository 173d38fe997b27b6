package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracking-sentinel/internal/core/config"
	"tracking-sentinel/internal/features/directory/ports"
)

// odooCall captures one decoded JSON-RPC request.
type odooCall struct {
	Service string
	Method  string
	Args    []any
}

// newOdooTestServer answers authenticate with uid 7 and execute_kw with the
// given result payload.
func newOdooTestServer(t *testing.T, calls *[]odooCall, executeResult string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/jsonrpc", r.URL.Path)
		var req struct {
			Params struct {
				Service string `json:"service"`
				Method  string `json:"method"`
				Args    []any  `json:"args"`
			} `json:"params"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*calls = append(*calls, odooCall{req.Params.Service, req.Params.Method, req.Params.Args})

		w.Header().Set("Content-Type", "application/json")
		switch req.Params.Service {
		case "common":
			w.Write([]byte(`{"jsonrpc":"2.0","result":7}`))
		case "object":
			fmt.Fprintf(w, `{"jsonrpc":"2.0","result":%s}`, executeResult)
		default:
			t.Fatalf("unexpected service %s", req.Params.Service)
		}
	}))
}

func newTestOdoo(url string) *OdooAdapter {
	return NewOdooAdapter(config.OdooConfig{
		URL:         url,
		DB:          "production",
		Username:    "sentinel@example.com",
		Password:    "secret",
		TenantField: "x_studio_tenant",
	})
}

func TestFindCompanyByTenant(t *testing.T) {
	var calls []odooCall
	server := newOdooTestServer(t, &calls,
		`[{"id":12,"name":"Tienda Uno SAS","email":"ops@tiendauno.co","phone":"+57 1 7426800","x_studio_tenant":3}]`)
	defer server.Close()

	a := newTestOdoo(server.URL)
	company, err := a.FindCompanyByTenant(context.Background(), 3)
	require.NoError(t, err)

	assert.EqualValues(t, 12, company.ID)
	assert.Equal(t, "Tienda Uno SAS", company.Name)
	assert.Equal(t, "ops@tiendauno.co", company.Email)
	assert.Equal(t, 3, company.Tenant)

	// authenticate, then execute_kw
	require.Len(t, calls, 2)
	assert.Equal(t, "common", calls[0].Service)
	assert.Equal(t, "authenticate", calls[0].Method)
	assert.Equal(t, "object", calls[1].Service)
	assert.Equal(t, "execute_kw", calls[1].Method)
	// db, uid, password, model, method precede the filter
	require.GreaterOrEqual(t, len(calls[1].Args), 5)
	assert.Equal(t, "production", calls[1].Args[0])
	assert.EqualValues(t, 7, calls[1].Args[1])
	assert.Equal(t, "res.partner", calls[1].Args[3])
	assert.Equal(t, "search_read", calls[1].Args[4])
}

func TestFindCompanyByTenantNotFound(t *testing.T) {
	var calls []odooCall
	server := newOdooTestServer(t, &calls, `[]`)
	defer server.Close()

	a := newTestOdoo(server.URL)
	_, err := a.FindCompanyByTenant(context.Background(), 99)
	assert.ErrorIs(t, err, ports.ErrCompanyNotFound)
}

func TestFindCompanyCachesUID(t *testing.T) {
	var calls []odooCall
	server := newOdooTestServer(t, &calls, `[]`)
	defer server.Close()

	a := newTestOdoo(server.URL)
	a.FindCompanyByTenant(context.Background(), 1)
	a.FindCompanyByTenant(context.Background(), 2)

	authCalls := 0
	for _, c := range calls {
		if c.Method == "authenticate" {
			authCalls++
		}
	}
	assert.Equal(t, 1, authCalls)
}

func TestWhatsAppContacts(t *testing.T) {
	var calls []odooCall
	server := newOdooTestServer(t, &calls, `[
		{"id":21,"name":"Ana García","mobile":"+57 300 123 4567","phone":false,"function":"Operaciones"},
		{"id":22,"name":"Luis Rojas","mobile":false,"phone":"+57 1 742 6800","function":false},
		{"id":23,"name":"Sin Teléfono","mobile":false,"phone":false,"function":false}
	]`)
	defer server.Close()

	a := newTestOdoo(server.URL)
	contacts, err := a.WhatsAppContacts(context.Background(), 12)
	require.NoError(t, err)
	require.Len(t, contacts, 2)

	assert.Equal(t, "Ana García", contacts[0].Name)
	assert.Equal(t, "573001234567", contacts[0].WhatsAppNumber)
	assert.Equal(t, "Operaciones", contacts[0].Role)

	// Falls back to the landline when no mobile is set.
	assert.Equal(t, "Luis Rojas", contacts[1].Name)
	assert.Equal(t, "5717426800", contacts[1].WhatsAppNumber)
}

func TestCallSurfacesRPCError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":100,"message":"Access Denied"}}`))
	}))
	defer server.Close()

	a := newTestOdoo(server.URL)
	_, err := a.FindCompanyByTenant(context.Background(), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Access Denied")
}
