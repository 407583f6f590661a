package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	companydomain "github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/identity"
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/numbering"
	"github.com/smallbiznis/invoicer/internal/observability"
	quotationdomain "github.com/smallbiznis/invoicer/internal/quotation/domain"
	"github.com/smallbiznis/invoicer/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testJWTSecret = "server-test-secret"

type fakeInvoiceService struct {
	invoicedomain.Service

	list   func(req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error)
	get    func(id string) (*invoicedomain.Invoice, error)
	create func(input invoicedomain.InvoiceInput) (*invoicedomain.Invoice, error)
}

func (f *fakeInvoiceService) List(_ context.Context, req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
	return f.list(req)
}

func (f *fakeInvoiceService) Get(_ context.Context, id string) (*invoicedomain.Invoice, error) {
	return f.get(id)
}

func (f *fakeInvoiceService) Create(_ context.Context, input invoicedomain.InvoiceInput) (*invoicedomain.Invoice, error) {
	return f.create(input)
}

func (f *fakeInvoiceService) NextNumber(context.Context) (string, error) {
	return "0008", nil
}

type fakeQuotationService struct {
	quotationdomain.Service

	list    func(req quotationdomain.ListQuotationRequest) ([]quotationdomain.Quotation, error)
	convert func(id string) (*quotationdomain.Conversion, error)
	send    func(id string) (*quotationdomain.Quotation, error)
}

func (f *fakeQuotationService) List(_ context.Context, req quotationdomain.ListQuotationRequest) ([]quotationdomain.Quotation, error) {
	return f.list(req)
}

func (f *fakeQuotationService) ConvertToInvoice(_ context.Context, id string) (*quotationdomain.Conversion, error) {
	return f.convert(id)
}

func (f *fakeQuotationService) MarkSent(_ context.Context, id string) (*quotationdomain.Quotation, error) {
	return f.send(id)
}

type fakeCompanyService struct {
	companydomain.Service

	company *companydomain.Company
	upsert  func(req companydomain.UpsertCompanyRequest) (*companydomain.Company, error)
}

func (f *fakeCompanyService) Get(context.Context) (*companydomain.Company, error) {
	if f.company == nil {
		return nil, companydomain.ErrNotFound
	}
	return f.company, nil
}

func (f *fakeCompanyService) Upsert(_ context.Context, req companydomain.UpsertCompanyRequest) (*companydomain.Company, error) {
	return f.upsert(req)
}

type fakeAuditService struct {
	auditdomain.Service
}

type fakeResetter struct {
	emails []string
	err    error
}

func (f *fakeResetter) RequestPasswordReset(_ context.Context, address string) error {
	f.emails = append(f.emails, address)
	return f.err
}

type fakePDF struct{}

func (fakePDF) Generate(context.Context, render.Document) ([]byte, error) {
	return []byte("%PDF-1.4 test"), nil
}

type testServer struct {
	engine     *gin.Engine
	invoices   *fakeInvoiceService
	quotations *fakeQuotationService
	company    *fakeCompanyService
	resetter   *fakeResetter
}

func newTestServer(t *testing.T, auth config.AuthConfig) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	verifier, err := identity.NewVerifier(config.Config{Auth: auth})
	require.NoError(t, err)

	ts := &testServer{
		engine:     NewEngine(observability.Config{ServiceName: "invoicer-test"}, nil),
		invoices:   &fakeInvoiceService{},
		quotations: &fakeQuotationService{},
		company:    &fakeCompanyService{},
		resetter:   &fakeResetter{},
	}
	NewServer(ServerParams{
		Gin:          ts.engine,
		Log:          zap.NewNop(),
		Verifier:     verifier,
		Identity:     ts.resetter,
		InvoiceSvc:   ts.invoices,
		QuotationSvc: ts.quotations,
		CompanySvc:   ts.company,
		AuditSvc:     &fakeAuditService{},
		Renderer:     render.NewRenderer(),
		PDF:          fakePDF{},
		Defaults:     config.NewStaticDocumentDefaults(config.DefaultDocumentDefaults()),
	})
	return ts
}

func (ts *testServer) do(method, path, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	ts.engine.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Error   *errorPayload   `json:"error"`
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var out envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func sampleInvoice() *invoicedomain.Invoice {
	return &invoicedomain.Invoice{
		ID:            1,
		InvoiceNumber: "0007",
		Date:          time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		ClientName:    "Acme Corp",
		Items: []invoicedomain.InvoiceItem{{Item: lineitem.Item{
			Description: "Design",
			Quantity:    2,
			Rate:        decimal.NewFromInt(500),
			Amount:      decimal.NewFromInt(1000),
		}}},
		Total:            decimal.NewFromInt(1000),
		Advance:          decimal.NewFromInt(300),
		RemainingBalance: decimal.NewFromInt(700),
	}
}

const invoiceBody = `{
	"invoice_number": "0007",
	"date": "2026-05-02",
	"client_name": "Acme Corp",
	"items": [{"description": "Design", "quantity": 2, "rate": "500"}],
	"advance": 300
}`

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	rec := ts.do(http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthRequired(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{JWTSecret: testJWTSecret})

	rec := ts.do(http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decode(t, rec).Error.Type)

	rec = ts.do(http.MethodGet, "/api/me", "", "Authorization", "Bearer not-a-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, identity.Claims{
		Email: "owner@studio.test",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testJWTSecret))
	require.NoError(t, err)

	rec = ts.do(http.MethodGet, "/api/me", "", "Authorization", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"user-42","email":"owner@studio.test","auth_disabled":false}`, string(decode(t, rec).Data))
}

func TestAuthDisabledRunsAsLocalOperator(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	rec := ts.do(http.MethodGet, "/api/me", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"id":"local","email":"","auth_disabled":true}`, string(decode(t, rec).Data))
}

func TestCreateInvoice(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	var got invoicedomain.InvoiceInput
	ts.invoices.create = func(input invoicedomain.InvoiceInput) (*invoicedomain.Invoice, error) {
		got = input
		return sampleInvoice(), nil
	}

	rec := ts.do(http.MethodPost, "/api/invoices", invoiceBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	assert.Equal(t, "Invoice saved", resp.Message)
	assert.Contains(t, string(resp.Data), `"invoice_number":"0007"`)

	assert.Equal(t, "0007", got.InvoiceNumber)
	assert.Equal(t, time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC), got.Date)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(2), got.Items[0].Quantity)
	assert.True(t, got.Items[0].Rate.Equal(decimal.NewFromInt(500)))
	assert.True(t, got.Advance.Equal(decimal.NewFromInt(300)))
}

func TestCreateInvoiceBindingErrors(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})
	ts.invoices.create = func(invoicedomain.InvoiceInput) (*invoicedomain.Invoice, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}

	tests := []struct {
		name  string
		body  string
		field string
		code  string
	}{
		{
			name:  "missing client",
			body:  `{"items":[{"quantity":1,"rate":"1"}]}`,
			field: "client_name",
			code:  "required",
		},
		{
			name:  "bad date",
			body:  `{"date":"02/05/2026","client_name":"Acme","items":[{"quantity":1,"rate":"1"}]}`,
			field: "date",
			code:  "datetime",
		},
		{
			name:  "no items",
			body:  `{"client_name":"Acme","items":[]}`,
			field: "items",
			code:  "min",
		},
		{
			name:  "malformed json",
			body:  `{"client_name":`,
			field: "request",
			code:  "invalid_request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := ts.do(http.MethodPost, "/api/invoices", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

			payload := decode(t, rec).Error
			require.NotNil(t, payload)
			assert.Equal(t, "validation_error", payload.Type)
			require.NotEmpty(t, payload.Errors)
			assert.Equal(t, tt.field, payload.Errors[0].Field)
			assert.Equal(t, tt.code, payload.Errors[0].Code)
		})
	}
}

func TestDomainErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		typ    string
	}{
		{"not found", invoicedomain.ErrNotFound, http.StatusNotFound, "not_found"},
		{"bad id", invoicedomain.ErrInvalidID, http.StatusBadRequest, "validation_error"},
		{"advance", fmt.Errorf("summarize: %w", lineitem.ErrInvalidAdvance), http.StatusBadRequest, "validation_error"},
		{"duplicate", invoicedomain.ErrDuplicateNumber, http.StatusConflict, "conflict"},
		{"numbering", numbering.ErrUnavailable, http.StatusServiceUnavailable, "service_unavailable"},
		{"numbers exhausted", numbering.ErrExhausted, http.StatusConflict, "conflict"},
		{"backend", errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, config.AuthConfig{Disabled: true})
			ts.invoices.get = func(string) (*invoicedomain.Invoice, error) {
				return nil, tt.err
			}

			rec := ts.do(http.MethodGet, "/api/invoices/123", "")
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.typ, decode(t, rec).Error.Type)
		})
	}
}

func TestAdvanceErrorNamesField(t *testing.T) {
	status, payload := mapError(fmt.Errorf("create: %w", lineitem.ErrInvalidAdvance))

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "advance", payload.Field)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_advance", payload.Errors[0].Code)
}

func TestListInvoicesPassesSearch(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	var got invoicedomain.ListInvoiceRequest
	ts.invoices.list = func(req invoicedomain.ListInvoiceRequest) ([]invoicedomain.Invoice, error) {
		got = req
		return []invoicedomain.Invoice{*sampleInvoice()}, nil
	}

	rec := ts.do(http.MethodGet, "/api/invoices?q=%20acme%20&sort_by=date&order_by=ASC", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, invoicedomain.ListInvoiceRequest{Query: "acme", SortBy: "date", OrderBy: "asc"}, got)
}

func TestNextInvoiceNumber(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	rec := ts.do(http.MethodGet, "/api/invoices/next-number", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"number":"0008"}`, string(decode(t, rec).Data))
}

func TestListQuotationsPassesStatus(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	var got quotationdomain.ListQuotationRequest
	ts.quotations.list = func(req quotationdomain.ListQuotationRequest) ([]quotationdomain.Quotation, error) {
		got = req
		return nil, nil
	}

	rec := ts.do(http.MethodGet, "/api/quotations?status=SENT&q=logo", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sent", got.Status)
	assert.Equal(t, "logo", got.Query)
}

func TestQuotationLifecycleConflicts(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})
	ts.quotations.send = func(string) (*quotationdomain.Quotation, error) {
		return nil, quotationdomain.ErrInvalidStatusTransition
	}
	ts.quotations.convert = func(string) (*quotationdomain.Conversion, error) {
		return nil, quotationdomain.ErrQuotationConverted
	}

	rec := ts.do(http.MethodPost, "/api/quotations/55/send", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "status change not allowed", decode(t, rec).Error.Message)

	rec = ts.do(http.MethodPost, "/api/quotations/55/convert", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "quotation already converted to an invoice", decode(t, rec).Error.Message)
}

func TestConvertQuotation(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	invoice := sampleInvoice()
	invoice.InvoiceNumber = "0012"
	ts.quotations.convert = func(id string) (*quotationdomain.Conversion, error) {
		assert.Equal(t, "55", id)
		return &quotationdomain.Conversion{
			Quotation: &quotationdomain.Quotation{QuotationNumber: "0003", Status: quotationdomain.StatusConverted},
			Invoice:   invoice,
		}, nil
	}

	rec := ts.do(http.MethodPost, "/api/quotations/55/convert", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decode(t, rec)
	assert.Equal(t, "Quotation converted to invoice 0012", resp.Message)
	assert.Contains(t, string(resp.Data), `"status":"converted"`)
	assert.Contains(t, string(resp.Data), `"invoice_number":"0012"`)
}

func TestPrintInvoiceWithoutCompany(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})
	ts.invoices.get = func(string) (*invoicedomain.Invoice, error) {
		return sampleInvoice(), nil
	}

	rec := ts.do(http.MethodGet, "/api/invoices/1/print", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "text/html"))
	assert.Contains(t, rec.Body.String(), "0007")
	assert.Contains(t, rec.Body.String(), "Acme Corp")
}

func TestInvoicePDF(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})
	ts.invoices.get = func(string) (*invoicedomain.Invoice, error) {
		return sampleInvoice(), nil
	}

	rec := ts.do(http.MethodGet, "/api/invoices/1/pdf", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="invoice-0007-acme-corp.pdf"`, rec.Header().Get("Content-Disposition"))
	assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")))
}

func TestUpsertCompany(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	var got companydomain.UpsertCompanyRequest
	ts.company.upsert = func(req companydomain.UpsertCompanyRequest) (*companydomain.Company, error) {
		got = req
		return &companydomain.Company{ID: 9, Name: req.Name}, nil
	}

	rec := ts.do(http.MethodPut, "/api/company", `{"name":"Studio","email":"hello@studio.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Company details saved", decode(t, rec).Message)
	assert.Equal(t, "hello@studio.test", got.Email)

	rec = ts.do(http.MethodPut, "/api/company", `{"name":"Studio","email":"nope"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email", decode(t, rec).Error.Field)

	rec = ts.do(http.MethodGet, "/api/company", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestForgotPassword(t *testing.T) {
	ts := newTestServer(t, config.AuthConfig{Disabled: true})

	rec := ts.do(http.MethodPost, "/auth/forgot-password", `{"email":"owner@studio.test"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, decode(t, rec).Message)
	assert.Equal(t, []string{"owner@studio.test"}, ts.resetter.emails)

	ts.resetter.err = identity.ErrUnavailable
	rec = ts.do(http.MethodPost, "/auth/forgot-password", `{"email":"owner@studio.test"}`)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = ts.do(http.MethodPost, "/auth/forgot-password", `{"email":""}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
