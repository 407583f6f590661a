package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/config"
	"github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/numbering"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const maxNumberLength = 32

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Numbers  *numbering.Allocator
	Defaults *config.DocumentDefaultsHolder
	Audit    auditdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics    `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	numbers  *numbering.Allocator
	defaults *config.DocumentDefaultsHolder
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("invoice.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		numbers:  p.Numbers,
		defaults: p.Defaults,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) ([]domain.Invoice, error) {
	invoices, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Query:   req.Query,
		SortBy:  req.SortBy,
		OrderBy: req.OrderBy,
	})
	if err != nil {
		return nil, err
	}
	return invoices, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	invoice, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, domain.ErrNotFound
	}
	return invoice, nil
}

func (s *Service) Create(ctx context.Context, input domain.InvoiceInput) (*domain.Invoice, error) {
	invoice, err := s.prepare(input, false)
	if err != nil {
		return nil, err
	}

	var created *domain.Invoice
	err = s.numbers.Serialize(ctx, numbering.KindInvoice, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			out, err := s.insert(ctx, tx, invoice)
			if err != nil {
				return err
			}
			created = out
			return nil
		})
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindInvoice), "create", err)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "invoice.created", created, nil)
	return created, nil
}

func (s *Service) CreateTx(ctx context.Context, tx *gorm.DB, input domain.InvoiceInput) (*domain.Invoice, error) {
	invoice, err := s.prepare(input, false)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, tx, invoice)
}

func (s *Service) Update(ctx context.Context, id string, input domain.InvoiceInput) (*domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	invoice, err := s.prepare(input, true)
	if err != nil {
		return nil, err
	}

	var updated *domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}

		now := s.clock.Now()
		invoice.ID = existing.ID
		invoice.CreatedAt = existing.CreatedAt
		invoice.UpdatedAt = now

		if err := s.repo.Update(ctx, tx, invoice); err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateNumber
			}
			return err
		}
		// items are replaced wholesale, never diffed
		if err := s.repo.DeleteItems(ctx, tx, invoice.ID); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, s.materializeItems(invoice.ID, invoice.Lines(), now)); err != nil {
			return err
		}

		out, err := s.repo.FindByID(ctx, tx, invoice.ID)
		if err != nil {
			return err
		}
		updated = out
		return nil
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindInvoice), "update", err)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "invoice.updated", updated, nil)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	var removed *domain.Invoice
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, invoiceID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		// children first so the parent never dangles behind a foreign key
		if err := s.repo.DeleteItems(ctx, tx, invoiceID); err != nil {
			return err
		}
		if _, err := s.repo.Delete(ctx, tx, invoiceID); err != nil {
			return err
		}
		removed = existing
		return nil
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindInvoice), "delete", err)
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "invoice.deleted", removed, nil)
	return nil
}

func (s *Service) NextNumber(ctx context.Context) (string, error) {
	return s.numbers.Next(ctx, func(ctx context.Context) ([]string, error) {
		return s.repo.ListNumbers(ctx, s.db)
	})
}

// Draft returns an unsaved invoice pre-filled the way a new form starts.
func (s *Service) Draft(ctx context.Context) (*domain.Invoice, error) {
	number, err := s.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	defaults := s.defaults.Get()
	lines := lineitem.Add(nil)
	total := lineitem.Total(lines)
	return &domain.Invoice{
		InvoiceNumber:      number,
		Date:               clock.Today(s.clock.Now()),
		Items:              lineItems(lines),
		Total:              total,
		Advance:            decimal.Zero,
		RemainingBalance:   lineitem.Balance(total, decimal.Zero),
		PaymentTerms:       defaults.PaymentTerms,
		TermsAndConditions: defaults.TermsAndConditions,
		BankAccountDetails: defaults.BankAccountDetails,
	}, nil
}

// prepare validates input and derives every computed field. Nothing is written.
func (s *Service) prepare(input domain.InvoiceInput, requireNumber bool) (*domain.Invoice, error) {
	number := strings.TrimSpace(input.InvoiceNumber)
	if requireNumber && number == "" {
		return nil, domain.ErrInvalidNumber
	}
	if len(number) > maxNumberLength {
		return nil, domain.ErrInvalidNumber
	}

	clientName := strings.TrimSpace(input.ClientName)
	if clientName == "" {
		return nil, domain.ErrInvalidClientName
	}

	summary, err := lineitem.Summarize(input.Items, input.Advance)
	if err != nil {
		return nil, err
	}

	date := input.Date
	if date.IsZero() {
		date = s.clock.Now()
	}

	return &domain.Invoice{
		InvoiceNumber:      number,
		Date:               clock.Today(date),
		ClientName:         clientName,
		ClientContact:      strings.TrimSpace(input.ClientContact),
		ClientAddress:      strings.TrimSpace(input.ClientAddress),
		Total:              summary.Total,
		Advance:            summary.Advance,
		RemainingBalance:   summary.RemainingBalance,
		PaymentTerms:       input.PaymentTerms,
		TermsAndConditions: input.TermsAndConditions,
		BankAccountDetails: input.BankAccountDetails,
		Items:              lineItems(summary.Items),
	}, nil
}

// insert writes the parent row, then its items, then reads the result back, all on tx.
func (s *Service) insert(ctx context.Context, tx *gorm.DB, invoice *domain.Invoice) (*domain.Invoice, error) {
	if invoice.InvoiceNumber == "" {
		number, err := s.numbers.Next(ctx, func(ctx context.Context) ([]string, error) {
			return s.repo.ListNumbers(ctx, tx)
		})
		if err != nil {
			return nil, err
		}
		invoice.InvoiceNumber = number
		s.metrics.RecordNumberAllocation(ctx, string(numbering.KindInvoice))
	}

	now := s.clock.Now()
	invoice.ID = s.genID.Generate()
	invoice.CreatedAt = now
	invoice.UpdatedAt = now

	lines := invoice.Lines()
	if err := s.repo.Insert(ctx, tx, invoice); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}
	if err := s.repo.InsertItems(ctx, tx, s.materializeItems(invoice.ID, lines, now)); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, tx, invoice.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, errors.New("invoice missing after insert")
	}
	return created, nil
}

func (s *Service) materializeItems(invoiceID snowflake.ID, lines []lineitem.Item, now time.Time) []domain.InvoiceItem {
	computed, _ := lineitem.Recalculate(lines)
	items := make([]domain.InvoiceItem, 0, len(computed))
	for idx, line := range computed {
		items = append(items, domain.InvoiceItem{
			ID:        s.genID.Generate(),
			InvoiceID: invoiceID,
			Position:  idx,
			Item:      line,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}
	return items
}

func (s *Service) emitAudit(ctx context.Context, action string, invoice *domain.Invoice, extra map[string]any) {
	if s.audit == nil || invoice == nil {
		return
	}

	metadata := map[string]any{
		"invoice_number": invoice.InvoiceNumber,
		"client_name":    invoice.ClientName,
		"total":          invoice.Total.StringFixed(lineitem.MoneyScale),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	if err := s.audit.Record(ctx, action, "invoice", invoice.ID.String(), metadata); err != nil {
		s.log.Warn("failed to emit audit log", zap.String("action", action), zap.Error(err))
	}
}

func lineItems(lines []lineitem.Item) []domain.InvoiceItem {
	items := make([]domain.InvoiceItem, 0, len(lines))
	for idx, line := range lines {
		items = append(items, domain.InvoiceItem{Position: idx, Item: line})
	}
	return items
}

func parseID(id string) (snowflake.ID, error) {
	parsed, err := snowflake.ParseString(strings.TrimSpace(id))
	if err != nil || parsed == 0 {
		return 0, domain.ErrInvalidID
	}
	return parsed, nil
}
