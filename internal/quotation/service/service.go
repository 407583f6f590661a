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
	invoicedomain "github.com/smallbiznis/invoicer/internal/invoice/domain"
	"github.com/smallbiznis/invoicer/internal/lineitem"
	"github.com/smallbiznis/invoicer/internal/numbering"
	"github.com/smallbiznis/invoicer/internal/observability/metrics"
	"github.com/smallbiznis/invoicer/internal/quotation/domain"
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
	Invoices invoicedomain.Service
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
	invoices invoicedomain.Service
	numbers  *numbering.Allocator
	defaults *config.DocumentDefaultsHolder
	audit    auditdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("quotation.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		invoices: p.Invoices,
		numbers:  p.Numbers,
		defaults: p.Defaults,
		audit:    p.Audit,
		metrics:  p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, req domain.ListQuotationRequest) ([]domain.Quotation, error) {
	filter := domain.ListFilter{
		Query:   req.Query,
		SortBy:  req.SortBy,
		OrderBy: req.OrderBy,
	}
	if strings.TrimSpace(req.Status) != "" {
		status, ok := domain.ParseStatus(req.Status)
		if !ok {
			return nil, domain.ErrInvalidStatus
		}
		filter.Status = status
	}

	quotations, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return nil, err
	}
	return quotations, nil
}

func (s *Service) Get(ctx context.Context, id string) (*domain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	quotation, err := s.repo.FindByID(ctx, s.db, quotationID)
	if err != nil {
		return nil, err
	}
	if quotation == nil {
		return nil, domain.ErrNotFound
	}
	return quotation, nil
}

func (s *Service) Create(ctx context.Context, input domain.QuotationInput) (*domain.Quotation, error) {
	quotation, err := s.prepare(input, false)
	if err != nil {
		return nil, err
	}
	quotation.Status = domain.StatusDraft

	var created *domain.Quotation
	err = s.numbers.Serialize(ctx, numbering.KindQuotation, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			out, err := s.insert(ctx, tx, quotation)
			if err != nil {
				return err
			}
			created = out
			return nil
		})
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindQuotation), "create", err)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "quotation.created", created, nil)
	return created, nil
}

func (s *Service) Update(ctx context.Context, id string, input domain.QuotationInput) (*domain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	quotation, err := s.prepare(input, true)
	if err != nil {
		return nil, err
	}

	var updated *domain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, quotationID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if !existing.Status.CanEdit() {
			return domain.ErrQuotationConverted
		}

		quotation.Status = existing.Status
		if input.Status != "" {
			next, ok := domain.ParseStatus(string(input.Status))
			if !ok {
				return domain.ErrInvalidStatus
			}
			if !existing.Status.CanTransitionTo(next) {
				return domain.ErrInvalidStatusTransition
			}
			quotation.Status = next
		}

		now := s.clock.Now()
		quotation.ID = existing.ID
		quotation.CreatedAt = existing.CreatedAt
		quotation.UpdatedAt = now

		ok, err := s.repo.Update(ctx, tx, quotation, existing.Status)
		if err != nil {
			if db.IsDuplicateKeyErr(err) {
				return domain.ErrDuplicateNumber
			}
			return err
		}
		if !ok {
			return s.staleStatusErr(ctx, tx, quotationID)
		}
		if err := s.repo.DeleteItems(ctx, tx, quotation.ID); err != nil {
			return err
		}
		if err := s.repo.InsertItems(ctx, tx, s.materializeItems(quotation.ID, quotation.Lines(), now)); err != nil {
			return err
		}

		out, err := s.repo.FindByID(ctx, tx, quotation.ID)
		if err != nil {
			return err
		}
		updated = out
		return nil
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindQuotation), "update", err)
	if err != nil {
		return nil, err
	}

	s.emitAudit(ctx, "quotation.updated", updated, nil)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	quotationID, err := parseID(id)
	if err != nil {
		return err
	}

	var removed *domain.Quotation
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, quotationID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if err := s.repo.DeleteItems(ctx, tx, quotationID); err != nil {
			return err
		}
		if _, err := s.repo.Delete(ctx, tx, quotationID); err != nil {
			return err
		}
		removed = existing
		return nil
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindQuotation), "delete", err)
	if err != nil {
		return err
	}

	s.emitAudit(ctx, "quotation.deleted", removed, nil)
	return nil
}

func (s *Service) NextNumber(ctx context.Context) (string, error) {
	return s.numbers.Next(ctx, func(ctx context.Context) ([]string, error) {
		return s.repo.ListNumbers(ctx, s.db)
	})
}

func (s *Service) Draft(ctx context.Context) (*domain.Quotation, error) {
	number, err := s.NextNumber(ctx)
	if err != nil {
		return nil, err
	}

	defaults := s.defaults.Get()
	today := clock.Today(s.clock.Now())
	lines := lineitem.Add(nil)
	return &domain.Quotation{
		QuotationNumber:    number,
		Date:               today,
		ExpiryDate:         today.AddDate(0, 0, defaults.QuotationValidityDays),
		Status:             domain.StatusDraft,
		Items:              lineItems(lines),
		Total:              lineitem.Total(lines),
		QuotationTerms:     defaults.QuotationTerms,
		TermsAndConditions: defaults.TermsAndConditions,
		BankAccountDetails: defaults.BankAccountDetails,
	}, nil
}

func (s *Service) MarkSent(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.Transition(ctx, id, domain.StatusSent)
}

func (s *Service) MarkAccepted(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.Transition(ctx, id, domain.StatusAccepted)
}

func (s *Service) MarkRejected(ctx context.Context, id string) (*domain.Quotation, error) {
	return s.Transition(ctx, id, domain.StatusRejected)
}

// Transition changes only the status. Conversion has its own operation.
func (s *Service) Transition(ctx context.Context, id string, next domain.Status) (*domain.Quotation, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	next, ok := domain.ParseStatus(string(next))
	if !ok {
		return nil, domain.ErrInvalidStatus
	}

	var (
		updated  *domain.Quotation
		previous domain.Status
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByID(ctx, tx, quotationID)
		if err != nil {
			return err
		}
		if existing == nil {
			return domain.ErrNotFound
		}
		if existing.Status == domain.StatusConverted {
			return domain.ErrQuotationConverted
		}
		if !existing.Status.CanTransitionTo(next) {
			return domain.ErrInvalidStatusTransition
		}
		previous = existing.Status
		if existing.Status == next {
			updated = existing
			return nil
		}

		changed, err := s.repo.UpdateStatus(ctx, tx, existing.ID, existing.Status, next, s.clock.Now())
		if err != nil {
			return err
		}
		if !changed {
			return s.staleStatusErr(ctx, tx, existing.ID)
		}

		out, err := s.repo.FindByID(ctx, tx, existing.ID)
		if err != nil {
			return err
		}
		updated = out
		return nil
	})
	s.metrics.RecordDocumentWrite(ctx, string(numbering.KindQuotation), "transition", err)
	if err != nil {
		return nil, err
	}

	if previous != next {
		s.emitAudit(ctx, "quotation.status_changed", updated, map[string]any{
			"from": string(previous),
			"to":   string(next),
		})
	}
	return updated, nil
}

// ConvertToInvoice materializes an invoice from the quotation and marks the
// quotation converted. Both writes commit together or not at all, so a failed
// conversion leaves the quotation convertible and no invoice behind.
func (s *Service) ConvertToInvoice(ctx context.Context, id string) (*domain.Conversion, error) {
	quotationID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var result domain.Conversion
	err = s.numbers.Serialize(ctx, numbering.KindInvoice, func(ctx context.Context) error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			quotation, err := s.repo.FindByID(ctx, tx, quotationID)
			if err != nil {
				return err
			}
			if quotation == nil {
				return domain.ErrNotFound
			}
			if quotation.Status == domain.StatusConverted {
				return domain.ErrQuotationConverted
			}
			if !quotation.Status.CanConvert() {
				return domain.ErrNotConvertible
			}

			now := s.clock.Now()
			invoice, err := s.invoices.CreateTx(ctx, tx, invoicedomain.InvoiceInput{
				Date:               now,
				ClientName:         quotation.ClientName,
				ClientContact:      quotation.ClientContact,
				ClientAddress:      quotation.ClientAddress,
				Items:              quotation.Lines(),
				Advance:            decimal.Zero,
				PaymentTerms:       quotation.QuotationTerms,
				TermsAndConditions: quotation.TermsAndConditions,
				BankAccountDetails: quotation.BankAccountDetails,
			})
			if err != nil {
				return err
			}

			flipped, err := s.repo.MarkConverted(ctx, tx, quotation.ID, invoice.ID, now)
			if err != nil {
				return err
			}
			if !flipped {
				return domain.ErrQuotationConverted
			}

			converted, err := s.repo.FindByID(ctx, tx, quotation.ID)
			if err != nil {
				return err
			}
			result = domain.Conversion{Quotation: converted, Invoice: invoice}
			return nil
		})
	})
	s.metrics.RecordConversion(ctx, err)
	if err != nil {
		return nil, err
	}

	s.log.Info("quotation converted",
		zap.String("quotation_id", result.Quotation.ID.String()),
		zap.String("invoice_id", result.Invoice.ID.String()),
		zap.String("invoice_number", result.Invoice.InvoiceNumber),
	)
	s.emitAudit(ctx, "quotation.converted", result.Quotation, map[string]any{
		"invoice_id":     result.Invoice.ID.String(),
		"invoice_number": result.Invoice.InvoiceNumber,
	})
	return &result, nil
}

func (s *Service) prepare(input domain.QuotationInput, requireNumber bool) (*domain.Quotation, error) {
	number := strings.TrimSpace(input.QuotationNumber)
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

	if err := lineitem.Validate(input.Items); err != nil {
		return nil, err
	}
	computed, total := lineitem.Recalculate(input.Items)

	date := input.Date
	if date.IsZero() {
		date = s.clock.Now()
	}
	date = clock.Today(date)

	expiry := input.ExpiryDate
	if expiry.IsZero() {
		expiry = date.AddDate(0, 0, s.defaults.Get().QuotationValidityDays)
	}
	expiry = clock.Today(expiry)
	if expiry.Before(date) {
		return nil, domain.ErrInvalidExpiryDate
	}

	return &domain.Quotation{
		QuotationNumber:    number,
		Date:               date,
		ExpiryDate:         expiry,
		ClientName:         clientName,
		ClientContact:      strings.TrimSpace(input.ClientContact),
		ClientAddress:      strings.TrimSpace(input.ClientAddress),
		Total:              total,
		QuotationTerms:     input.QuotationTerms,
		TermsAndConditions: input.TermsAndConditions,
		BankAccountDetails: input.BankAccountDetails,
		Items:              lineItems(computed),
	}, nil
}

func (s *Service) insert(ctx context.Context, tx *gorm.DB, quotation *domain.Quotation) (*domain.Quotation, error) {
	if quotation.QuotationNumber == "" {
		number, err := s.numbers.Next(ctx, func(ctx context.Context) ([]string, error) {
			return s.repo.ListNumbers(ctx, tx)
		})
		if err != nil {
			return nil, err
		}
		quotation.QuotationNumber = number
		s.metrics.RecordNumberAllocation(ctx, string(numbering.KindQuotation))
	}

	now := s.clock.Now()
	quotation.ID = s.genID.Generate()
	quotation.CreatedAt = now
	quotation.UpdatedAt = now

	lines := quotation.Lines()
	if err := s.repo.Insert(ctx, tx, quotation); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrDuplicateNumber
		}
		return nil, err
	}
	if err := s.repo.InsertItems(ctx, tx, s.materializeItems(quotation.ID, lines, now)); err != nil {
		return nil, err
	}

	created, err := s.repo.FindByID(ctx, tx, quotation.ID)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, errors.New("quotation missing after insert")
	}
	return created, nil
}

func (s *Service) materializeItems(quotationID snowflake.ID, lines []lineitem.Item, now time.Time) []domain.QuotationItem {
	computed, _ := lineitem.Recalculate(lines)
	items := make([]domain.QuotationItem, 0, len(computed))
	for idx, line := range computed {
		items = append(items, domain.QuotationItem{
			ID:          s.genID.Generate(),
			QuotationID: quotationID,
			Position:    idx,
			Item:        line,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
	}
	return items
}

func (s *Service) emitAudit(ctx context.Context, action string, quotation *domain.Quotation, extra map[string]any) {
	if s.audit == nil || quotation == nil {
		return
	}

	metadata := map[string]any{
		"quotation_number": quotation.QuotationNumber,
		"client_name":      quotation.ClientName,
		"status":           string(quotation.Status),
		"total":            quotation.Total.StringFixed(lineitem.MoneyScale),
	}
	for key, value := range extra {
		metadata[key] = value
	}
	if err := s.audit.Record(ctx, action, "quotation", quotation.ID.String(), metadata); err != nil {
		s.log.Warn("failed to emit audit log", zap.String("action", action), zap.Error(err))
	}
}

// staleStatusErr explains a write that lost a race with another status change.
func (s *Service) staleStatusErr(ctx context.Context, tx *gorm.DB, id snowflake.ID) error {
	current, err := s.repo.FindByID(ctx, tx, id)
	if err != nil {
		return err
	}
	switch {
	case current == nil:
		return domain.ErrNotFound
	case current.Status == domain.StatusConverted:
		return domain.ErrQuotationConverted
	default:
		return domain.ErrInvalidStatusTransition
	}
}

func lineItems(lines []lineitem.Item) []domain.QuotationItem {
	items := make([]domain.QuotationItem, 0, len(lines))
	for idx, line := range lines {
		items = append(items, domain.QuotationItem{Position: idx, Item: line})
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
