package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/go-playground/validator/v10"
	auditdomain "github.com/smallbiznis/invoicer/internal/audit/domain"
	"github.com/smallbiznis/invoicer/internal/clock"
	"github.com/smallbiznis/invoicer/internal/company/domain"
	"github.com/smallbiznis/invoicer/pkg/db/option"
	"github.com/smallbiznis/invoicer/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Audit auditdomain.Service `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	audit    auditdomain.Service
	store    repository.Repository[domain.Company]
	validate *validator.Validate
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("company.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		audit:    p.Audit,
		store:    repository.ProvideStore[domain.Company](p.DB),
		validate: validator.New(),
	}
}

func (s *Service) Get(ctx context.Context) (*domain.Company, error) {
	company, err := s.first(ctx, s.store)
	if err != nil {
		return nil, err
	}
	if company == nil {
		return nil, domain.ErrNotFound
	}
	return company, nil
}

func (s *Service) Upsert(ctx context.Context, req domain.UpsertCompanyRequest) (*domain.Company, error) {
	var saved *domain.Company
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out, err := s.write(ctx, s.store.WithTrx(tx), req)
		if err != nil {
			return err
		}
		saved = out
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		if err := s.audit.Record(ctx, "company.updated", "company", saved.ID.String(), map[string]any{
			"name": saved.Name,
		}); err != nil {
			s.log.Warn("failed to emit audit log", zap.Error(err))
		}
	}
	return saved, nil
}

func (s *Service) Seed(ctx context.Context, req domain.UpsertCompanyRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		store := s.store.WithTrx(tx)
		existing, err := s.first(ctx, store)
		if err != nil {
			return err
		}
		if existing != nil {
			return nil
		}
		company, err := s.write(ctx, store, req)
		if err != nil {
			return err
		}
		s.log.Info("seeded company info", zap.String("company_id", company.ID.String()))
		return nil
	})
}

func (s *Service) write(ctx context.Context, store repository.Repository[domain.Company], req domain.UpsertCompanyRequest) (*domain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.Email)
	if email != "" {
		if err := s.validate.Var(email, "email"); err != nil {
			return nil, domain.ErrInvalidEmail
		}
	}

	existing, err := s.first(ctx, store)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	company := domain.Company{
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		Phone:     optional(req.Phone),
		Email:     optional(email),
		UpdatedAt: now,
	}
	if existing == nil {
		company.ID = s.genID.Generate()
		company.CreatedAt = now
		if err := store.Create(ctx, &company); err != nil {
			return nil, err
		}
		return &company, nil
	}

	company.ID = existing.ID
	company.CreatedAt = existing.CreatedAt
	if err := store.Save(ctx, &company); err != nil {
		return nil, err
	}
	return &company, nil
}

func (s *Service) first(ctx context.Context, store repository.Repository[domain.Company]) (*domain.Company, error) {
	return store.FindOne(ctx, &domain.Company{}, option.WithSortBy(option.WithQuerySortBy("created_at", "asc", map[string]bool{
		"created_at": true,
	})))
}

func optional(value string) *string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	return &value
}
