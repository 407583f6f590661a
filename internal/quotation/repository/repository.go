package repository

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicer/internal/quotation/domain"
	"github.com/smallbiznis/invoicer/pkg/db/option"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, quotation *domain.Quotation) error {
	return db.WithContext(ctx).Create(quotation).Error
}

func (r *repo) InsertItems(ctx context.Context, db *gorm.DB, items []domain.QuotationItem) error {
	if len(items) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(&items).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, quotation *domain.Quotation, expected domain.Status) (bool, error) {
	res := db.WithContext(ctx).
		Model(quotation).
		Where("status = ?", expected).
		Select("*").
		Omit("id", "created_at", "converted_invoice_id").
		Updates(quotation)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStatus moves a quotation from one status to another only if it is still in from.
func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, from, to domain.Status, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]any{
			"status":     to,
			"updated_at": at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) MarkConverted(ctx context.Context, db *gorm.DB, id, invoiceID snowflake.ID, at time.Time) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Where("id = ? AND status <> ?", id, domain.StatusConverted).
		Updates(map[string]any{
			"status":               domain.StatusConverted,
			"converted_invoice_id": invoiceID,
			"updated_at":           at,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) DeleteItems(ctx context.Context, db *gorm.DB, quotationID snowflake.ID) error {
	return db.WithContext(ctx).
		Where("quotation_id = ?", quotationID).
		Delete(&domain.QuotationItem{}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Quotation{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Quotation, error) {
	var quotation domain.Quotation
	err := db.WithContext(ctx).
		Where("id = ?", id).
		Limit(1).
		Find(&quotation).Error
	if err != nil {
		return nil, err
	}
	if quotation.ID == 0 {
		return nil, nil
	}

	items, err := r.itemsFor(ctx, db, []snowflake.ID{quotation.ID})
	if err != nil {
		return nil, err
	}
	quotation.Items = items[quotation.ID]
	return &quotation, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Quotation, error) {
	var quotations []domain.Quotation
	stmt := db.WithContext(ctx).Model(&domain.Quotation{})
	if q := strings.ToLower(strings.TrimSpace(filter.Query)); q != "" {
		like := "%" + q + "%"
		stmt = stmt.Where("(LOWER(client_name) LIKE ? OR LOWER(quotation_number) LIKE ?)", like, like)
	}
	if filter.Status != "" {
		stmt = option.ApplyOperator(option.Condition{
			Field:    "status",
			Operator: option.EQ,
			Value:    filter.Status,
		}).Apply(stmt)
	}
	stmt = option.WithSortBy(option.WithQuerySortBy(filter.SortBy, filter.OrderBy, map[string]bool{
		"created_at":       true,
		"date":             true,
		"expiry_date":      true,
		"quotation_number": true,
		"total":            true,
	})).Apply(stmt)

	if err := stmt.Find(&quotations).Error; err != nil {
		return nil, err
	}
	if len(quotations) == 0 {
		return quotations, nil
	}

	ids := make([]snowflake.ID, 0, len(quotations))
	for _, quotation := range quotations {
		ids = append(ids, quotation.ID)
	}
	items, err := r.itemsFor(ctx, db, ids)
	if err != nil {
		return nil, err
	}
	for i := range quotations {
		quotations[i].Items = items[quotations[i].ID]
	}
	return quotations, nil
}

func (r *repo) ListNumbers(ctx context.Context, db *gorm.DB) ([]string, error) {
	var numbers []string
	err := db.WithContext(ctx).
		Model(&domain.Quotation{}).
		Pluck("quotation_number", &numbers).Error
	if err != nil {
		return nil, err
	}
	return numbers, nil
}

func (r *repo) itemsFor(ctx context.Context, db *gorm.DB, quotationIDs []snowflake.ID) (map[snowflake.ID][]domain.QuotationItem, error) {
	var items []domain.QuotationItem
	err := db.WithContext(ctx).
		Where("quotation_id IN ?", quotationIDs).
		Order("quotation_id, position, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	grouped := make(map[snowflake.ID][]domain.QuotationItem, len(quotationIDs))
	for _, item := range items {
		grouped[item.QuotationID] = append(grouped[item.QuotationID], item)
	}
	return grouped, nil
}
