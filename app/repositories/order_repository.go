package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/developlogy/sitebuilder/app/models"
)

type GormOrderRepository struct {
	db  *gorm.DB
	now Clock
}

func NewGormOrderRepository(db *gorm.DB, now Clock) *GormOrderRepository {
	return &GormOrderRepository{db: db, now: clockOr(now)}
}

func (r *GormOrderRepository) Save(ctx context.Context, order *models.Order) error {
	fillOrder(order, r.now)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "id"}}, UpdateAll: true}).
		Create(models.NewOrderRecord(order)).Error
	if err != nil {
		return models.Storage("save order", err)
	}
	return nil
}

func fillOrder(order *models.Order, now Clock) {
	if order.ID == "" {
		order.ID = "order_" + uuid.NewString()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = now()
	}
	if order.UpdatedAt.IsZero() {
		order.UpdatedAt = order.CreatedAt
	}
}

func (r *GormOrderRepository) Find(ctx context.Context, id string) (*models.Order, error) {
	var rec models.OrderRecord
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage("find order", err)
	}
	return rec.ToModel(), nil
}

func (r *GormOrderRepository) ListByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	return r.list(ctx, "list orders by user", "user_id = ?", userID)
}

func (r *GormOrderRepository) ListBySite(ctx context.Context, siteID string) ([]*models.Order, error) {
	return r.list(ctx, "list orders by site", "site_id = ?", siteID)
}

func (r *GormOrderRepository) list(ctx context.Context, op, query string, arg any) ([]*models.Order, error) {
	var recs []models.OrderRecord
	if err := r.db.WithContext(ctx).Where(query, arg).Order("created_at DESC").Order("id").Find(&recs).Error; err != nil {
		return nil, models.Storage(op, err)
	}
	out := make([]*models.Order, 0, len(recs))
	for i := range recs {
		out = append(out, recs[i].ToModel())
	}
	return out, nil
}
