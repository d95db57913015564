package repositories

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/models"
)

// GormUserRepository stores users in the users table. Emails are stored
// normalised, so lookups are case-insensitive.
type GormUserRepository struct {
	db  *gorm.DB
	now Clock
}

func NewGormUserRepository(db *gorm.DB, now Clock) *GormUserRepository {
	return &GormUserRepository{db: db, now: clockOr(now)}
}

func (r *GormUserRepository) Find(ctx context.Context, id string) (*models.User, error) {
	return r.first(ctx, "find user", "id = ?", id)
}

func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.first(ctx, "find user by email", "email = ?", models.NormalizeEmail(email))
}

func (r *GormUserRepository) first(ctx context.Context, op, query string, arg any) (*models.User, error) {
	var rec models.UserRecord
	err := r.db.WithContext(ctx).Where(query, arg).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, models.Storage(op, err)
	}
	return rec.ToModel(), nil
}

func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	fillUser(user, r.now)
	if err := r.db.WithContext(ctx).Create(models.NewUserRecord(user)).Error; err != nil {
		return models.Storage("create user", err)
	}
	return nil
}

func fillUser(user *models.User, now Clock) {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now()
	}
	user.Email = models.NormalizeEmail(user.Email)
}
