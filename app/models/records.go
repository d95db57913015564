package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// The *Record types are the GORM table mappings. Domain types stay free of
// persistence tags; repositories convert at the boundary.

type UserRecord struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Email     string    `gorm:"uniqueIndex;size:255;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime:false"`
}

func (UserRecord) TableName() string { return "users" }

func NewUserRecord(u *User) *UserRecord {
	return &UserRecord{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func (r *UserRecord) ToModel() *User {
	return &User{ID: r.ID, Email: r.Email, CreatedAt: r.CreatedAt.UTC()}
}

type SiteRecord struct {
	ID               string                           `gorm:"primaryKey;size:36"`
	OwnerID          string                           `gorm:"size:36;not null;index"`
	Name             string                           `gorm:"size:255;not null"`
	Industry         string                           `gorm:"size:100;not null"`
	LogoURL          string                           `gorm:"size:1024"`
	BusinessInfo     datatypes.JSONType[BusinessInfo] `gorm:"not null"`
	Theme            datatypes.JSONType[Theme]        `gorm:"not null"`
	SEO              datatypes.JSONType[SEO]          `gorm:"column:seo;not null"`
	Blocks           datatypes.JSON                   `gorm:"not null"`
	EcommerceEnabled bool                             `gorm:"not null;default:false"`
	Version          int64                            `gorm:"not null;default:1"`
	CreatedAt        time.Time                        `gorm:"autoCreateTime:false"`
	UpdatedAt        time.Time                        `gorm:"autoUpdateTime:false;index"`
}

func (SiteRecord) TableName() string { return "sites" }

func NewSiteRecord(s *Site) (*SiteRecord, error) {
	blocks, err := json.Marshal(s.Blocks)
	if err != nil {
		return nil, fmt.Errorf("encode blocks of site %s: %w", s.ID, err)
	}
	return &SiteRecord{
		ID:               s.ID,
		OwnerID:          s.OwnerID,
		Name:             s.Name,
		Industry:         string(s.Industry),
		LogoURL:          s.LogoURL,
		BusinessInfo:     datatypes.NewJSONType(s.BusinessInfo),
		Theme:            datatypes.NewJSONType(s.Theme),
		SEO:              datatypes.NewJSONType(s.SEO),
		Blocks:           datatypes.JSON(blocks),
		EcommerceEnabled: s.EcommerceEnabled,
		Version:          s.Version,
		CreatedAt:        s.CreatedAt,
		UpdatedAt:        s.UpdatedAt,
	}, nil
}

func (r *SiteRecord) ToModel() (*Site, error) {
	var blocks Blocks
	if len(r.Blocks) > 0 {
		if err := json.Unmarshal(r.Blocks, &blocks); err != nil {
			return nil, fmt.Errorf("decode blocks of site %s: %w", r.ID, err)
		}
	}
	if blocks == nil {
		blocks = Blocks{}
	}
	return &Site{
		ID:               r.ID,
		OwnerID:          r.OwnerID,
		Name:             r.Name,
		Industry:         Industry(r.Industry),
		LogoURL:          r.LogoURL,
		BusinessInfo:     r.BusinessInfo.Data(),
		Theme:            r.Theme.Data(),
		SEO:              r.SEO.Data(),
		Blocks:           blocks,
		EcommerceEnabled: r.EcommerceEnabled,
		Version:          r.Version,
		CreatedAt:        r.CreatedAt.UTC(),
		UpdatedAt:        r.UpdatedAt.UTC(),
	}, nil
}

type OrderRecord struct {
	ID            string                           `gorm:"primaryKey;size:64"`
	SiteID        string                           `gorm:"size:36;not null;index"`
	UserID        string                           `gorm:"size:36;index"`
	Items         datatypes.JSONType[[]CartItem]   `gorm:"not null"`
	Total         decimal.Decimal                  `gorm:"type:decimal(12,2);not null"`
	CustomerInfo  datatypes.JSONType[CustomerInfo] `gorm:"not null"`
	PaymentStatus string                           `gorm:"size:20;not null;index"`
	PaymentMethod string                           `gorm:"size:50"`
	TransactionID string                           `gorm:"size:255"`
	FailureReason string                           `gorm:"size:1024"`
	CreatedAt     time.Time                        `gorm:"autoCreateTime:false;index"`
	UpdatedAt     time.Time                        `gorm:"autoUpdateTime:false"`
}

func (OrderRecord) TableName() string { return "orders" }

func NewOrderRecord(o *Order) *OrderRecord {
	return &OrderRecord{
		ID:            o.ID,
		SiteID:        o.SiteID,
		UserID:        o.UserID,
		Items:         datatypes.NewJSONType(o.Items),
		Total:         o.Total,
		CustomerInfo:  datatypes.NewJSONType(o.CustomerInfo),
		PaymentStatus: string(o.PaymentStatus),
		PaymentMethod: o.PaymentMethod,
		TransactionID: o.TransactionID,
		FailureReason: o.FailureReason,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
	}
}

func (r *OrderRecord) ToModel() *Order {
	items := r.Items.Data()
	if items == nil {
		items = []CartItem{}
	}
	return &Order{
		ID:            r.ID,
		SiteID:        r.SiteID,
		UserID:        r.UserID,
		Items:         items,
		Total:         r.Total,
		CustomerInfo:  r.CustomerInfo.Data(),
		PaymentStatus: PaymentStatus(r.PaymentStatus),
		PaymentMethod: r.PaymentMethod,
		TransactionID: r.TransactionID,
		FailureReason: r.FailureReason,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type AnalyticsEventRecord struct {
	ID        string                            `gorm:"primaryKey;size:36"`
	SiteID    string                            `gorm:"size:36;not null;index:idx_analytics_site_time"`
	Type      string                            `gorm:"size:20;not null"`
	Path      string                            `gorm:"size:1024"`
	Metadata  datatypes.JSONType[EventMetadata] `gorm:"not null"`
	Timestamp time.Time                         `gorm:"not null;index:idx_analytics_site_time;index"`
}

func (AnalyticsEventRecord) TableName() string { return "analytics_events" }

func NewAnalyticsEventRecord(e *AnalyticsEvent) *AnalyticsEventRecord {
	return &AnalyticsEventRecord{
		ID:        e.ID,
		SiteID:    e.SiteID,
		Type:      string(e.Type),
		Path:      e.Path,
		Metadata:  datatypes.NewJSONType(e.Metadata),
		Timestamp: e.Timestamp,
	}
}

func (r *AnalyticsEventRecord) ToModel() AnalyticsEvent {
	return AnalyticsEvent{
		ID:        r.ID,
		SiteID:    r.SiteID,
		Type:      EventType(r.Type),
		Path:      r.Path,
		Metadata:  r.Metadata.Data(),
		Timestamp: r.Timestamp.UTC(),
	}
}
