package migrations

import (
	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/pkg/migration"
	"github.com/developlogy/sitebuilder/pkg/queue"
)

func init() {
	migration.Register("20260301000000_create_users_table", &createTable{model: &models.UserRecord{}, table: "users"})
	migration.Register("20260301000001_create_sites_table", &createTable{model: &models.SiteRecord{}, table: "sites"})
	migration.Register("20260301000002_create_orders_table", &createTable{model: &models.OrderRecord{}, table: "orders"})
	migration.Register("20260301000003_create_analytics_events_table", &createTable{model: &models.AnalyticsEventRecord{}, table: "analytics_events"})
	migration.Register("20260301000004_create_failed_jobs_table", &createTable{model: &queue.FailedJobRecord{}, table: "failed_jobs"})
}

// createTable auto-migrates one record type and drops its table on rollback.
type createTable struct {
	model any
	table string
}

func (m *createTable) Up(db *gorm.DB) error {
	return db.AutoMigrate(m.model)
}

func (m *createTable) Down(db *gorm.DB) error {
	return db.Migrator().DropTable(m.table)
}
