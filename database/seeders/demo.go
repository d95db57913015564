package seeders

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/repositories"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/event"
)

// DemoEmail owns the demo sites.
const DemoEmail = "demo@developlogy.com"

var demoSites = []services.OnboardInput{
	{
		BusinessName: "Spice Route Cafe",
		Industry:     models.IndustryRestaurants,
		TemplateID:   "restaurant-classic",
		BusinessInfo: models.BusinessInfo{Email: "hello@spiceroute.example", Phone: "+91 20 4000 1234"},
	},
	{
		BusinessName: "City Care Clinic",
		Industry:     models.IndustryClinics,
	},
	{
		BusinessName: "Threadline Boutique",
		Industry:     models.IndustryBoutiques,
	},
}

func init() { Register("demo", seedDemo) }

// seedDemo creates the demo user and its sites. It does nothing when the
// user already has sites.
func seedDemo(ctx context.Context, db *gorm.DB) error {
	users := repositories.NewGormUserRepository(db, nil)
	siteRepo := repositories.NewGormSiteRepository(db, nil)

	user, err := users.FindByEmail(ctx, DemoEmail)
	if errors.Is(err, models.ErrNotFound) {
		user = &models.User{Email: DemoEmail}
		err = users.Create(ctx, user)
	}
	if err != nil {
		return err
	}

	existing, err := siteRepo.ListByOwner(ctx, user.ID)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	sites := services.NewSiteService(siteRepo, event.NewBus(), nil)
	for _, in := range demoSites {
		if _, err := sites.Onboard(ctx, user.ID, in); err != nil {
			return err
		}
	}
	return nil
}
