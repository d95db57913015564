package services

import (
	"time"

	"github.com/developlogy/sitebuilder/app/models"
)

var builtinTemplates = []models.Template{
	{
		ID:       "restaurant-classic",
		Name:     "Classic Restaurant",
		Industry: models.IndustryRestaurants,
		Theme:    models.Theme{Color: "#D97706", FontScale: 1.1},
		Blocks: models.Blocks{
			&models.HeroBlock{
				ID:              "hero-1",
				Heading:         "Authentic Flavours Await",
				Subheading:      "Experience the finest dining with fresh ingredients and traditional recipes",
				CTALabel:        "Reserve Table",
				BackgroundImage: "/elegant-restaurant-dining-room.png",
			},
			&models.AboutBlock{
				ID:    "about-1",
				Title: "Our Story",
				Body:  "For over two decades, we have been crafting exceptional dining experiences with passion, quality, and tradition at the heart of everything we do.",
				Image: "/chef-preparing-food.png",
			},
			&models.ServicesBlock{
				ID:    "services-1",
				Title: "Our Menu Highlights",
				Items: []models.ServiceItem{
					{Name: "Signature Appetizers", Description: "Handcrafted starters to begin your culinary journey", Price: "₹199-399"},
					{Name: "Main Course Specialties", Description: "Traditional and contemporary dishes made to perfection", Price: "₹399-799"},
					{Name: "Dessert Collection", Description: "Sweet endings to complete your dining experience", Price: "₹149-299"},
				},
			},
		},
	},
	{
		ID:       "clinic-modern",
		Name:     "Modern Healthcare",
		Industry: models.IndustryClinics,
		Theme:    models.Theme{Color: "#059669", FontScale: 1.0},
		Blocks: models.Blocks{
			&models.HeroBlock{
				ID:              "hero-2",
				Heading:         "Your Health, Our Priority",
				Subheading:      "Comprehensive healthcare services with advanced technology and compassionate care",
				CTALabel:        "Book Consultation",
				BackgroundImage: "/modern-medical-facility.png",
			},
			&models.AboutBlock{
				ID:    "about-2",
				Title: "Excellence in Healthcare",
				Body:  "Our team of qualified medical professionals is dedicated to providing personalized care using the latest medical technology and evidence-based practices.",
				Image: "/placeholder-i9inm.png",
			},
			&models.ServicesBlock{
				ID:    "services-2",
				Title: "Medical Services",
				Items: []models.ServiceItem{
					{Name: "General Medicine", Description: "Comprehensive primary healthcare and preventive medicine", Price: "₹500"},
					{Name: "Specialist Consultations", Description: "Expert care from certified medical specialists", Price: "₹800-1200"},
					{Name: "Diagnostic Services", Description: "Advanced testing and imaging facilities", Price: "₹200-2000"},
				},
			},
		},
	},
}

// Templates returns the built-in templates, optionally filtered by industry.
// An empty industry returns all of them.
func Templates(industry models.Industry) []models.Template {
	out := []models.Template{}
	for _, t := range builtinTemplates {
		if industry == "" || t.Industry == industry {
			out = append(out, cloneTemplate(t))
		}
	}
	return out
}

// FindTemplate looks a built-in template up by id.
func FindTemplate(id string) (models.Template, bool) {
	for _, t := range builtinTemplates {
		if t.ID == id {
			return cloneTemplate(t), true
		}
	}
	return models.Template{}, false
}

// instantiate copies the template's blocks with fresh ids, so two sites
// created from one template never share block ids.
func instantiate(t models.Template, now time.Time) (models.Blocks, error) {
	out := make(models.Blocks, 0, len(t.Blocks))
	for _, b := range t.Blocks {
		c := b.Clone()
		if err := c.Accept(reassignID{id: models.NewBlockID(now)}); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func cloneTemplate(t models.Template) models.Template {
	t.Blocks = t.Blocks.Clone()
	return t
}

// reassignID sets the id of whichever variant it visits.
type reassignID struct{ id string }

func (r reassignID) VisitHero(b *models.HeroBlock) error                 { b.ID = r.id; return nil }
func (r reassignID) VisitAbout(b *models.AboutBlock) error               { b.ID = r.id; return nil }
func (r reassignID) VisitServices(b *models.ServicesBlock) error         { b.ID = r.id; return nil }
func (r reassignID) VisitGallery(b *models.GalleryBlock) error           { b.ID = r.id; return nil }
func (r reassignID) VisitTestimonials(b *models.TestimonialsBlock) error { b.ID = r.id; return nil }
func (r reassignID) VisitContact(b *models.ContactBlock) error           { b.ID = r.id; return nil }
func (r reassignID) VisitProducts(b *models.ProductsBlock) error         { b.ID = r.id; return nil }
func (r reassignID) VisitUnknown(b *models.UnknownBlock) error           { b.ID = r.id; return nil }
