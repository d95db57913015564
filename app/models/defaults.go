package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Contact placeholders used when a business has not filled in its details.
const (
	PlaceholderEmail   = "info@example.com"
	PlaceholderPhone   = "+91 98765 43210"
	PlaceholderAddress = "123 Business Street, City, State 400001"
)

// DefaultBlock returns a fully populated block of the given kind, as the
// builder palette inserts it.
func DefaultBlock(kind BlockKind, id string, now time.Time) (Block, error) {
	switch kind {
	case KindHero:
		return &HeroBlock{
			ID:         id,
			Heading:    "Welcome to Our Business",
			Subheading: "We provide exceptional services to help you succeed",
			CTALabel:   "Get Started",
		}, nil

	case KindAbout:
		return &AboutBlock{
			ID:    id,
			Title: "About Us",
			Body:  "We are passionate about delivering quality services that exceed expectations. Our team is dedicated to your success.",
		}, nil

	case KindServices:
		return &ServicesBlock{
			ID:    id,
			Title: "Our Services",
			Items: []ServiceItem{
				{Name: "Service 1", Description: "Description of your first service", Price: "₹999"},
				{Name: "Service 2", Description: "Description of your second service", Price: "₹1,499"},
			},
		}, nil

	case KindProducts:
		return &ProductsBlock{
			ID:    id,
			Title: "Our Products",
			Products: []Product{{
				ID:          NewProductID(now, 1),
				Name:        "Sample Product",
				Price:       decimal.RequireFromString("29.99"),
				Description: "This is a sample product to get you started. Edit or delete this product and add your own.",
				Image:       ProductPlaceholderImage,
				Badges:      []string{"New"},
				Category:    "Sample",
				InStock:     true,
				CreatedAt:   now,
				UpdatedAt:   now,
			}},
			DisplayMode: DisplayGrid,
			ShowPrices:  true,
		}, nil

	case KindGallery:
		return &GalleryBlock{
			ID:    id,
			Title: "Gallery",
			Images: []string{
				"/placeholder.svg?height=300&width=400&text=Image+1",
				"/placeholder.svg?height=300&width=400&text=Image+2",
				"/placeholder.svg?height=300&width=400&text=Image+3",
			},
		}, nil

	case KindTestimonials:
		return &TestimonialsBlock{
			ID:    id,
			Title: "What Our Customers Say",
			Items: []Testimonial{
				{Name: "John Doe", Quote: "Excellent service and professional team. Highly recommended!"},
				{Name: "Jane Smith", Quote: "Outstanding quality and attention to detail. Very satisfied!"},
			},
		}, nil

	case KindContact:
		return &ContactBlock{
			ID:      id,
			Title:   "Get In Touch",
			Email:   PlaceholderEmail,
			Phone:   PlaceholderPhone,
			Address: PlaceholderAddress,
		}, nil
	}

	return nil, NewValidationError("type", fmt.Sprintf("unknown block type %q", kind))
}
