package services

import (
	"strings"
	"time"

	"github.com/developlogy/sitebuilder/app/models"
)

// industryContent is the starter copy for one industry.
type industryContent struct {
	heroHeading    string
	heroSubheading string
	ctaLabel       string
	heroImage      string
	aboutBody      string
	aboutImage     string
	servicesTitle  string
	services       []models.ServiceItem
	testimonials   []models.Testimonial
}

var restaurantContent = industryContent{
	heroHeading:    "Welcome to {name}",
	heroSubheading: "Experience authentic flavours and warm hospitality in every bite",
	ctaLabel:       "View Menu",
	heroImage:      "/warm-restaurant-interior.png",
	aboutBody: "{name} has been serving delicious, authentic cuisine with a commitment to quality ingredients and exceptional service. " +
		"Our passionate chefs create memorable dining experiences that bring people together.",
	aboutImage:    "/chef-cooking.png",
	servicesTitle: "Our Specialties",
	services: []models.ServiceItem{
		{Name: "Signature Dishes", Description: "Chef's special creations made with premium ingredients", Price: "₹299 onwards"},
		{Name: "Fresh Beverages", Description: "Handcrafted drinks and traditional favourites", Price: "₹99 onwards"},
		{Name: "Catering Services", Description: "Perfect for events and special occasions", Price: "₹199 per person"},
	},
	testimonials: []models.Testimonial{
		{Name: "Priya Sharma", Quote: "The food quality is exceptional and the service is always friendly. Highly recommended!"},
		{Name: "Rajesh Kumar", Quote: "Best dining experience in the city. The ambiance and taste are perfect."},
	},
}

var clinicContent = industryContent{
	heroHeading:    "{name} - Your Health Partner",
	heroSubheading: "Comprehensive healthcare services with compassionate care",
	ctaLabel:       "Book Appointment",
	heroImage:      "/modern-medical-clinic-reception.png",
	aboutBody: "{name} provides comprehensive healthcare services with a team of experienced medical professionals. " +
		"We are committed to delivering quality care with the latest medical technology and a patient-first approach.",
	aboutImage:    "/doctor-patient-consultation.png",
	servicesTitle: "Our Services",
	services: []models.ServiceItem{
		{Name: "General Consultation", Description: "Comprehensive health check-ups and consultations", Price: "₹500"},
		{Name: "Diagnostic Services", Description: "Advanced diagnostic tests and imaging", Price: "₹200 onwards"},
		{Name: "Specialist Care", Description: "Expert care from certified specialists", Price: "₹800 onwards"},
	},
	testimonials: []models.Testimonial{
		{Name: "Anita Patel", Quote: "Excellent medical care with very professional staff. I trust them completely with my family's health."},
		{Name: "Suresh Gupta", Quote: "Quick appointments, thorough examinations, and caring doctors. Highly satisfied with the service."},
	},
}

// contentFor returns the starter copy of an industry. Industries without
// their own copy use the restaurant copy.
func contentFor(industry models.Industry) industryContent {
	if industry == models.IndustryClinics {
		return clinicContent
	}
	return restaurantContent
}

// GenerateContent builds the starter blocks of a new site: hero, about,
// services, testimonials and contact, in that order. Missing contact details
// fall back to the placeholder values.
func GenerateContent(name string, industry models.Industry, info models.BusinessInfo, now time.Time) models.Blocks {
	c := contentFor(industry)
	fill := func(s string) string { return strings.ReplaceAll(s, "{name}", name) }

	contact := &models.ContactBlock{
		ID:      models.NewBlockID(now),
		Title:   "Get In Touch",
		Email:   orDefault(info.Email, models.PlaceholderEmail),
		Phone:   orDefault(info.Phone, models.PlaceholderPhone),
		Address: orDefault(info.Address, models.PlaceholderAddress),
	}

	return models.Blocks{
		&models.HeroBlock{
			ID:              models.NewBlockID(now),
			Heading:         fill(c.heroHeading),
			Subheading:      c.heroSubheading,
			CTALabel:        c.ctaLabel,
			BackgroundImage: c.heroImage,
		},
		&models.AboutBlock{
			ID:    models.NewBlockID(now),
			Title: "About Us",
			Body:  fill(c.aboutBody),
			Image: c.aboutImage,
		},
		&models.ServicesBlock{
			ID:    models.NewBlockID(now),
			Title: c.servicesTitle,
			Items: append([]models.ServiceItem(nil), c.services...),
		},
		&models.TestimonialsBlock{
			ID:    models.NewBlockID(now),
			Title: "What Our Customers Say",
			Items: append([]models.Testimonial(nil), c.testimonials...),
		},
		contact,
	}
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
