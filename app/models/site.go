package models

import (
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Industry is one of the fixed business categories offered at onboarding.
type Industry string

const (
	IndustryRestaurants Industry = "Restaurants & Cafés"
	IndustryClinics     Industry = "Clinics & Hospitals"
	IndustryRealEstate  Industry = "Real Estate Agencies"
	IndustryEcommerce   Industry = "Small E-commerce Stores"
	IndustrySalons      Industry = "Salons & Spas"
	IndustryFreelancers Industry = "Freelancers & Agencies"
	IndustryEducation   Industry = "Educational Institutes"
	IndustryBoutiques   Industry = "Boutiques & Clothing Shops"
	IndustryGyms        Industry = "Gyms & Fitness Centers"
	IndustryTravel      Industry = "Travel Agencies"
	IndustryEvents      Industry = "Event Planners"
	IndustryLaw         Industry = "Law Firms"
	IndustryAccounting  Industry = "Accounting & Tax Consultants"
	IndustryRetail      Industry = "Local Retail Shops"
	IndustryRepair      Industry = "Repair & Maintenance Services"
	IndustryHomeDecor   Industry = "Home Decor & Furniture Shops"
	IndustryPhotography Industry = "Photography Studios"
	IndustryCreators    Industry = "Digital Creators & Influencers"
	IndustryNonprofits  Industry = "NGOs & Nonprofits"
	IndustryPetsAndVets Industry = "Pet Shops & Veterinary Clinics"
)

// Industries lists every industry in onboarding order.
var Industries = []Industry{
	IndustryRestaurants, IndustryClinics, IndustryRealEstate, IndustryEcommerce,
	IndustrySalons, IndustryFreelancers, IndustryEducation, IndustryBoutiques,
	IndustryGyms, IndustryTravel, IndustryEvents, IndustryLaw,
	IndustryAccounting, IndustryRetail, IndustryRepair, IndustryHomeDecor,
	IndustryPhotography, IndustryCreators, IndustryNonprofits, IndustryPetsAndVets,
}

var industryThemes = map[Industry]Theme{
	IndustryRestaurants: {Color: "#D97706", FontScale: 1.1},
	IndustryClinics:     {Color: "#059669", FontScale: 1.0},
	IndustryRealEstate:  {Color: "#1D4ED8", FontScale: 1.0},
	IndustryEcommerce:   {Color: "#7C3AED", FontScale: 1.0},
	IndustrySalons:      {Color: "#EC4899", FontScale: 1.1},
	IndustryFreelancers: {Color: "#0F172A", FontScale: 1.0},
	IndustryEducation:   {Color: "#1E40AF", FontScale: 1.0},
	IndustryBoutiques:   {Color: "#BE185D", FontScale: 1.1},
	IndustryGyms:        {Color: "#DC2626", FontScale: 1.1},
	IndustryTravel:      {Color: "#0891B2", FontScale: 1.0},
	IndustryEvents:      {Color: "#A855F7", FontScale: 1.1},
	IndustryLaw:         {Color: "#374151", FontScale: 1.0},
	IndustryAccounting:  {Color: "#065F46", FontScale: 1.0},
	IndustryRetail:      {Color: "#EA580C", FontScale: 1.0},
	IndustryRepair:      {Color: "#0F766E", FontScale: 1.0},
	IndustryHomeDecor:   {Color: "#92400E", FontScale: 1.0},
	IndustryPhotography: {Color: "#1F2937", FontScale: 1.1},
	IndustryCreators:    {Color: "#C026D3", FontScale: 1.1},
	IndustryNonprofits:  {Color: "#16A34A", FontScale: 1.0},
	IndustryPetsAndVets: {Color: "#0369A1", FontScale: 1.0},
}

// DefaultTheme is used for industries without an entry in the theme table.
var DefaultTheme = Theme{Color: "#1D4ED8", FontScale: 1.0}

// Valid reports whether i is one of the known industries.
func (i Industry) Valid() bool {
	_, ok := industryThemes[i]
	return ok
}

// Theme returns the default theme for the industry.
func (i Industry) Theme() Theme {
	if t, ok := industryThemes[i]; ok {
		return t
	}
	return DefaultTheme
}

// Theme is the visual configuration of a site.
type Theme struct {
	Color     string  `json:"color"`
	FontScale float64 `json:"fontScale"`
}

var hexColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Validate checks the color format and the font scale range.
func (t Theme) Validate() error {
	if !hexColor.MatchString(t.Color) {
		return NewValidationError("theme.color", "must be a hex color such as #1D4ED8")
	}
	if t.FontScale < 0.5 || t.FontScale > 2.0 {
		return NewValidationError("theme.fontScale", "must be between 0.5 and 2.0")
	}
	return nil
}

// ThemePatch carries a partial theme update; nil fields are left alone.
type ThemePatch struct {
	Color     *string  `json:"color"`
	FontScale *float64 `json:"fontScale"`
}

// Apply returns t with the non-nil fields of p merged in.
func (p ThemePatch) Apply(t Theme) Theme {
	if p.Color != nil {
		t.Color = *p.Color
	}
	if p.FontScale != nil {
		t.FontScale = *p.FontScale
	}
	return t
}

type SEO struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Keywords    []string `json:"keywords"`
}

// SEOPatch carries a partial SEO update; nil fields are left alone.
type SEOPatch struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Keywords    *[]string `json:"keywords"`
}

// Apply returns s with the non-nil fields of p merged in.
func (p SEOPatch) Apply(s SEO) SEO {
	if p.Title != nil {
		s.Title = *p.Title
	}
	if p.Description != nil {
		s.Description = *p.Description
	}
	if p.Keywords != nil {
		s.Keywords = append([]string(nil), (*p.Keywords)...)
	}
	return s
}

type Socials struct {
	Facebook  string `json:"facebook,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

type BusinessInfo struct {
	Address string   `json:"address,omitempty"`
	Phone   string   `json:"phone,omitempty"`
	Email   string   `json:"email,omitempty"`
	Socials *Socials `json:"socials,omitempty"`
}

// Validate checks the optional email and social links.
func (b BusinessInfo) Validate() error {
	if b.Email != "" && !ValidEmail(b.Email) {
		return NewValidationError("businessInfo.email", "must be a valid email address")
	}
	if b.Socials == nil {
		return nil
	}
	links := []struct{ field, value string }{
		{"facebook", b.Socials.Facebook},
		{"instagram", b.Socials.Instagram},
		{"twitter", b.Socials.Twitter},
		{"linkedin", b.Socials.LinkedIn},
	}
	for _, l := range links {
		if l.value != "" && !validHTTPURL(l.value) {
			return NewValidationError("businessInfo.socials."+l.field, "must be an http(s) URL")
		}
	}
	return nil
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// ValidEmail performs the loose address check used at sign-in and onboarding.
func ValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail trims and lower-cases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

// Site is the aggregate root of the builder: one website owned by one user.
type Site struct {
	ID               string       `json:"id"`
	OwnerID          string       `json:"ownerId"`
	Name             string       `json:"name"`
	Industry         Industry     `json:"industry"`
	LogoURL          string       `json:"logoUrl,omitempty"`
	BusinessInfo     BusinessInfo `json:"businessInfo"`
	Theme            Theme        `json:"theme"`
	SEO              SEO          `json:"seo"`
	Blocks           Blocks       `json:"blocks"`
	EcommerceEnabled bool         `json:"ecommerceEnabled"`
	Version          int64        `json:"version"`
	CreatedAt        time.Time    `json:"createdAt"`
	UpdatedAt        time.Time    `json:"updatedAt"`
}

// Clone returns a deep copy of s.
func (s *Site) Clone() *Site {
	c := *s
	c.Blocks = s.Blocks.Clone()
	c.SEO.Keywords = append([]string(nil), s.SEO.Keywords...)
	if s.BusinessInfo.Socials != nil {
		socials := *s.BusinessInfo.Socials
		c.BusinessInfo.Socials = &socials
	}
	return &c
}

// Validate checks the document-level invariants: required name, known
// industry, theme ranges, unique non-empty block ids and per-block rules.
func (s *Site) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return NewValidationError("name", "is required")
	}
	if !s.Industry.Valid() {
		return NewValidationError("industry", "is not a supported industry")
	}
	if err := s.Theme.Validate(); err != nil {
		return err
	}
	if err := s.BusinessInfo.Validate(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Blocks))
	for _, b := range s.Blocks {
		if seen[b.BlockID()] {
			return NewValidationError("blocks", "duplicate block id "+b.BlockID())
		}
		seen[b.BlockID()] = true
		if err := ValidateBlock(b); err != nil {
			return err
		}
	}
	return nil
}

// Products collects the products of every products block, in block order.
func (s *Site) Products() []Product {
	var out []Product
	for _, b := range s.Blocks {
		if pb, ok := b.(*ProductsBlock); ok {
			for _, p := range pb.Products {
				out = append(out, p.Clone())
			}
		}
	}
	return out
}

// FindProduct looks a product up across all products blocks.
func (s *Site) FindProduct(id string) (Product, bool) {
	for _, p := range s.Products() {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Hero returns the first hero block, if any.
func (s *Site) Hero() *HeroBlock {
	for _, b := range s.Blocks {
		if h, ok := b.(*HeroBlock); ok {
			return h
		}
	}
	return nil
}
