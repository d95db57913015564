package render

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/developlogy/sitebuilder/app/models"
)

// DefaultSEO is the metadata a site starts with after onboarding.
func DefaultSEO(businessName string, industry models.Industry) models.SEO {
	ind := string(industry)
	return models.SEO{
		Title: fmt.Sprintf("%s - Professional %s Services", businessName, ind),
		Description: fmt.Sprintf("Discover %s, your trusted %s provider. Quality services, professional expertise, and customer satisfaction guaranteed.",
			businessName, strings.ToLower(ind)),
		Keywords: []string{
			strings.ToLower(businessName),
			strings.ToLower(ind),
			"professional services",
			"quality",
			"trusted",
			"local business",
		},
	}
}

// SEOReport lists the problems found in a site's metadata.
type SEOReport struct {
	Valid  bool     `json:"isValid"`
	Issues []string `json:"issues"`
}

// SEO length limits, in characters.
const (
	minTitle       = 10
	maxTitle       = 60
	minDescription = 50
	maxDescription = 160
	minKeywords    = 3
	maxKeywords    = 10
)

// ValidateSEO checks title, description and keyword counts against the
// limits search engines display well.
func ValidateSEO(seo models.SEO) SEOReport {
	issues := []string{}
	title := utf8.RuneCountInString(seo.Title)
	desc := utf8.RuneCountInString(seo.Description)

	if title < minTitle {
		issues = append(issues, "Title is too short (minimum 10 characters)")
	}
	if title > maxTitle {
		issues = append(issues, "Title is too long (maximum 60 characters)")
	}
	if desc < minDescription {
		issues = append(issues, "Description is too short (minimum 50 characters)")
	}
	if desc > maxDescription {
		issues = append(issues, "Description is too long (maximum 160 characters)")
	}
	if len(seo.Keywords) < minKeywords {
		issues = append(issues, "Add at least 3 keywords")
	}
	if len(seo.Keywords) > maxKeywords {
		issues = append(issues, "Too many keywords (maximum 10)")
	}
	return SEOReport{Valid: len(issues) == 0, Issues: issues}
}

// StructuredData is the schema.org JSON-LD object embedded in every page.
type StructuredData struct {
	Context       string    `json:"@context"`
	Type          string    `json:"@type"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	URL           string    `json:"url,omitempty"`
	ServesCuisine string    `json:"servesCuisine,omitempty"`
	Publisher     Publisher `json:"publisher"`
}

type Publisher struct {
	Type         string         `json:"@type"`
	Name         string         `json:"name"`
	Address      *PostalAddress `json:"address,omitempty"`
	ContactPoint ContactPoint   `json:"contactPoint"`
	SameAs       []string       `json:"sameAs,omitempty"`
}

type PostalAddress struct {
	Type          string `json:"@type"`
	StreetAddress string `json:"streetAddress"`
}

type ContactPoint struct {
	Type      string `json:"@type"`
	Telephone string `json:"telephone,omitempty"`
	Email     string `json:"email,omitempty"`
}

// BuildStructuredData describes the site as a schema.org WebSite, or as a
// Restaurant, MedicalOrganization or RealEstateAgent when the industry says
// so.
func BuildStructuredData(site *models.Site, url string) StructuredData {
	info := site.BusinessInfo
	sd := StructuredData{
		Context:     "https://schema.org",
		Type:        "WebSite",
		Name:        site.Name,
		Description: site.SEO.Description,
		URL:         url,
		Publisher: Publisher{
			Type: "Organization",
			Name: site.Name,
			ContactPoint: ContactPoint{
				Type:      "ContactPoint",
				Telephone: info.Phone,
				Email:     info.Email,
			},
		},
	}
	if info.Address != "" {
		sd.Publisher.Address = &PostalAddress{Type: "PostalAddress", StreetAddress: info.Address}
	}
	if s := info.Socials; s != nil {
		for _, link := range []string{s.Facebook, s.Twitter, s.Instagram, s.LinkedIn} {
			if link != "" {
				sd.Publisher.SameAs = append(sd.Publisher.SameAs, link)
			}
		}
	}

	ind := string(site.Industry)
	switch {
	case strings.Contains(ind, "Restaurant") || strings.Contains(ind, "Café"):
		sd.Type = "Restaurant"
		sd.ServesCuisine = "Various"
	case strings.Contains(ind, "Clinic") || strings.Contains(ind, "Hospital"):
		sd.Type = "MedicalOrganization"
	case strings.Contains(ind, "Real Estate"):
		sd.Type = "RealEstateAgent"
	}
	return sd
}

// StructuredDataJSON encodes BuildStructuredData. The encoder escapes <, >
// and &, so the result is safe inside a script element.
func StructuredDataJSON(site *models.Site, url string) (string, error) {
	b, err := json.Marshal(BuildStructuredData(site, url))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ─── Sitemap & robots ───────────────────────────────────────────────────────

// FallbackBaseURL is used when no public base URL is configured.
const FallbackBaseURL = "https://yoursite.com"

const sitemapTimeLayout = "2006-01-02T15:04:05.000Z"

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string `xml:"loc"`
	LastMod    string `xml:"lastmod,omitempty"`
	ChangeFreq string `xml:"changefreq"`
	Priority   string `xml:"priority"`
}

// Sitemap lists the base URL and the preview page of every site. The base
// URL's lastmod is the most recent site update.
func Sitemap(sites []*models.Site, baseURL string) ([]byte, error) {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = FallbackBaseURL
	}

	set := urlSet{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	root := sitemapURL{Loc: base, ChangeFreq: "daily", Priority: "1.0"}
	set.URLs = append(set.URLs, root)

	var newest string
	for _, s := range sites {
		mod := s.UpdatedAt.UTC().Format(sitemapTimeLayout)
		if mod > newest {
			newest = mod
		}
		set.URLs = append(set.URLs, sitemapURL{
			Loc:        base + "/preview/" + s.ID,
			LastMod:    mod,
			ChangeFreq: "weekly",
			Priority:   "0.8",
		})
	}
	set.URLs[0].LastMod = newest

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("render: sitemap: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

var disallowed = []string{"/admin/", "/api/", "/builder/", "/dashboard/", "/onboarding/", "/auth/", "/checkout/"}

// Robots returns robots.txt pointing crawlers at the sitemap and away from
// private areas.
func Robots(baseURL string) string {
	base := strings.TrimRight(baseURL, "/")
	if base == "" {
		base = FallbackBaseURL
	}

	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\n\n")
	fmt.Fprintf(&b, "# Sitemaps\nSitemap: %s/sitemap.xml\n\n", base)
	b.WriteString("# Crawl-delay\nCrawl-delay: 1\n\n")
	b.WriteString("# Disallow admin and private areas\n")
	for i, p := range disallowed {
		b.WriteString("Disallow: " + p)
		if i < len(disallowed)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
