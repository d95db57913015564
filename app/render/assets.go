package render

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/developlogy/sitebuilder/app/models"
)

var safeColor = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6})$`)

// Stylesheet returns styles.css for the theme. The color and font scale are
// exposed as --primary-color and --font-scale; every font size is scaled by
// --font-scale.
func Stylesheet(theme models.Theme) string {
	color := theme.Color
	if !safeColor.MatchString(color) {
		color = models.DefaultTheme.Color
	}
	scale := theme.FontScale
	if scale <= 0 {
		scale = models.DefaultTheme.FontScale
	}

	var b strings.Builder
	fmt.Fprintf(&b, ":root {\n  --primary-color: %s;\n  --font-scale: %s;\n}\n", color, strconv.FormatFloat(scale, 'f', -1, 64))
	b.WriteString(baseStylesheet)
	return b.String()
}

const baseStylesheet = `
* {
  margin: 0;
  padding: 0;
  box-sizing: border-box;
}

body {
  font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
  line-height: 1.6;
  color: #333;
  font-size: calc(1rem * var(--font-scale));
}

img {
  max-width: 100%;
  border-radius: 12px;
}

.container {
  max-width: 1200px;
  margin: 0 auto;
  padding: 0 20px;
}

/* Header */
.site-header {
  background: #fff;
  box-shadow: 0 2px 10px rgba(0,0,0,0.1);
  position: sticky;
  top: 0;
  z-index: 100;
}

.header-content {
  display: flex;
  justify-content: space-between;
  align-items: center;
  padding: 1rem 0;
}

.site-title {
  color: var(--primary-color);
  font-size: calc(1.5rem * var(--font-scale));
  font-weight: bold;
}

.site-nav {
  display: flex;
  gap: 2rem;
}

.site-nav a {
  text-decoration: none;
  color: #666;
  font-weight: 500;
  transition: color 0.3s;
}

.site-nav a:hover {
  color: var(--primary-color);
}

/* Sections */
section {
  padding: 4rem 0;
}

.section-title {
  font-size: calc(2rem * var(--font-scale));
  margin-bottom: 2rem;
  text-align: center;
  color: #333;
}

/* Hero */
.hero-section {
  background: #fafafa;
  border-top: 4px solid var(--primary-color);
  text-align: center;
  padding: 6rem 0;
}

.hero-title {
  font-size: calc(3rem * var(--font-scale));
  font-weight: bold;
  margin-bottom: 1rem;
  color: #333;
}

.hero-subtitle {
  font-size: calc(1.25rem * var(--font-scale));
  margin-bottom: 2rem;
  color: #666;
  max-width: 600px;
  margin-left: auto;
  margin-right: auto;
}

.hero-image {
  margin-top: 3rem;
}

.cta-button {
  background: var(--primary-color);
  color: white;
  border: none;
  padding: 1rem 2rem;
  font-size: calc(1.1rem * var(--font-scale));
  border-radius: 8px;
  cursor: pointer;
  transition: transform 0.2s, box-shadow 0.2s;
}

.cta-button:hover {
  transform: translateY(-2px);
  box-shadow: 0 4px 12px rgba(0,0,0,0.15);
}

/* About */
.about-content {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
  gap: 3rem;
  align-items: center;
}

.about-text p {
  font-size: calc(1.1rem * var(--font-scale));
  color: #555;
}

/* Services */
.services-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
  gap: 2rem;
  margin-top: 2rem;
}

.service-item {
  background: #f8f9fa;
  padding: 2rem;
  border-radius: 12px;
  text-align: center;
  transition: transform 0.2s;
}

.service-item:hover {
  transform: translateY(-4px);
}

.service-item h3 {
  color: var(--primary-color);
  margin-bottom: 1rem;
  font-size: calc(1.25rem * var(--font-scale));
}

.price {
  display: inline-block;
  background: var(--primary-color);
  color: white;
  padding: 0.5rem 1rem;
  border-radius: 20px;
  font-weight: bold;
  font-size: calc(1rem * var(--font-scale));
  margin-top: 1rem;
}

/* Products */
.products-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(260px, 1fr));
  gap: 2rem;
}

.products-list {
  display: flex;
  flex-direction: column;
  gap: 1.5rem;
}

.product-card {
  background: #fff;
  border: 1px solid #eee;
  border-radius: 12px;
  padding: 1.5rem;
}

.product-card h3 {
  font-size: calc(1.25rem * var(--font-scale));
  margin: 0.75rem 0 0.5rem;
}

.product-card.out-of-stock {
  opacity: 0.6;
}

.badge {
  display: inline-block;
  background: var(--primary-color);
  color: white;
  border-radius: 999px;
  padding: 0.1rem 0.6rem;
  font-size: calc(0.75rem * var(--font-scale));
  margin-right: 0.25rem;
}

.stock,
.empty {
  color: #999;
  font-size: calc(0.9rem * var(--font-scale));
}

/* Gallery */
.gallery-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(250px, 1fr));
  gap: 1rem;
}

/* Testimonials */
.testimonials-grid {
  display: grid;
  grid-template-columns: repeat(auto-fit, minmax(300px, 1fr));
  gap: 2rem;
}

.testimonial {
  background: #f8f9fa;
  padding: 2rem;
  border-radius: 12px;
  font-size: calc(1.05rem * var(--font-scale));
}

.testimonial footer {
  margin-top: 1rem;
  font-size: calc(0.95rem * var(--font-scale));
}

.avatar {
  display: inline-flex;
  align-items: center;
  justify-content: center;
  width: 2rem;
  height: 2rem;
  border-radius: 50%;
  background: var(--primary-color);
  color: white;
  font-size: calc(0.9rem * var(--font-scale));
}

/* Contact */
.contact-info {
  max-width: 600px;
  margin: 0 auto;
  text-align: center;
}

.contact-info p {
  margin-bottom: 1rem;
  font-size: calc(1.1rem * var(--font-scale));
}

.contact-form {
  max-width: 600px;
  margin: 2rem auto 0;
  display: flex;
  flex-direction: column;
  gap: 1rem;
}

.contact-form input,
.contact-form textarea {
  padding: 0.75rem;
  border: 1px solid #ddd;
  border-radius: 8px;
  font-size: calc(1rem * var(--font-scale));
}

.contact-map iframe {
  width: 100%;
  height: 320px;
  border: 0;
  margin-top: 2rem;
}

/* Placeholders */
.block-unknown,
.block-error {
  background: #fff7ed;
  color: #9a3412;
  text-align: center;
  font-size: calc(0.9rem * var(--font-scale));
}

/* Footer */
.site-footer {
  background: #333;
  color: white;
  text-align: center;
  padding: 2rem 0;
}

.footer-content p {
  margin-bottom: 0.5rem;
}

.powered-by {
  font-size: calc(0.9rem * var(--font-scale));
  opacity: 0.8;
}

.powered-by a {
  color: var(--primary-color);
  text-decoration: none;
}

/* Responsive */
@media (max-width: 768px) {
  .header-content {
    flex-direction: column;
    gap: 1rem;
  }

  .site-nav {
    gap: 1rem;
  }

  .hero-title {
    font-size: calc(2rem * var(--font-scale));
  }

  .services-grid {
    grid-template-columns: 1fr;
  }
}
`

// Script returns script.js: pageview and CTA tracking, smooth scrolling and
// the contact form handler.
func Script() string { return staticScript }

const staticScript = `// Generated by Developlogy Website Builder

function trackEvent(eventType, eventData) {
  console.log('Event tracked:', eventType, eventData);
}

function handleCTAClick(el) {
  var text = el && el.textContent ? el.textContent.trim() : String(el);
  trackEvent('cta_click', { text: text });
  alert('Thank you for your interest! Please contact us for more information.');
}

document.addEventListener('DOMContentLoaded', function () {
  trackEvent('pageview', { path: window.location.pathname });
});

document.querySelectorAll('a[href^="#"]').forEach(function (anchor) {
  anchor.addEventListener('click', function (e) {
    e.preventDefault();
    var target = document.querySelector(this.getAttribute('href'));
    if (target) {
      target.scrollIntoView({ behavior: 'smooth', block: 'start' });
    }
  });
});

document.querySelectorAll('form').forEach(function (form) {
  form.addEventListener('submit', function (e) {
    e.preventDefault();
    trackEvent('form_submit', { form: this.id || 'contact' });
    alert('Thank you for your message! We will get back to you soon.');
  });
});
`

// Readme returns README.md for the export bundle. The generated date is the
// site's last update, so the bundle does not change between exports.
func Readme(site *models.Site) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s - Static Website\n\n", site.Name)
	b.WriteString(readmeBody)
	fmt.Fprintf(&b, "\n---\n\nGenerated on %s\nWebsite: %s\nIndustry: %s\n",
		site.UpdatedAt.UTC().Format("2006-01-02"), site.Name, site.Industry)
	return b.String()
}

const readmeBody = "This website was generated by [Developlogy](https://developlogy.com), an instant website builder.\n" +
	"\n" +
	"## Files Included\n" +
	"\n" +
	"- `index.html` - Main HTML file\n" +
	"- `styles.css` - All CSS styles\n" +
	"- `script.js` - JavaScript for interactivity\n" +
	"- `README.md` - This file\n" +
	"\n" +
	"## Hosting Instructions\n" +
	"\n" +
	"### Option 1: Netlify\n" +
	"1. Drag and drop this entire folder to [netlify.com/drop](https://netlify.com/drop)\n" +
	"2. Your site will be live instantly with a custom URL\n" +
	"\n" +
	"### Option 2: Vercel\n" +
	"1. Upload this folder to a GitHub repository\n" +
	"2. Connect your repository to [vercel.com](https://vercel.com)\n" +
	"3. Deploy with one click\n" +
	"\n" +
	"### Option 3: GitHub Pages\n" +
	"1. Upload files to a GitHub repository\n" +
	"2. Enable GitHub Pages in repository settings\n" +
	"3. Your site will be available at `username.github.io/repository-name`\n" +
	"\n" +
	"### Option 4: Traditional Web Hosting\n" +
	"1. Upload all files to your web hosting provider's public folder\n" +
	"2. Ensure `index.html` is in the root directory\n" +
	"\n" +
	"## Customization\n" +
	"\n" +
	"- Edit `index.html` to modify content\n" +
	"- Update `styles.css` to change styling\n" +
	"- Modify `script.js` to add functionality\n" +
	"\n" +
	"## Support\n" +
	"\n" +
	"For questions about this export or to create more websites, visit [Developlogy](https://developlogy.com).\n"
