package render

import (
	"html/template"
	"strings"

	"github.com/shopspring/decimal"
)

func baseFuncs() template.FuncMap {
	return template.FuncMap{
		"price": func(d decimal.Decimal) string { return "$" + d.StringFixed(2) },
		"lower": strings.ToLower,
		"first": func(s string) string {
			for _, r := range s {
				return strings.ToUpper(string(r))
			}
			return ""
		},
	}
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <meta name="description" content="{{.Description}}">
    <meta name="keywords" content="{{.Keywords}}">
    <meta property="og:title" content="{{.Title}}">
    <meta property="og:description" content="{{.Description}}">
    <meta property="og:type" content="website">
    <meta name="twitter:card" content="summary_large_image">
    <meta name="twitter:title" content="{{.Title}}">
    <meta name="twitter:description" content="{{.Description}}">
{{- if .LinkAssets}}
    <link rel="stylesheet" href="styles.css">
{{- else}}
    <style>{{.Stylesheet}}</style>
{{- end}}
    <script type="application/ld+json">{{.JSONLD}}</script>
</head>
<body{{if .Editing}} data-mode="editing" data-site-id="{{.Site.ID}}"{{end}}>
    <header class="site-header">
        <div class="container">
            <div class="header-content">
                <h1 class="site-title">{{.Site.Name}}</h1>
                <nav class="site-nav">
{{- range .Navigation}}
                    <a href="{{.Href}}">{{.Label}}</a>
{{- end}}
                </nav>
            </div>
        </div>
    </header>

    <main>
{{.Sections}}
    </main>

    <footer class="site-footer">
        <div class="container">
            <div class="footer-content">
                <p>&copy; {{.Year}} {{.Site.Name}}. All rights reserved.</p>
{{- with .Site.BusinessInfo.Email}}
                <p>Contact: {{.}}</p>
{{- end}}
                <p class="powered-by">Built with <a href="https://developlogy.com">Developlogy</a></p>
            </div>
        </div>
    </footer>
{{- if .LinkAssets}}
    <script src="script.js"></script>
{{- else}}
    <script>{{.Script}}</script>
{{- end}}
</body>
</html>
`

var blockTemplates = map[string]string{
	"block-hero": `<section id="home" class="hero-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="hero"{{end}}>
{{- with .Block}}
    <div class="container">
        <div class="hero-content">
            <h1 class="hero-title"{{if $.Editing}} data-field="heading" contenteditable="true"{{end}}>{{.Heading}}</h1>
            <p class="hero-subtitle"{{if $.Editing}} data-field="subheading" contenteditable="true"{{end}}>{{.Subheading}}</p>
{{- if .CTALabel}}
            <button class="cta-button" onclick="handleCTAClick(this)"{{if $.Editing}} data-field="ctaLabel" contenteditable="true"{{end}}>{{.CTALabel}}</button>
{{- end}}
        </div>
{{- if .BackgroundImage}}
        <div class="hero-image">
            <img src="{{.BackgroundImage}}" alt="{{.Heading}}"{{if $.Editing}} data-field="backgroundImage"{{end}}>
        </div>
{{- end}}
    </div>
{{- end}}
</section>`,

	"block-about": `<section id="about" class="about-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="about"{{end}}>
{{- with .Block}}
    <div class="container">
        <div class="about-content">
            <div class="about-text">
                <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
                <p{{if $.Editing}} data-field="body" contenteditable="true"{{end}}>{{.Body}}</p>
            </div>
{{- if .Image}}
            <div class="about-image">
                <img src="{{.Image}}" alt="{{.Title}}"{{if $.Editing}} data-field="image"{{end}}>
            </div>
{{- end}}
        </div>
    </div>
{{- end}}
</section>`,

	"block-services": `<section id="services" class="services-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="services"{{end}}>
{{- with .Block}}
    <div class="container">
        <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
        <div class="services-grid">
{{- range $i, $item := .Items}}
            <div class="service-item"{{if $.Editing}} data-item-index="{{$i}}"{{end}}>
                <h3{{if $.Editing}} data-field="items.{{$i}}.name" contenteditable="true"{{end}}>{{$item.Name}}</h3>
                <p{{if $.Editing}} data-field="items.{{$i}}.description" contenteditable="true"{{end}}>{{$item.Description}}</p>
{{- if $item.Price}}
                <span class="price"{{if $.Editing}} data-field="items.{{$i}}.price" contenteditable="true"{{end}}>{{$item.Price}}</span>
{{- end}}
            </div>
{{- end}}
        </div>
    </div>
{{- end}}
</section>`,

	"block-gallery": `<section class="gallery-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="gallery"{{end}}>
{{- with .Block}}
    <div class="container">
        <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
        <div class="gallery-grid">
{{- range $i, $src := .Images}}
            <img src="{{$src}}" alt="{{$.Block.Title}} {{$i}}" loading="lazy"{{if $.Editing}} data-field="images.{{$i}}"{{end}}>
{{- end}}
        </div>
    </div>
{{- end}}
</section>`,

	"block-testimonials": `<section class="testimonials-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="testimonials"{{end}}>
{{- with .Block}}
    <div class="container">
        <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
        <div class="testimonials-grid">
{{- range $i, $t := .Items}}
            <blockquote class="testimonial">
                <p{{if $.Editing}} data-field="items.{{$i}}.quote" contenteditable="true"{{end}}>&ldquo;{{$t.Quote}}&rdquo;</p>
                <footer><span class="avatar">{{first $t.Name}}</span> <cite{{if $.Editing}} data-field="items.{{$i}}.name" contenteditable="true"{{end}}>{{$t.Name}}</cite></footer>
            </blockquote>
{{- end}}
        </div>
    </div>
{{- end}}
</section>`,

	"block-contact": `<section id="contact" class="contact-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="contact"{{end}}>
{{- with .Block}}
    <div class="container">
        <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
        <div class="contact-content">
            <div class="contact-info">
{{- if .Email}}
                <p><strong>Email:</strong> <a href="mailto:{{.Email}}"{{if $.Editing}} data-field="email"{{end}}>{{.Email}}</a></p>
{{- end}}
{{- if .Phone}}
                <p><strong>Phone:</strong> <a href="tel:{{.Phone}}"{{if $.Editing}} data-field="phone"{{end}}>{{.Phone}}</a></p>
{{- end}}
{{- if .Address}}
                <p><strong>Address:</strong> <span{{if $.Editing}} data-field="address" contenteditable="true"{{end}}>{{.Address}}</span></p>
{{- end}}
            </div>
            <form class="contact-form">
                <input type="text" name="name" placeholder="Your Name" required>
                <input type="email" name="email" placeholder="Your Email" required>
                <textarea name="message" placeholder="Your Message" rows="5" required></textarea>
                <button type="submit" class="cta-button">Send Message</button>
            </form>
        </div>
{{- if .MapEmbedURL}}
        <div class="contact-map">
            <iframe src="{{.MapEmbedURL}}" title="Map" loading="lazy"></iframe>
        </div>
{{- end}}
    </div>
{{- end}}
</section>`,

	"block-products": `<section id="products" class="products-section"{{if .Editing}} data-block-id="{{.ID}}" data-block-type="products"{{end}}>
{{- with .Block}}
    <div class="container">
        <h2 class="section-title"{{if $.Editing}} data-field="title" contenteditable="true"{{end}}>{{.Title}}</h2>
{{- if .Products}}
        <div class="products-{{.DisplayMode}}">
{{- range .Products}}
            <article class="product-card{{if not .InStock}} out-of-stock{{end}}" data-product-id="{{.ID}}">
{{- if .Image}}
                <img src="{{.Image}}" alt="{{.Name}}" loading="lazy">
{{- end}}
{{- range .Badges}}
                <span class="badge">{{.}}</span>
{{- end}}
                <h3>{{.Name}}</h3>
                <p>{{.Description}}</p>
{{- if $.Block.ShowPrices}}
                <span class="price">{{price .Price}}</span>
{{- end}}
{{- if .InStock}}
                <button class="cta-button add-to-cart" data-product-id="{{.ID}}">Add to Cart</button>
{{- else}}
                <span class="stock">Out of Stock</span>
{{- end}}
            </article>
{{- end}}
        </div>
{{- else}}
        <p class="empty">No products available</p>
{{- end}}
    </div>
{{- end}}
</section>`,

	"block-unknown": `<section class="block-unknown"{{if .Editing}} data-block-id="{{.ID}}"{{end}} data-block-type="{{.Kind}}">
    <div class="container"><p>Unknown block: {{.Kind}}</p></div>
</section>`,

	"block-error": `<section class="block-error"{{if .Editing}} data-block-id="{{.ID}}"{{end}} data-block-type="{{.Kind}}">
    <div class="container"><p>This {{.Kind}} block could not be displayed.</p></div>
</section>`,
}
