package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/developlogy/sitebuilder/app/models"
)

// Open Graph card size.
const (
	OGWidth  = 1200
	OGHeight = 630
)

var (
	ogBackground = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	ogBody       = color.RGBA{0x37, 0x41, 0x51, 0xFF} // #374151
	ogMuted      = color.RGBA{0x9C, 0xA3, 0xAF, 0xFF} // #9CA3AF
	ogLogo       = color.RGBA{0xD9, 0x77, 0x06, 0xFF} // #D97706
	ogWhite      = color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
)

// Text scales for the 7x13 bitmap face. 5x gives the 72px-class title.
const (
	titleScale = 5
	badgeScale = 2
	bodyScale  = 3
	footScale  = 2
	ogMargin   = 80
)

// OGDescription picks the card's tagline: the SEO description, else the
// hero subheading, else a generic line for the industry.
func OGDescription(site *models.Site) string {
	if d := strings.TrimSpace(site.SEO.Description); d != "" {
		return d
	}
	if h := site.Hero(); h != nil && strings.TrimSpace(h.Subheading) != "" {
		return h.Subheading
	}
	return "Professional " + strings.ToLower(string(site.Industry)) + " services"
}

// OGImage draws the 1200x630 social card for a site as PNG.
func OGImage(site *models.Site) ([]byte, error) {
	theme := parseHex(site.Theme.Color, parseHex(models.DefaultTheme.Color, ogBody))
	tint := blend(theme, ogBackground, 0.08)

	img := image.NewRGBA(image.Rect(0, 0, OGWidth, OGHeight))
	draw.Draw(img, img.Bounds(), image.NewUniform(tint), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(0, 0, OGWidth, 12), image.NewUniform(theme), image.Point{}, draw.Src)

	y := 150
	name := fitText(site.Name, titleScale, OGWidth-2*ogMargin)
	drawCentered(img, name, theme, titleScale, y)
	y += 13*titleScale + 40

	if site.Industry != "" {
		label := fitText(string(site.Industry), badgeScale, OGWidth-2*ogMargin-48)
		w := textWidth(label) * badgeScale
		badge := image.Rect((OGWidth-w)/2-24, y-12, (OGWidth+w)/2+24, y+13*badgeScale+12)
		draw.Draw(img, badge, image.NewUniform(theme), image.Point{}, draw.Src)
		drawCentered(img, label, ogWhite, badgeScale, y)
		y += 13*badgeScale + 60
	}

	for _, line := range wrapText(OGDescription(site), bodyScale, OGWidth-2*ogMargin, 3) {
		drawCentered(img, line, ogBody, bodyScale, y)
		y += 13*bodyScale + 12
	}

	footer := "Built with Developlogy"
	fw := textWidth(footer)*footScale + 32 + 12
	fx := (OGWidth - fw) / 2
	fy := OGHeight - 80
	draw.Draw(img, image.Rect(fx, fy-3, fx+32, fy+29), image.NewUniform(ogLogo), image.Point{}, draw.Src)
	drawScaled(img, "D", ogWhite, footScale, fx+9, fy)
	drawScaled(img, footer, ogMuted, footScale, fx+44, fy)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("render: og png: %w", err)
	}
	return buf.Bytes(), nil
}

var face = basicfont.Face7x13

func textWidth(s string) int {
	return font.MeasureString(face, s).Ceil()
}

// drawScaled renders s with the bitmap face at 1x and scales it onto dst
// with its top-left corner at (x, y).
func drawScaled(dst draw.Image, s string, c color.Color, scale, x, y int) {
	w := textWidth(s)
	if w == 0 {
		return
	}
	h := face.Metrics().Height.Ceil()
	src := image.NewRGBA(image.Rect(0, 0, w, h))
	d := font.Drawer{
		Dst:  src,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.P(0, face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(s)

	target := image.Rect(x, y, x+w*scale, y+h*scale)
	draw.NearestNeighbor.Scale(dst, target, src, src.Bounds(), draw.Over, nil)
}

func drawCentered(dst draw.Image, s string, c color.Color, scale, y int) {
	x := (OGWidth - textWidth(s)*scale) / 2
	drawScaled(dst, s, c, scale, x, y)
}

// fitText truncates s with "..." so it fits in maxWidth pixels at scale.
func fitText(s string, scale, maxWidth int) string {
	if textWidth(s)*scale <= maxWidth {
		return s
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := strings.TrimSpace(string(runes)) + "..."
		if textWidth(candidate)*scale <= maxWidth {
			return candidate
		}
	}
	return ""
}

// wrapText greedily breaks s into at most maxLines lines of maxWidth pixels.
func wrapText(s string, scale, maxWidth, maxLines int) []string {
	var lines []string
	var cur string
	for _, word := range strings.Fields(s) {
		next := word
		if cur != "" {
			next = cur + " " + word
		}
		if textWidth(next)*scale <= maxWidth {
			cur = next
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
		}
		cur = fitText(word, scale, maxWidth)
		if len(lines) == maxLines {
			break
		}
	}
	if cur != "" && len(lines) < maxLines {
		lines = append(lines, cur)
	}
	if len(lines) > maxLines {
		lines = lines[:maxLines]
	}
	return lines
}

func parseHex(s string, fallback color.RGBA) color.RGBA {
	if !safeColor.MatchString(s) {
		return fallback
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return fallback
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xFF}
}

// blend mixes a over b with the given weight of a.
func blend(a, b color.RGBA, weight float64) color.RGBA {
	mix := func(x, y uint8) uint8 { return uint8(float64(x)*weight + float64(y)*(1-weight)) }
	return color.RGBA{mix(a.R, b.R), mix(a.G, b.G), mix(a.B, b.B), 0xFF}
}
