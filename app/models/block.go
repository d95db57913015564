package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// BlockKind is the discriminant stored in every block's "type" field.
type BlockKind string

const (
	KindHero         BlockKind = "hero"
	KindAbout        BlockKind = "about"
	KindServices     BlockKind = "services"
	KindGallery      BlockKind = "gallery"
	KindTestimonials BlockKind = "testimonials"
	KindContact      BlockKind = "contact"
	KindProducts     BlockKind = "products"
)

// BlockKinds lists every known kind in palette order.
var BlockKinds = []BlockKind{
	KindHero, KindAbout, KindServices, KindProducts,
	KindGallery, KindTestimonials, KindContact,
}

// Valid reports whether k names a known block variant.
func (k BlockKind) Valid() bool {
	for _, known := range BlockKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Block is one content section of a site. The set of implementations is
// closed: the unexported marker keeps other packages from adding variants,
// and BlockVisitor has one method per variant so a new variant breaks every
// visitor until it is handled.
type Block interface {
	BlockID() string
	Kind() BlockKind
	Accept(v BlockVisitor) error
	Clone() Block
	isBlock()
}

// BlockVisitor dispatches on the concrete block variant.
type BlockVisitor interface {
	VisitHero(*HeroBlock) error
	VisitAbout(*AboutBlock) error
	VisitServices(*ServicesBlock) error
	VisitGallery(*GalleryBlock) error
	VisitTestimonials(*TestimonialsBlock) error
	VisitContact(*ContactBlock) error
	VisitProducts(*ProductsBlock) error
	VisitUnknown(*UnknownBlock) error
}

// ─── Variants ────────────────────────────────────────────────────────────────

type HeroBlock struct {
	ID              string `json:"id"`
	Heading         string `json:"heading"`
	Subheading      string `json:"subheading"`
	CTALabel        string `json:"ctaLabel"`
	BackgroundImage string `json:"backgroundImage,omitempty"`
}

type AboutBlock struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Image string `json:"image,omitempty"`
}

type ServiceItem struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price,omitempty"`
}

type ServicesBlock struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []ServiceItem `json:"items"`
}

type GalleryBlock struct {
	ID     string   `json:"id"`
	Title  string   `json:"title"`
	Images []string `json:"images"`
}

type Testimonial struct {
	Name  string `json:"name"`
	Quote string `json:"quote"`
}

type TestimonialsBlock struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []Testimonial `json:"items"`
}

type ContactBlock struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	MapEmbedURL string `json:"mapEmbedUrl,omitempty"`
}

// DisplayMode controls how a products block lays out its products.
type DisplayMode string

const (
	DisplayGrid DisplayMode = "grid"
	DisplayList DisplayMode = "list"
)

type ProductsBlock struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Products    []Product   `json:"products"`
	DisplayMode DisplayMode `json:"displayMode"`
	ShowPrices  bool        `json:"showPrices"`
}

// UnknownBlock preserves a block whose type this build does not know, so it
// survives a load/save round trip and renders as a placeholder.
type UnknownBlock struct {
	ID   string
	Type string
	Raw  json.RawMessage
}

func (b *HeroBlock) BlockID() string         { return b.ID }
func (b *AboutBlock) BlockID() string        { return b.ID }
func (b *ServicesBlock) BlockID() string     { return b.ID }
func (b *GalleryBlock) BlockID() string      { return b.ID }
func (b *TestimonialsBlock) BlockID() string { return b.ID }
func (b *ContactBlock) BlockID() string      { return b.ID }
func (b *ProductsBlock) BlockID() string     { return b.ID }
func (b *UnknownBlock) BlockID() string      { return b.ID }

func (b *HeroBlock) Kind() BlockKind         { return KindHero }
func (b *AboutBlock) Kind() BlockKind        { return KindAbout }
func (b *ServicesBlock) Kind() BlockKind     { return KindServices }
func (b *GalleryBlock) Kind() BlockKind      { return KindGallery }
func (b *TestimonialsBlock) Kind() BlockKind { return KindTestimonials }
func (b *ContactBlock) Kind() BlockKind      { return KindContact }
func (b *ProductsBlock) Kind() BlockKind     { return KindProducts }
func (b *UnknownBlock) Kind() BlockKind      { return BlockKind(b.Type) }

func (b *HeroBlock) Accept(v BlockVisitor) error         { return v.VisitHero(b) }
func (b *AboutBlock) Accept(v BlockVisitor) error        { return v.VisitAbout(b) }
func (b *ServicesBlock) Accept(v BlockVisitor) error     { return v.VisitServices(b) }
func (b *GalleryBlock) Accept(v BlockVisitor) error      { return v.VisitGallery(b) }
func (b *TestimonialsBlock) Accept(v BlockVisitor) error { return v.VisitTestimonials(b) }
func (b *ContactBlock) Accept(v BlockVisitor) error      { return v.VisitContact(b) }
func (b *ProductsBlock) Accept(v BlockVisitor) error     { return v.VisitProducts(b) }
func (b *UnknownBlock) Accept(v BlockVisitor) error      { return v.VisitUnknown(b) }

func (*HeroBlock) isBlock()         {}
func (*AboutBlock) isBlock()        {}
func (*ServicesBlock) isBlock()     {}
func (*GalleryBlock) isBlock()      {}
func (*TestimonialsBlock) isBlock() {}
func (*ContactBlock) isBlock()      {}
func (*ProductsBlock) isBlock()     {}
func (*UnknownBlock) isBlock()      {}

func (b *HeroBlock) Clone() Block  { c := *b; return &c }
func (b *AboutBlock) Clone() Block { c := *b; return &c }
func (b *ContactBlock) Clone() Block {
	c := *b
	return &c
}

func (b *ServicesBlock) Clone() Block {
	c := *b
	c.Items = append([]ServiceItem(nil), b.Items...)
	return &c
}

func (b *GalleryBlock) Clone() Block {
	c := *b
	c.Images = append([]string(nil), b.Images...)
	return &c
}

func (b *TestimonialsBlock) Clone() Block {
	c := *b
	c.Items = append([]Testimonial(nil), b.Items...)
	return &c
}

func (b *ProductsBlock) Clone() Block {
	c := *b
	c.Products = make([]Product, len(b.Products))
	for i, p := range b.Products {
		c.Products[i] = p.Clone()
	}
	return &c
}

func (b *UnknownBlock) Clone() Block {
	c := *b
	c.Raw = append(json.RawMessage(nil), b.Raw...)
	return &c
}

// ─── JSON ────────────────────────────────────────────────────────────────────

func (b HeroBlock) MarshalJSON() ([]byte, error) {
	type plain HeroBlock
	return marshalTagged(KindHero, plain(b))
}

func (b AboutBlock) MarshalJSON() ([]byte, error) {
	type plain AboutBlock
	return marshalTagged(KindAbout, plain(b))
}

func (b ServicesBlock) MarshalJSON() ([]byte, error) {
	type plain ServicesBlock
	if b.Items == nil {
		b.Items = []ServiceItem{}
	}
	return marshalTagged(KindServices, plain(b))
}

func (b GalleryBlock) MarshalJSON() ([]byte, error) {
	type plain GalleryBlock
	if b.Images == nil {
		b.Images = []string{}
	}
	return marshalTagged(KindGallery, plain(b))
}

func (b TestimonialsBlock) MarshalJSON() ([]byte, error) {
	type plain TestimonialsBlock
	if b.Items == nil {
		b.Items = []Testimonial{}
	}
	return marshalTagged(KindTestimonials, plain(b))
}

func (b ContactBlock) MarshalJSON() ([]byte, error) {
	type plain ContactBlock
	return marshalTagged(KindContact, plain(b))
}

func (b ProductsBlock) MarshalJSON() ([]byte, error) {
	type plain ProductsBlock
	if b.Products == nil {
		b.Products = []Product{}
	}
	return marshalTagged(KindProducts, plain(b))
}

func (b UnknownBlock) MarshalJSON() ([]byte, error) {
	if len(b.Raw) == 0 {
		return json.Marshal(map[string]string{"id": b.ID, "type": b.Type})
	}
	return b.Raw, nil
}

// marshalTagged encodes v and prepends the "type" discriminant. Every
// variant has a non-omitempty id, so the encoded object is never empty.
func marshalTagged(kind BlockKind, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	buf.Grow(len(body) + 16)
	buf.WriteString(`{"type":"`)
	buf.WriteString(string(kind))
	buf.WriteString(`",`)
	buf.Write(body[1:])
	return buf.Bytes(), nil
}

// UnmarshalBlock decodes one block, dispatching on its "type" field.
// Unknown types decode into *UnknownBlock rather than failing.
func UnmarshalBlock(data []byte) (Block, error) {
	var head struct {
		ID   string `json:"id"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}

	var b Block
	switch BlockKind(head.Type) {
	case KindHero:
		b = &HeroBlock{}
	case KindAbout:
		b = &AboutBlock{}
	case KindServices:
		b = &ServicesBlock{}
	case KindGallery:
		b = &GalleryBlock{}
	case KindTestimonials:
		b = &TestimonialsBlock{}
	case KindContact:
		b = &ContactBlock{}
	case KindProducts:
		b = &ProductsBlock{}
	default:
		return &UnknownBlock{ID: head.ID, Type: head.Type, Raw: append(json.RawMessage(nil), data...)}, nil
	}

	if err := json.Unmarshal(data, b); err != nil {
		return nil, fmt.Errorf("block %s (%s): %w", head.ID, head.Type, err)
	}
	return b, nil
}

// Blocks is the ordered block sequence of a site.
type Blocks []Block

func (bs Blocks) MarshalJSON() ([]byte, error) {
	raw := make([]json.RawMessage, len(bs))
	for i, b := range bs {
		data, err := json.Marshal(b)
		if err != nil {
			return nil, err
		}
		raw[i] = data
	}
	return json.Marshal(raw)
}

func (bs *Blocks) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Blocks, 0, len(raw))
	for _, r := range raw {
		b, err := UnmarshalBlock(r)
		if err != nil {
			return err
		}
		out = append(out, b)
	}
	*bs = out
	return nil
}

// Clone deep-copies the sequence.
func (bs Blocks) Clone() Blocks {
	out := make(Blocks, len(bs))
	for i, b := range bs {
		out[i] = b.Clone()
	}
	return out
}

// Index returns the position of the block with id, or -1.
func (bs Blocks) Index(id string) int {
	for i, b := range bs {
		if b.BlockID() == id {
			return i
		}
	}
	return -1
}

// NewBlockID returns an id of the form block_<unixMillis>_<random>.
func NewBlockID(now time.Time) string {
	return fmt.Sprintf("block_%d_%s", now.UnixMilli(), shortRandom())
}

// NewProductID returns an id of the form product_<unixMillis>_<n>.
func NewProductID(now time.Time, n int) string {
	return fmt.Sprintf("product_%d_%d", now.UnixMilli(), n)
}

func shortRandom() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:9]
}
