package models

import (
	"encoding/json"
	"fmt"
)

// PatchBlock merges the top-level fields of patch into a copy of b and
// returns the result. The original block is never modified. A patch may not
// change the block's type or id.
func PatchBlock(b Block, patch json.RawMessage) (Block, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(patch, &fields); err != nil {
		return nil, NewValidationError("patch", "must be a JSON object")
	}

	if raw, ok := fields["type"]; ok {
		var kind string
		if err := json.Unmarshal(raw, &kind); err != nil || BlockKind(kind) != b.Kind() {
			return nil, NewValidationError("type", "block type cannot be changed")
		}
	}
	if raw, ok := fields["id"]; ok {
		var id string
		if err := json.Unmarshal(raw, &id); err != nil || id != b.BlockID() {
			return nil, NewValidationError("id", "block id cannot be changed")
		}
	}

	current, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("encode block %s: %w", b.BlockID(), err)
	}
	var merged map[string]json.RawMessage
	if err := json.Unmarshal(current, &merged); err != nil {
		return nil, fmt.Errorf("decode block %s: %w", b.BlockID(), err)
	}
	for k, v := range fields {
		merged[k] = v
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("encode patched block %s: %w", b.BlockID(), err)
	}
	out, err := UnmarshalBlock(data)
	if err != nil {
		return nil, NewValidationError("patch", err.Error())
	}
	if err := ValidateBlock(out); err != nil {
		return nil, err
	}
	return out, nil
}

// ValidateBlock checks the invariants of a single block.
func ValidateBlock(b Block) error {
	if b.BlockID() == "" {
		return NewValidationError("id", "is required")
	}
	return b.Accept(blockValidator{})
}

type blockValidator struct{}

func (blockValidator) VisitHero(*HeroBlock) error                 { return nil }
func (blockValidator) VisitAbout(*AboutBlock) error               { return nil }
func (blockValidator) VisitGallery(*GalleryBlock) error           { return nil }
func (blockValidator) VisitTestimonials(*TestimonialsBlock) error { return nil }
func (blockValidator) VisitContact(*ContactBlock) error           { return nil }
func (blockValidator) VisitUnknown(*UnknownBlock) error           { return nil }

func (blockValidator) VisitServices(b *ServicesBlock) error {
	for i, item := range b.Items {
		if item.Name == "" {
			return NewValidationError(fmt.Sprintf("items[%d].name", i), "is required")
		}
	}
	return nil
}

func (blockValidator) VisitProducts(b *ProductsBlock) error {
	if b.DisplayMode != DisplayGrid && b.DisplayMode != DisplayList {
		return NewValidationError("displayMode", "must be grid or list")
	}
	seen := make(map[string]bool, len(b.Products))
	for i, p := range b.Products {
		if p.ID == "" {
			return NewValidationError(fmt.Sprintf("products[%d].id", i), "is required")
		}
		if seen[p.ID] {
			return NewValidationError(fmt.Sprintf("products[%d].id", i), "is duplicated")
		}
		seen[p.ID] = true
		if p.Price.IsNegative() {
			return NewValidationError(fmt.Sprintf("products[%d].price", i), "must not be negative")
		}
	}
	return nil
}
