package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/render"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/ctx"
)

// BuilderController drives the editor sessions of the block builder. Every
// request goes through EditorRegistry.Open, so ownership is checked each
// time and a session is started on first use.
type BuilderController struct {
	editors  *services.EditorRegistry
	renderer *render.Renderer
}

func NewBuilderController(editors *services.EditorRegistry, renderer *render.Renderer) *BuilderController {
	if renderer == nil {
		renderer = render.Default()
	}
	return &BuilderController{editors: editors, renderer: renderer}
}

type editorView struct {
	Site       *models.Site `json:"site"`
	SelectedID string       `json:"selectedBlockId,omitempty"`
	Dirty      bool         `json:"dirty"`
}

func view(ed *services.Editor) editorView {
	return editorView{Site: ed.Snapshot(), SelectedID: ed.Selected(), Dirty: ed.Dirty()}
}

func (bc *BuilderController) editor(c *ctx.Context) (*services.Editor, bool) {
	ed, err := bc.editors.Open(c.Context(), c.UserID(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return ed, true
}

// apply runs op on the session and answers with the new editor state.
func (bc *BuilderController) apply(c *ctx.Context, op func(ed *services.Editor) error) {
	ed, ok := bc.editor(c)
	if !ok {
		return
	}
	if err := op(ed); err != nil {
		respondError(c, err)
		return
	}
	c.Success(view(ed))
}

func (bc *BuilderController) Open(c *ctx.Context) {
	bc.apply(c, func(*services.Editor) error { return nil })
}

func (bc *BuilderController) Show(c *ctx.Context) {
	bc.apply(c, func(*services.Editor) error { return nil })
}

type addBlockRequest struct {
	Type models.BlockKind `json:"type" validate:"required"`
}

func (bc *BuilderController) AddBlock(c *ctx.Context) {
	var in addBlockRequest
	if !c.BindJSON(&in) {
		return
	}
	ed, ok := bc.editor(c)
	if !ok {
		return
	}
	id, err := ed.AddBlock(in.Type)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Created(map[string]any{"blockId": id, "site": ed.Snapshot()})
}

// UpdateBlock merges the JSON object in the body into the block.
func (bc *BuilderController) UpdateBlock(c *ctx.Context) {
	body, err := c.Body()
	if err != nil || !json.Valid(body) {
		c.Error(http.StatusBadRequest, "invalid JSON")
		return
	}
	bc.apply(c, func(ed *services.Editor) error {
		return ed.UpdateBlock(c.Param("blockId"), body)
	})
}

func (bc *BuilderController) DeleteBlock(c *ctx.Context) {
	bc.apply(c, func(ed *services.Editor) error {
		return ed.DeleteBlock(c.Param("blockId"))
	})
}

func (bc *BuilderController) SelectBlock(c *ctx.Context) {
	bc.apply(c, func(ed *services.Editor) error {
		return ed.SelectBlock(c.Param("blockId"))
	})
}

type reorderRequest struct {
	From *int `json:"from" validate:"required"`
	To   *int `json:"to"   validate:"required"`
}

func (bc *BuilderController) Reorder(c *ctx.Context) {
	var in reorderRequest
	if !c.BindJSON(&in) {
		return
	}
	bc.apply(c, func(ed *services.Editor) error {
		return ed.ReorderBlocks(*in.From, *in.To)
	})
}

func (bc *BuilderController) UpdateTheme(c *ctx.Context) {
	var in models.ThemePatch
	if !c.BindJSON(&in) {
		return
	}
	bc.apply(c, func(ed *services.Editor) error { return ed.UpdateTheme(in) })
}

func (bc *BuilderController) UpdateSEO(c *ctx.Context) {
	var in models.SEOPatch
	if !c.BindJSON(&in) {
		return
	}
	bc.apply(c, func(ed *services.Editor) error { return ed.UpdateSEO(in) })
}

func (bc *BuilderController) AddProduct(c *ctx.Context) {
	ed, ok := bc.editor(c)
	if !ok {
		return
	}
	product, err := ed.AddProduct(c.Param("blockId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.Created(product)
}

func (bc *BuilderController) UpdateProduct(c *ctx.Context) {
	var in services.ProductPatch
	if !c.BindJSON(&in) {
		return
	}
	bc.apply(c, func(ed *services.Editor) error {
		return ed.UpdateProduct(c.Param("blockId"), c.Param("productId"), in)
	})
}

func (bc *BuilderController) RemoveProduct(c *ctx.Context) {
	bc.apply(c, func(ed *services.Editor) error {
		return ed.RemoveProduct(c.Param("blockId"), c.Param("productId"))
	})
}

func (bc *BuilderController) Save(c *ctx.Context) {
	ed, ok := bc.editor(c)
	if !ok {
		return
	}
	version, err := ed.Save(c.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.Success(map[string]any{"version": version})
}

// Render returns the canvas HTML. ?mode=static renders the published page
// from the unsaved document instead.
func (bc *BuilderController) Render(c *ctx.Context) {
	mode := render.Mode(c.DefaultQuery("mode", string(render.ModeEditing)))
	if !mode.Valid() {
		c.ValidationError(map[string]string{"mode": "must be editing or static"})
		return
	}
	ed, ok := bc.editor(c)
	if !ok {
		return
	}
	html, err := bc.renderer.Page(ed.Snapshot(), mode)
	if err != nil {
		respondError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}
