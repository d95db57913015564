package graphql_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/graphql-go/graphql"

	gql "github.com/developlogy/sitebuilder/pkg/graphql"
)

type block struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

func newSchema(t *testing.T) graphql.Schema {
	t.Helper()
	item := graphql.NewObject(graphql.ObjectConfig{
		Name: "Item",
		Fields: graphql.Fields{
			"type": &graphql.Field{Type: graphql.String},
			"data": &graphql.Field{Type: gql.JSON},
		},
	})
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"item": &graphql.Field{
				Type: item,
				Resolve: func(graphql.ResolveParams) (any, error) {
					return gql.Plain(block{Type: "hero", Data: map[string]any{"title": "Hi"}})
				},
			},
		},
	})
	schema, err := gql.NewSchema(query)
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	return schema
}

func TestHandlerResolvesJSONNames(t *testing.T) {
	h := gql.Handler(newSchema(t))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{"query":"{ item { type data } }"}`))
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body)
	}
	var out struct {
		Data struct {
			Item struct {
				Type string         `json:"type"`
				Data map[string]any `json:"data"`
			} `json:"item"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Data.Item.Type != "hero" || out.Data.Item.Data["title"] != "Hi" {
		t.Fatalf("unexpected result %+v", out.Data.Item)
	}
}

func TestHandlerRejectsMissingQuery(t *testing.T) {
	h := gql.Handler(newSchema(t))

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodPost, "/graphql", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPlainUsesJSONEncoding(t *testing.T) {
	v, err := gql.Plain(block{Type: "about"})
	if err != nil {
		t.Fatal(err)
	}
	m, ok := v.(map[string]any)
	if !ok || m["type"] != "about" {
		t.Fatalf("Plain = %#v", v)
	}
}
