package controllers

import (
	"net/http"

	"github.com/graphql-go/graphql"

	"github.com/developlogy/sitebuilder/app/models"
	"github.com/developlogy/sitebuilder/app/services"
	"github.com/developlogy/sitebuilder/pkg/auth"
	gql "github.com/developlogy/sitebuilder/pkg/graphql"
)

var themeType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Theme",
	Fields: graphql.Fields{
		"color":     &graphql.Field{Type: graphql.String},
		"fontScale": &graphql.Field{Type: graphql.Float},
	},
})

var seoType = graphql.NewObject(graphql.ObjectConfig{
	Name: "SEO",
	Fields: graphql.Fields{
		"title":       &graphql.Field{Type: graphql.String},
		"description": &graphql.Field{Type: graphql.String},
		"keywords":    &graphql.Field{Type: graphql.NewList(graphql.String)},
	},
})

var siteType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Site",
	Fields: graphql.Fields{
		"id":               &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"ownerId":          &graphql.Field{Type: graphql.String},
		"name":             &graphql.Field{Type: graphql.String},
		"industry":         &graphql.Field{Type: graphql.String},
		"logoUrl":          &graphql.Field{Type: graphql.String},
		"theme":            &graphql.Field{Type: themeType},
		"seo":              &graphql.Field{Type: seoType},
		"blocks":           &graphql.Field{Type: gql.JSON},
		"ecommerceEnabled": &graphql.Field{Type: graphql.Boolean},
		"version":          &graphql.Field{Type: graphql.Int},
		"createdAt":        &graphql.Field{Type: graphql.String},
		"updatedAt":        &graphql.Field{Type: graphql.String},
	},
})

var templateType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Template",
	Fields: graphql.Fields{
		"id":       &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
		"name":     &graphql.Field{Type: graphql.String},
		"industry": &graphql.Field{Type: graphql.String},
		"theme":    &graphql.Field{Type: themeType},
		"blocks":   &graphql.Field{Type: gql.JSON},
	},
})

var industryType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Industry",
	Fields: graphql.Fields{
		"name":  &graphql.Field{Type: graphql.String},
		"theme": &graphql.Field{Type: themeType},
	},
})

var statsType = graphql.NewObject(graphql.ObjectConfig{
	Name: "AnalyticsStats",
	Fields: graphql.Fields{
		"siteId":         &graphql.Field{Type: graphql.String},
		"totalPageviews": &graphql.Field{Type: graphql.Int},
		"totalClicks":    &graphql.Field{Type: graphql.Int},
		"conversionRate": &graphql.Field{Type: graphql.Float},
		"topPages":       &graphql.Field{Type: gql.JSON},
		"topCTAs":        &graphql.Field{Type: gql.JSON},
		"dailyStats":     &graphql.Field{Type: gql.JSON},
		"lastUpdated":    &graphql.Field{Type: graphql.String},
	},
})

// NewGraphQLHandler builds the read-only schema over the site and analytics
// services. Queries run as the signed-in user.
func NewGraphQLHandler(sites *services.SiteService, analytics *services.AnalyticsService) (http.HandlerFunc, error) {
	idArg := graphql.FieldConfigArgument{"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}}

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"sites": &graphql.Field{
				Type: graphql.NewList(siteType),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					list, err := sites.List(p.Context, auth.UserID(p.Context))
					if err != nil {
						return nil, err
					}
					return gql.Plain(list)
				},
			},
			"site": &graphql.Field{
				Type: siteType,
				Args: idArg,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					site, err := sites.Get(p.Context, auth.UserID(p.Context), id)
					if err != nil {
						return nil, err
					}
					return gql.Plain(site)
				},
			},
			"templates": &graphql.Field{
				Type: graphql.NewList(templateType),
				Args: graphql.FieldConfigArgument{"industry": &graphql.ArgumentConfig{Type: graphql.String}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					industry, _ := p.Args["industry"].(string)
					return gql.Plain(services.Templates(models.Industry(industry)))
				},
			},
			"industries": &graphql.Field{
				Type: graphql.NewList(industryType),
				Resolve: func(graphql.ResolveParams) (any, error) {
					out := make([]industryView, 0, len(models.Industries))
					for _, ind := range models.Industries {
						out = append(out, industryView{Name: ind, Theme: ind.Theme()})
					}
					return gql.Plain(out)
				},
			},
			"stats": &graphql.Field{
				Type: statsType,
				Args: graphql.FieldConfigArgument{"siteId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)}},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["siteId"].(string)
					stats, err := analytics.Stats(p.Context, auth.UserID(p.Context), id)
					if err != nil {
						return nil, err
					}
					return gql.Plain(stats)
				},
			},
		},
	})

	schema, err := gql.NewSchema(query)
	if err != nil {
		return nil, err
	}
	return gql.Handler(schema), nil
}
