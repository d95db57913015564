// Package migrations holds the schema migrations. Each file registers its
// migrations from init(); cmd/sitebuilder imports the package for its side
// effects.
package migrations
