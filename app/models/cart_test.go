package models_test

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/developlogy/sitebuilder/app/models"
)

func product(id, price string, inStock bool) models.Product {
	return models.Product{ID: id, Name: "Product " + id, Price: decimal.RequireFromString(price), InStock: inStock}
}

func TestCart_AddMergesLines(t *testing.T) {
	cart := models.NewCart("c1", "s1", fixedNow)
	p := product("p1", "10.50", true)

	require.NoError(t, cart.Add(p, 1, fixedNow))
	require.NoError(t, cart.Add(p, 2, fixedNow))

	require.Len(t, cart.Items, 1)
	assert.Equal(t, 3, cart.Items[0].Quantity)
	assert.Equal(t, "31.5", cart.Total.String())
	assert.Equal(t, 3, cart.Count())
}

func TestCart_PriceIsFrozenAtAddTime(t *testing.T) {
	cart := models.NewCart("c1", "s1", fixedNow)
	p := product("p1", "20.00", true)
	require.NoError(t, cart.Add(p, 1, fixedNow))

	p.Price = decimal.RequireFromString("99.00")
	require.NoError(t, cart.Add(p, 1, fixedNow))

	assert.True(t, cart.Items[0].Price.Equal(decimal.RequireFromString("20.00")))
	assert.Equal(t, "40", cart.Total.String())
}

func TestCart_RejectsBadInput(t *testing.T) {
	cart := models.NewCart("c1", "s1", fixedNow)
	var ve *models.ValidationError

	err := cart.Add(product("p1", "1", true), 0, fixedNow)
	require.True(t, errors.As(err, &ve))

	err = cart.Add(product("p2", "1", false), 1, fixedNow)
	require.True(t, errors.As(err, &ve))
	assert.True(t, cart.Empty())
}

func TestCart_UpdateQuantity(t *testing.T) {
	cart := models.NewCart("c1", "s1", fixedNow)
	require.NoError(t, cart.Add(product("p1", "5", true), 1, fixedNow))

	require.NoError(t, cart.UpdateQuantity("p1", 4, fixedNow))
	assert.Equal(t, "20", cart.Total.String())

	require.NoError(t, cart.UpdateQuantity("p1", -1, fixedNow))
	assert.True(t, cart.Empty())
	assert.True(t, cart.Total.IsZero())

	assert.ErrorIs(t, cart.UpdateQuantity("missing", 1, fixedNow), models.ErrNotFound)
}

func TestCart_TotalAlwaysEqualsSumOfLines(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	catalog := []models.Product{
		product("a", "0.10", true),
		product("b", "19.99", true),
		product("c", "3.33", true),
		product("d", "1000", true),
	}
	cart := models.NewCart("c1", "s1", fixedNow)

	for i := 0; i < 500; i++ {
		p := catalog[rng.Intn(len(catalog))]
		switch rng.Intn(3) {
		case 0:
			_ = cart.Add(p, rng.Intn(5)+1, fixedNow)
		case 1:
			_ = cart.UpdateQuantity(p.ID, rng.Intn(6)-1, fixedNow)
		case 2:
			_ = cart.Remove(p.ID, fixedNow)
		}

		sum := decimal.Zero
		for _, item := range cart.Items {
			sum = sum.Add(item.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		}
		require.True(t, sum.Equal(cart.Total), "step %d: total %s, sum %s", i, cart.Total, sum)
	}
}

func TestCart_HeroAboutProductsScenario(t *testing.T) {
	site := &models.Site{ID: "s1"}
	for _, kind := range []models.BlockKind{models.KindHero, models.KindAbout, models.KindProducts} {
		b, err := models.DefaultBlock(kind, models.NewBlockID(fixedNow), fixedNow)
		require.NoError(t, err)
		site.Blocks = append(site.Blocks, b)
	}

	products := site.Products()
	require.Len(t, products, 1)
	p := products[0]
	require.True(t, p.InStock)

	cart := models.NewCart("c1", site.ID, fixedNow)
	require.NoError(t, cart.Add(p, 2, fixedNow))
	assert.Equal(t, "59.98", cart.Total.StringFixed(2))

	require.NoError(t, cart.UpdateQuantity(p.ID, 0, fixedNow))
	assert.Empty(t, cart.Items)
	assert.True(t, cart.Total.IsZero())
}

func TestCart_CloneIsIndependent(t *testing.T) {
	cart := models.NewCart("c1", "s1", fixedNow)
	require.NoError(t, cart.Add(product("p1", "1", true), 1, fixedNow))

	clone := cart.Clone()
	clone.Clear(fixedNow)

	assert.Len(t, cart.Items, 1)
}
