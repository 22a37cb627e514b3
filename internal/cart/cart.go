// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package cart owns the cart id of a browser session and the cached cart contents.
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/traylinx/storefront-bridge/internal/commerce"
	"golang.org/x/sync/singleflight"
)

// ErrCartNotFound is returned when the backend no longer knows the cart id.
var ErrCartNotFound = errors.New("cart: no such cart")

const cartQuery = `query cart($cartId: String!) {
  cart(cart_id: $cartId) {
    id
    total_quantity
    items {
      uid
      quantity
      product {
        sku
        name
      }
      prices {
        price {
          value
          currency
        }
      }
    }
    prices {
      grand_total {
        value
        currency
      }
    }
  }
}`

// Money is an amount in a currency.
type Money struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Item is one cart line.
type Item struct {
	UID      string  `json:"uid"`
	SKU      string  `json:"sku"`
	Name     string  `json:"name"`
	Quantity float64 `json:"quantity"`
	Price    Money   `json:"price"`
}

// Cart is the cart contents as last fetched from the backend.
type Cart struct {
	ID            string  `json:"id"`
	TotalQuantity float64 `json:"total_quantity"`
	Items         []Item  `json:"items"`
	GrandTotal    Money   `json:"grand_total"`
}

// GraphQL is the commerce transport used by the Fetcher.
type GraphQL interface {
	Query(ctx context.Context, query string, variables map[string]any, opts ...commerce.QueryOption) (*commerce.Response, error)
}

// Fetcher loads carts from the backend. It is shared by all sessions; concurrent
// fetches of the same cart with the same token share one request.
type Fetcher struct {
	client GraphQL
	group  singleflight.Group
}

// NewFetcher creates a cart fetcher.
func NewFetcher(client GraphQL) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch loads cart cartID on behalf of the customer token (empty for guests).
func (f *Fetcher) Fetch(ctx context.Context, cartID, token string) (*Cart, error) {
	v, err, _ := f.group.Do(cartID+"\x00"+token, func() (any, error) {
		return f.fetch(ctx, cartID, token)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Cart), nil
}

func (f *Fetcher) fetch(ctx context.Context, cartID, token string) (*Cart, error) {
	resp, err := f.client.Query(ctx, cartQuery, map[string]any{"cartId": cartID}, commerce.WithToken(token))
	if err != nil {
		return nil, fmt.Errorf("cart: fetch %s: %w", cartID, err)
	}
	if resp.Errors.HasCategory(commerce.CategoryNoSuchEntity) {
		return nil, ErrCartNotFound
	}
	if err = resp.Errors.Err(); err != nil {
		return nil, fmt.Errorf("cart: fetch %s: %w", cartID, err)
	}
	c := resp.Get("cart")
	if !c.IsObject() {
		return nil, ErrCartNotFound
	}
	return parseCart(c), nil
}

func parseCart(c gjson.Result) *Cart {
	out := &Cart{
		ID:            c.Get("id").String(),
		TotalQuantity: c.Get("total_quantity").Float(),
		GrandTotal: Money{
			Value:    c.Get("prices.grand_total.value").Float(),
			Currency: c.Get("prices.grand_total.currency").String(),
		},
		Items: []Item{},
	}
	c.Get("items").ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		out.Items = append(out.Items, Item{
			UID:      item.Get("uid").String(),
			SKU:      item.Get("product.sku").String(),
			Name:     item.Get("product.name").String(),
			Quantity: item.Get("quantity").Float(),
			Price: Money{
				Value:    item.Get("prices.price.value").Float(),
				Currency: item.Get("prices.price.currency").String(),
			},
		})
		return true
	})
	return out
}
