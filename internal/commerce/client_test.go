// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package commerce

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestQueryPostSendsBodyHeadersAndToken(t *testing.T) {
	var got *http.Request
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		b, _ := io.ReadAll(r.Body)
		body = string(b)
		_, _ = w.Write([]byte(`{"data":{"generateCustomerToken":{"token":"tok-1"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL + "/graphql", Headers: map[string]string{"Store": "default"}})
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), "mutation x", map[string]any{"email": "a@b.c"}, WithToken("secret"))
	require.NoError(t, err)
	assert.Equal(t, "tok-1", resp.Get("generateCustomerToken.token").String())
	assert.Empty(t, resp.Errors)

	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, "/graphql", got.URL.Path)
	assert.Equal(t, "application/json", got.Header.Get("Content-Type"))
	assert.Equal(t, "default", got.Header.Get("Store"))
	assert.Equal(t, "Bearer secret", got.Header.Get("Authorization"))
	assert.Equal(t, "mutation x", gjson.Get(body, "query").String())
	assert.Equal(t, "a@b.c", gjson.Get(body, "variables.email").String())
}

func TestQueryGetUsesQueryString(t *testing.T) {
	var got *http.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		_, _ = w.Write([]byte(`{"data":{"cart":{"id":"C1"}}}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), "query { cart }", map[string]any{"cartId": "C1"}, WithGET(), WithToken(""))
	require.NoError(t, err)
	assert.Equal(t, "C1", resp.Get("cart.id").String())

	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "query { cart }", got.URL.Query().Get("query"))
	assert.JSONEq(t, `{"cartId":"C1"}`, got.URL.Query().Get("variables"))
	assert.Empty(t, got.Header.Get("Authorization"))
}

func TestQueryReturnsGraphQLErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"message":"bad login","extensions":{"category":"graphql-authentication"}}],"data":null}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	resp, err := c.Query(context.Background(), "mutation", nil)
	require.NoError(t, err)
	require.Len(t, resp.Errors, 1)
	assert.True(t, resp.Errors.HasCategory(CategoryAuthentication))
	assert.False(t, resp.Errors.HasCategory(CategoryNoSuchEntity))
	assert.Equal(t, "", resp.Data)
	assert.False(t, resp.Get("anything").Exists())
	assert.EqualError(t, resp.Errors.Err(), "commerce: graphql errors: bad login")
}

func TestQueryNonGraphQLStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c, err := NewClient(Config{Endpoint: srv.URL})
	require.NoError(t, err)

	_, err = c.Query(context.Background(), "query", nil)
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusBadGateway, statusErr.StatusCode)
}

func TestQueryTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	c, err := NewClient(Config{Endpoint: endpoint})
	require.NoError(t, err)
	_, err = c.Query(context.Background(), "query", nil)
	assert.ErrorContains(t, err, "commerce: request failed")
}

func TestNewClientValidatesEndpoint(t *testing.T) {
	_, err := NewClient(Config{})
	assert.Error(t, err)
	_, err = NewClient(Config{Endpoint: "/graphql"})
	assert.Error(t, err)
}

func TestErrorsEmpty(t *testing.T) {
	var e Errors
	assert.NoError(t, e.Err())
	assert.False(t, e.HasCategory(CategoryAuthentication))
}
