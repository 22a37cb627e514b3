// Copyright 2026 The storefront-bridge Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package auth

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/traylinx/storefront-bridge/internal/commerce"
)

// ErrAuthentication is returned when the backend rejects the customer credentials.
var ErrAuthentication = errors.New("The account sign-in was incorrect or your account is disabled temporarily. Please wait and try again later.")

const generateCustomerTokenMutation = `mutation generateCustomerToken($email: String!, $password: String!) {
  generateCustomerToken(email: $email, password: $password) {
    token
  }
}`

const revokeCustomerTokenMutation = `mutation revokeCustomerToken {
  revokeCustomerToken {
    result
  }
}`

const requestPasswordResetEmailMutation = `mutation requestPasswordResetEmail($email: String!) {
  requestPasswordResetEmail(email: $email)
}`

const resetPasswordMutation = `mutation resetPassword($email: String!, $resetPasswordToken: String!, $newPassword: String!) {
  resetPassword(email: $email, resetPasswordToken: $resetPasswordToken, newPassword: $newPassword)
}`

const createCustomerV2Mutation = `mutation createCustomerV2($input: CustomerCreateInput!) {
  createCustomerV2(input: $input) {
    customer {
      firstname
      lastname
      email
      is_subscribed
    }
  }
}`

// GraphQL is the commerce transport used by Accounts.
type GraphQL interface {
	Query(ctx context.Context, query string, variables map[string]any, opts ...commerce.QueryOption) (*commerce.Response, error)
}

// CustomerInput is the registration form.
type CustomerInput struct {
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Email        string `json:"email"`
	Password     string `json:"password"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// Customer is the account created by CreateCustomer.
type Customer struct {
	Firstname    string `json:"firstname"`
	Lastname     string `json:"lastname"`
	Email        string `json:"email"`
	IsSubscribed bool   `json:"is_subscribed"`
}

// Accounts runs the customer account mutations of one session.
type Accounts struct {
	client GraphQL
	store  *Store
	log    log.FieldLogger
}

// NewAccounts binds the account operations to a session store.
func NewAccounts(client GraphQL, store *Store, logger log.FieldLogger) *Accounts {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return &Accounts{client: client, store: store, log: logger}
}

// handleAuthErrors maps GraphQL errors: credential failures become
// ErrAuthentication, everything else is returned as is.
func (a *Accounts) handleAuthErrors(errs commerce.Errors) error {
	if len(errs) == 0 {
		return nil
	}
	if errs.HasCategory(commerce.CategoryAuthentication) {
		a.log.Error(ErrAuthentication.Error())
		return ErrAuthentication
	}
	return errs
}

func (a *Accounts) mutate(ctx context.Context, query string, variables map[string]any, withToken bool) (*commerce.Response, error) {
	var opts []commerce.QueryOption
	if withToken {
		opts = append(opts, commerce.WithToken(a.store.Token()))
	}
	resp, err := a.client.Query(ctx, query, variables, opts...)
	if err != nil {
		return nil, err
	}
	if err = a.handleAuthErrors(resp.Errors); err != nil {
		return nil, err
	}
	return resp, nil
}

// GenerateCustomerToken signs the customer in and stores the issued token.
func (a *Accounts) GenerateCustomerToken(ctx context.Context, email, password string) error {
	resp, err := a.mutate(ctx, generateCustomerTokenMutation, map[string]any{
		"email":    email,
		"password": password,
	}, false)
	if err != nil {
		return err
	}
	token := resp.Get("generateCustomerToken.token").String()
	if token == "" {
		return fmt.Errorf("auth: generateCustomerToken returned no token")
	}
	return a.store.SetToken(ctx, token)
}

// RevokeCustomerToken revokes the current token and signs out locally when the
// backend confirms.
func (a *Accounts) RevokeCustomerToken(ctx context.Context) error {
	resp, err := a.mutate(ctx, revokeCustomerTokenMutation, map[string]any{}, true)
	if err != nil {
		return err
	}
	result := resp.Get("revokeCustomerToken.result").Bool()
	a.log.Debugf("revokeCustomerToken result: %t", result)
	return a.store.Logout(ctx, result)
}

// RequestPasswordResetEmail asks the backend to mail a reset link.
func (a *Accounts) RequestPasswordResetEmail(ctx context.Context, email string) (bool, error) {
	resp, err := a.mutate(ctx, requestPasswordResetEmailMutation, map[string]any{"email": email}, true)
	if err != nil {
		return false, err
	}
	return resp.Get("requestPasswordResetEmail").Bool(), nil
}

// ResetPassword sets a new password using the token from the reset mail.
func (a *Accounts) ResetPassword(ctx context.Context, email, resetPasswordToken, newPassword string) (bool, error) {
	resp, err := a.mutate(ctx, resetPasswordMutation, map[string]any{
		"email":              email,
		"resetPasswordToken": resetPasswordToken,
		"newPassword":        newPassword,
	}, true)
	if err != nil {
		return false, err
	}
	return resp.Get("resetPassword").Bool(), nil
}

// CreateCustomer registers a new customer account.
func (a *Accounts) CreateCustomer(ctx context.Context, input CustomerInput) (*Customer, error) {
	resp, err := a.mutate(ctx, createCustomerV2Mutation, map[string]any{
		"input": map[string]any{
			"firstname":     input.Firstname,
			"lastname":      input.Lastname,
			"email":         input.Email,
			"password":      input.Password,
			"is_subscribed": input.IsSubscribed,
		},
	}, true)
	if err != nil {
		return nil, err
	}
	c := resp.Get("createCustomerV2.customer")
	if !c.Exists() {
		return nil, fmt.Errorf("auth: createCustomerV2 returned no customer")
	}
	return &Customer{
		Firstname:    c.Get("firstname").String(),
		Lastname:     c.Get("lastname").String(),
		Email:        c.Get("email").String(),
		IsSubscribed: c.Get("is_subscribed").Bool(),
	}, nil
}

// Login is the page-level sign-in entry point. Failures are logged, never returned.
func (a *Accounts) Login(ctx context.Context, email, password string) {
	if err := a.GenerateCustomerToken(ctx, email, password); err != nil {
		a.log.Errorf("could not log customer in: %v", err)
	}
}

// Logout is the page-level sign-out entry point. Failures are logged, never returned.
func (a *Accounts) Logout(ctx context.Context) {
	if err := a.RevokeCustomerToken(ctx); err != nil {
		a.log.Errorf("could not log customer out: %v", err)
	}
}

// Register is the page-level registration entry point. Failures are logged, never returned.
func (a *Accounts) Register(ctx context.Context, input CustomerInput) {
	customer, err := a.CreateCustomer(ctx, input)
	if err != nil {
		a.log.Errorf("could not create customer: %v", err)
		return
	}
	a.log.Infof("customer account created (subscribed: %t)", customer.IsSubscribed)
}
