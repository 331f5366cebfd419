/*
Copyright 2026 Sails HQ, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubgateway

import (
	"context"
	"errors"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"golang.org/x/oauth2"
)

type options struct {
	token          string
	appID          int64
	installationID int64
	appKeyFile     string
	client         *http.Client
	templatePath   string
}

// Option configures the Gateway.
type Option func(*options)

// WithToken authenticates with a personal access token.
func WithToken(token string) Option {
	return func(o *options) {
		o.token = token
	}
}

// WithAppKeyFile authenticates as a GitHub App installation using a
// private key on disk.
func WithAppKeyFile(appID, installationID int64, keyFile string) Option {
	return func(o *options) {
		o.appID = appID
		o.installationID = installationID
		o.appKeyFile = keyFile
	}
}

// WithHTTPClient supplies a pre-authenticated HTTP client, mainly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.client = client
	}
}

// WithTemplatePath overrides the in-repo path of the issue template
// document (default ".github/ISSUE_TEMPLATE.md").
func WithTemplatePath(path string) Option {
	return func(o *options) {
		o.templatePath = path
	}
}

// httpClient resolves the configured authentication mode into an HTTP client.
func (o *options) httpClient(ctx context.Context) (*http.Client, error) {
	switch {
	case o.client != nil:
		return o.client, nil

	case o.appKeyFile != "":
		transport, err := ghinstallation.NewKeyFromFile(http.DefaultTransport, o.appID, o.installationID, o.appKeyFile)
		if err != nil {
			return nil, err
		}
		return &http.Client{Transport: transport}, nil

	case o.token != "":
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: o.token})
		return oauth2.NewClient(ctx, ts), nil

	default:
		return nil, errors.New("no authentication configured: provide a token, app key, or HTTP client")
	}
}
