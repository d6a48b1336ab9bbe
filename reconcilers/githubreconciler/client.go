/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubreconciler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bradleyfalzon/ghinstallation/v2"
	"github.com/google/go-github/v84/github"
	"golang.org/x/oauth2"
)

// NewStaticTokenSource wraps a personal access token.
func NewStaticTokenSource(token string) (oauth2.TokenSource, error) {
	if token == "" {
		return nil, errors.New("token cannot be empty")
	}
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}), nil
}

// installationTokenSource adapts a GitHub App installation transport to oauth2.
type installationTokenSource struct {
	transport *ghinstallation.Transport
}

// Token implements oauth2.TokenSource.
func (s *installationTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.transport.Token(context.Background())
	if err != nil {
		return nil, fmt.Errorf("minting installation token: %w", err)
	}
	expiry, _, err := s.transport.Expiry()
	if err != nil {
		return nil, fmt.Errorf("reading installation token expiry: %w", err)
	}
	return &oauth2.Token{AccessToken: tok, TokenType: "token", Expiry: expiry}, nil
}

// NewAppTokenSource mints installation tokens for a GitHub App. Tokens are
// cached by ghinstallation and refreshed before expiry.
func NewAppTokenSource(appID, installationID int64, privateKeyPEM []byte) (oauth2.TokenSource, error) {
	tr, err := ghinstallation.New(http.DefaultTransport, appID, installationID, privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("creating installation transport: %w", err)
	}
	return oauth2.ReuseTokenSource(nil, &installationTokenSource{transport: tr}), nil
}

// NewClient returns a go-github client authenticated by the token source.
func NewClient(ctx context.Context, ts oauth2.TokenSource) *github.Client {
	return github.NewClient(oauth2.NewClient(ctx, ts))
}
