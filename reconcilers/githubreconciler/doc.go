/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package githubreconciler holds the GitHub identifiers, credentials, and
// error classification shared by the gateway, change manager, and sandbox
// packages beneath it.
//
// Credentials are always an oauth2.TokenSource so that the same token can
// authenticate REST calls, GraphQL queries, and git clones:
//
//	ts, err := githubreconciler.NewAppTokenSource(appID, installationID, keyPEM)
//	gh := githubreconciler.NewClient(ctx, ts)
package githubreconciler
