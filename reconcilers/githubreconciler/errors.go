/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package githubreconciler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/go-github/v84/github"
)

var (
	// ErrAuth means GitHub rejected the credentials. Runs must abort.
	ErrAuth = errors.New("github rejected credentials")
	// ErrNotFound means the requested object does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a write raced with another change or the object already exists.
	ErrConflict = errors.New("conflict")
)

// StatusCode returns the HTTP status of a go-github error, or 0.
func StatusCode(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	var rlErr *github.RateLimitError
	if errors.As(err, &rlErr) && rlErr.Response != nil {
		return rlErr.Response.StatusCode
	}
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) && abuseErr.Response != nil {
		return abuseErr.Response.StatusCode
	}
	return 0
}

// Classify wraps err with the sentinel matching its HTTP status so callers
// can use errors.Is. Rate limit errors are left unclassified even though
// GitHub reports them as 403.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var rlErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rlErr) || errors.As(err, &abuseErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch StatusCode(err) {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%s: %w: %w", op, ErrAuth, err)
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	case http.StatusConflict, http.StatusUnprocessableEntity:
		return fmt.Errorf("%s: %w: %w", op, ErrConflict, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
