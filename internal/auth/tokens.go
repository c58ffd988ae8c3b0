// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package auth holds in-process credentials for the agent backend.
//
// Tokens live in memory only and are never written to disk. The login flow
// that obtains them is out of band; this package just holds what it is
// given and hands it to the transport layer through the TokenSource
// interface.
package auth

import "sync"

// =============================================================================
// TOKEN STORE
// =============================================================================

// TokenStore is a mutex-guarded in-memory credential holder. It implements
// api.TokenSource. Safe for concurrent use. The zero value is a store with
// no credentials; an empty token is valid and means "unauthenticated".
type TokenStore struct {
	mu      sync.RWMutex
	token   string
	profile Profile
}

// Profile identifies the signed-in user for display purposes.
type Profile struct {
	Name  string
	Email string
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// SetCredentials replaces the stored token and profile.
func (s *TokenStore) SetCredentials(token string, profile Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.profile = profile
}

// AccessToken returns the current bearer token, or "" when signed out.
func (s *TokenStore) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Profile returns the signed-in user's profile.
func (s *TokenStore) Profile() Profile {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.profile
}

// SignedIn reports whether a non-empty token is held.
func (s *TokenStore) SignedIn() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Clear drops the token and profile.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
	s.profile = Profile{}
}
