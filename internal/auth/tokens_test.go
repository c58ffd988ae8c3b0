// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package auth

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenStore_Lifecycle(t *testing.T) {
	store := NewTokenStore()

	assert.False(t, store.SignedIn(), "new store should not be signed in")
	assert.Empty(t, store.AccessToken())

	store.SetCredentials("tok-1", Profile{Name: "Ada", Email: "ada@example.com"})
	assert.True(t, store.SignedIn())
	assert.Equal(t, "tok-1", store.AccessToken())
	assert.Equal(t, "Ada", store.Profile().Name)

	store.Clear()
	assert.False(t, store.SignedIn())
	assert.Empty(t, store.AccessToken())
	assert.Empty(t, store.Profile().Name)
}

func TestTokenStore_ConcurrentAccess(t *testing.T) {
	store := NewTokenStore()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			store.SetCredentials("tok", Profile{Name: "x"})
		}()
		go func() {
			defer wg.Done()
			_ = store.AccessToken()
			_ = store.SignedIn()
		}()
	}
	wg.Wait()

	assert.True(t, store.SignedIn())
}
