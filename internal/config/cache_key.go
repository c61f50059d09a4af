package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// UserSessionKey returns the cache key holding the active token IDs of a user.
func (r *CacheKeyStruct) UserSessionKey(userID string) string {
	return fmt.Sprintf("session:%s", userID)
}

// StudentChangesChannel is the Redis PubSub channel carrying student mutations.
func (r *CacheKeyStruct) StudentChangesChannel() string {
	return "students:changes"
}

var CacheKey = NewCacheKeyStruct()
