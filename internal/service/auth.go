package service

import (
	"crypto/subtle"

	"github.com/alanyoungcy/pythmarket/internal/domain"
)

// KeyAuth implements domain.ResolverAuth by comparing the presented secret
// against configured resolver and admin keys in constant time. The admin key
// also carries the resolver capability.
type KeyAuth struct {
	resolverKey string
	adminKey    string
}

// NewKeyAuth creates a KeyAuth from the configured shared secrets. An empty
// key grants its capability to no one.
func NewKeyAuth(resolverKey, adminKey string) *KeyAuth {
	return &KeyAuth{resolverKey: resolverKey, adminKey: adminKey}
}

func keysEqual(presented, configured string) bool {
	if configured == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(configured)) == 1
}

// IsResolver reports whether caller holds the resolver capability.
func (a *KeyAuth) IsResolver(caller string) bool {
	return keysEqual(caller, a.resolverKey) || keysEqual(caller, a.adminKey)
}

// IsAdmin reports whether caller holds the admin capability.
func (a *KeyAuth) IsAdmin(caller string) bool {
	return keysEqual(caller, a.adminKey)
}

var _ domain.ResolverAuth = (*KeyAuth)(nil)
