// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package auth

import (
	"errors"
	"fmt"
)

// KeyRing holds the HMAC keys tokens may be signed with, by key id. New
// tokens are signed with the active key; tokens carrying a revoked or
// unknown key id are rejected.
type KeyRing struct {
	keys    map[string][]byte
	active  string
	revoked map[string]bool
}

// NewKeyRing builds a key ring from id → secret pairs.
func NewKeyRing(keys map[string]string, active string, revoked []string) (*KeyRing, error) {
	if len(keys) == 0 {
		return nil, errors.New("key ring: no keys configured")
	}

	ring := &KeyRing{
		keys:    make(map[string][]byte, len(keys)),
		active:  active,
		revoked: make(map[string]bool, len(revoked)),
	}
	for kid, secret := range keys {
		if secret == "" {
			return nil, fmt.Errorf("key ring: key %q is empty", kid)
		}
		ring.keys[kid] = []byte(secret)
	}
	for _, kid := range revoked {
		ring.revoked[kid] = true
	}

	if _, ok := ring.keys[active]; !ok {
		return nil, fmt.Errorf("key ring: active key %q not found", active)
	}
	if ring.revoked[active] {
		return nil, fmt.Errorf("key ring: active key %q is revoked", active)
	}
	return ring, nil
}

// ActiveKeyID returns the id new tokens are signed with.
func (k *KeyRing) ActiveKeyID() string {
	return k.active
}

func (k *KeyRing) signingKey() (string, []byte) {
	return k.active, k.keys[k.active]
}

func (k *KeyRing) verificationKey(kid string) ([]byte, error) {
	if k.revoked[kid] {
		return nil, fmt.Errorf("key %q is revoked", kid)
	}
	key, ok := k.keys[kid]
	if !ok {
		return nil, fmt.Errorf("unknown key %q", kid)
	}
	return key, nil
}
