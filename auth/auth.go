// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"

	"github.com/danielhkuo/vve-governance/governance"
)

var ErrInvalidToken = errors.New("invalid actor token")

var encoding = base64.RawURLEncoding

// sign computes the HMAC over person ID and role. The NUL separator cannot
// occur in either field.
func sign(personID string, role governance.Role, salt string) string {
	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(personID))
	h.Write([]byte{0})
	h.Write([]byte(role))
	return encoding.EncodeToString(h.Sum(nil))
}

// GenerateActorToken issues a token identifying a person and their role.
// It is deterministic, so the server needs no session table:
//
//	base64url(personID) "." role "." base64url(hmac)
func GenerateActorToken(personID string, role governance.Role, salt string) string {
	return encoding.EncodeToString([]byte(personID)) + "." + string(role) + "." + sign(personID, role, salt)
}

// ParseActorToken verifies a token and returns the actor it identifies.
func ParseActorToken(token, salt string) (governance.Actor, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return governance.Actor{}, ErrInvalidToken
	}

	rawID, err := encoding.DecodeString(parts[0])
	if err != nil || len(rawID) == 0 {
		return governance.Actor{}, ErrInvalidToken
	}
	personID := string(rawID)
	role := governance.Role(parts[1])
	if !role.Valid() || strings.ContainsRune(personID, 0) {
		return governance.Actor{}, ErrInvalidToken
	}

	expected := sign(personID, role, salt)
	if !hmac.Equal([]byte(parts[2]), []byte(expected)) {
		return governance.Actor{}, ErrInvalidToken
	}

	return governance.Actor{PersonID: personID, Role: role}, nil
}
