// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth issues and verifies actor tokens.

# Actor Tokens

An actor token binds a person ID to a governance role with HMAC-SHA256:

	token := auth.GenerateActorToken("alice", governance.RoleMember, salt)
	actor, err := auth.ParseActorToken(token, salt)

The token has three dot-separated parts: the URL-safe base64 person ID, the
role name, and the URL-safe base64 MAC. Tokens are deterministic, so the same
person, role and salt always produce the same token and nothing is stored
server side. Changing the salt revokes every token.

Clients send the token in the X-Actor-Token header.
*/
package auth
