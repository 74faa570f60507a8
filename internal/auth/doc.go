// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth provides account authentication and the password reset
// token lifecycle.
//
// # Domain Types
//
// User is the persisted account; PublicUser is the projection every Service
// operation returns. Users are created with NewUser, which validates the
// normalized email, digest and role.
//
// Token is a single-use, hashed-at-rest token. Session is a login session,
// also hashed at rest. Plaintext tokens exist only in return values.
//
// # Components
//
//   - Argon2idHasher - password digests with a tri-state Verify
//   - TokenIssuer - Issue, VerifyAndConsume and Prune over a TokenRepository
//   - SessionManager - SessionStore over a SessionRepository
//   - Service - authenticate, signup, login, logout, current user,
//     request and perform password reset, change password
//
// Constructors validate their dependencies. Every error wraps one of the
// sentinel errors in errors.go.
package auth
