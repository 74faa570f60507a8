// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/samber/oops"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// VerifyResult is the outcome of checking a password against a stored digest.
type VerifyResult int

// Verify outcomes.
const (
	VerifyInvalid VerifyResult = iota
	VerifyValid
	// VerifyValidNeedsRehash means the password matched but the digest was
	// produced by a legacy algorithm or weaker parameters. The caller is
	// expected to hash the password again and store the new digest.
	VerifyValidNeedsRehash
)

func (r VerifyResult) String() string {
	switch r {
	case VerifyValid:
		return "valid"
	case VerifyValidNeedsRehash:
		return "valid_needs_rehash"
	default:
		return "invalid"
	}
}

// Matched reports whether the password matched, with or without a rehash.
func (r VerifyResult) Matched() bool {
	return r == VerifyValid || r == VerifyValidNeedsRehash
}

// PasswordHasher hashes and verifies passwords. Implementations are pure:
// they never write anywhere, persisting an upgraded digest is up to the caller.
type PasswordHasher interface {
	// Hash produces a self-describing digest of the password.
	Hash(password string) (string, error)

	// Verify checks password against the encoded digest.
	// A malformed digest returns an error with code AUTH_INVALID_HASH.
	Verify(encoded, password string) (VerifyResult, error)
}

// HasherParams are the argon2id cost parameters.
type HasherParams struct {
	Time    uint32 // iterations
	Memory  uint32 // KiB
	Threads uint8
	SaltLen uint32 // bytes
	KeyLen  uint32 // bytes
}

// DefaultHasherParams returns the OWASP-recommended argon2id parameters.
func DefaultHasherParams() HasherParams {
	return HasherParams{
		Time:    1,
		Memory:  64 * 1024,
		Threads: 4,
		SaltLen: 16,
		KeyLen:  32,
	}
}

// Argon2idHasher implements PasswordHasher using argon2id, and accepts
// legacy bcrypt digests for verification.
type Argon2idHasher struct {
	params HasherParams
}

// NewArgon2idHasher creates an Argon2idHasher with the default parameters.
func NewArgon2idHasher() *Argon2idHasher {
	return &Argon2idHasher{params: DefaultHasherParams()}
}

// NewArgon2idHasherWithParams creates an Argon2idHasher with custom parameters.
// Zero fields fall back to the defaults.
func NewArgon2idHasherWithParams(p HasherParams) *Argon2idHasher {
	d := DefaultHasherParams()
	if p.Time == 0 {
		p.Time = d.Time
	}
	if p.Memory == 0 {
		p.Memory = d.Memory
	}
	if p.Threads == 0 {
		p.Threads = d.Threads
	}
	if p.SaltLen == 0 {
		p.SaltLen = d.SaltLen
	}
	if p.KeyLen == 0 {
		p.KeyLen = d.KeyLen
	}
	return &Argon2idHasher{params: p}
}

// Params returns the parameters new digests are produced with.
func (h *Argon2idHasher) Params() HasherParams {
	return h.params
}

// Hash produces an argon2id digest in PHC string format:
// $argon2id$v=19$m=65536,t=1,p=4$<salt>$<key>
func (h *Argon2idHasher) Hash(password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}

	salt := make([]byte, h.params.SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", oops.Code("AUTH_SALT_FAILED").Wrap(err)
	}

	key := argon2.IDKey([]byte(password), salt, h.params.Time, h.params.Memory, h.params.Threads, h.params.KeyLen)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		h.params.Memory,
		h.params.Time,
		h.params.Threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify checks password against an argon2id or bcrypt digest.
func (h *Argon2idHasher) Verify(encoded, password string) (VerifyResult, error) {
	if isBcrypt(encoded) {
		return verifyBcrypt(encoded, password)
	}
	return h.verifyArgon2id(encoded, password)
}

func isBcrypt(encoded string) bool {
	return strings.HasPrefix(encoded, "$2a$") ||
		strings.HasPrefix(encoded, "$2b$") ||
		strings.HasPrefix(encoded, "$2y$")
}

func verifyBcrypt(encoded, password string) (VerifyResult, error) {
	err := bcrypt.CompareHashAndPassword([]byte(encoded), []byte(password))
	switch {
	case err == nil:
		return VerifyValidNeedsRehash, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return VerifyInvalid, nil
	default:
		return VerifyInvalid, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
}

type argon2Digest struct {
	version int
	memory  uint32
	time    uint32
	threads uint32
	salt    []byte
	key     []byte
}

func parseArgon2id(encoded string) (*argon2Digest, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash format")
	}
	if parts[1] != "argon2id" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("unsupported hash algorithm: %s", parts[1])
	}

	d := &argon2Digest{}
	if _, err := fmt.Sscanf(parts[2], "v=%d", &d.version); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &d.memory, &d.time, &d.threads); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	var err error
	if d.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}
	if d.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil {
		return nil, oops.Code("AUTH_INVALID_HASH").Wrap(err)
	}

	if d.threads == 0 || d.threads > 255 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("threads value %d out of range", d.threads)
	}
	if len(d.key) == 0 || len(d.key) > 1<<30 {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("invalid hash key length: %d", len(d.key))
	}
	return d, nil
}

func (h *Argon2idHasher) verifyArgon2id(encoded, password string) (VerifyResult, error) {
	d, err := parseArgon2id(encoded)
	if err != nil {
		return VerifyInvalid, err
	}

	computed := argon2.IDKey([]byte(password), d.salt, d.time, d.memory, uint8(d.threads), uint32(len(d.key)))
	if subtle.ConstantTimeCompare(computed, d.key) != 1 {
		return VerifyInvalid, nil
	}

	if h.weaker(d) {
		return VerifyValidNeedsRehash, nil
	}
	return VerifyValid, nil
}

// weaker reports whether a digest was produced with weaker settings than h.
func (h *Argon2idHasher) weaker(d *argon2Digest) bool {
	return d.version != argon2.Version ||
		d.memory < h.params.Memory ||
		d.time < h.params.Time ||
		uint32(len(d.key)) < h.params.KeyLen
}
