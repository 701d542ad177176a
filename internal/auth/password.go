// Package auth implements password hashing, JWT issuance/verification and
// the Auth Service's register/login/verify/refresh/logout flows. The
// overall flow is grounded on
// original_source/crates/rustchat-server/src/auth/service.rs's
// AuthService; the JWT codec is grounded on
// rexlx-squall/cmd/server/jwt.go's GenerateJWT/ValidateJWT idiom, adopted
// in place of the teacher's own fixed-layout binary TokenAuth because the
// spec's claim set (email, display_name, token_type) does not fit that
// 48-byte layout.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// argon2Params are the Argon2id cost parameters used for every hash. Chosen
// as reasonable interactive-login defaults (OWASP's minimum recommended
// Argon2id profile), not a spec-mandated value.
var argon2Params = struct {
	time    uint32
	memory  uint32
	threads uint8
	keyLen  uint32
	saltLen int
}{time: 1, memory: 64 * 1024, threads: 4, keyLen: 32, saltLen: 16}

// HashPassword returns an Argon2id hash of password with a freshly
// generated per-account salt, encoded as a single self-describing string
// (the conventional "$argon2id$v=..$m=..,t=..,p=..$salt$hash" form).
func HashPassword(password string) (string, error) {
	salt := make([]byte, argon2Params.saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("generate salt: %w", err)
	}
	hash := argon2.IDKey([]byte(password), salt,
		argon2Params.time, argon2Params.memory, argon2Params.threads, argon2Params.keyLen)

	encoded := fmt.Sprintf("$argon2id$v=19$m=%d,t=%d,p=%d$%s$%s",
		argon2Params.memory, argon2Params.time, argon2Params.threads,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash))
	return encoded, nil
}

// VerifyPassword reports whether password matches encoded, in constant
// time with respect to the candidate hash comparison (spec invariant 7).
func VerifyPassword(password, encoded string) (bool, error) {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[1] != "argon2id" {
		return false, fmt.Errorf("malformed password hash")
	}
	var mem uint32
	var t uint32
	var p uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &t, &p); err != nil {
		return false, fmt.Errorf("malformed password hash params: %w", err)
	}
	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return false, fmt.Errorf("malformed password hash salt: %w", err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil {
		return false, fmt.Errorf("malformed password hash digest: %w", err)
	}

	got := argon2.IDKey([]byte(password), salt, t, mem, p, uint32(len(want)))
	return subtle.ConstantTimeCompare(got, want) == 1, nil
}
