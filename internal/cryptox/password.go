package cryptox

import (
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/securemsg/internal/common"
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length of a per-user password salt.
const SaltSize = 16

const passwordAlgorithm = "argon2id"

// PasswordParams controls the argon2id cost. Raising any value makes new
// hashes slower to compute; existing hashes keep the parameters they were
// created with.
type PasswordParams struct {
	Time     uint32
	MemoryKB uint32
	Threads  uint8
	KeyLen   uint32
}

// DefaultPasswordParams follows the argon2 RFC's second recommended option.
var DefaultPasswordParams = PasswordParams{Time: 1, MemoryKB: 64 * 1024, Threads: 4, KeyLen: 32}

var errInvalidPasswordHash = errors.New("invalid password hash")

// NewSalt returns a fresh random salt.
func NewSalt() []byte {
	return common.GenerateRandByteArray(SaltSize)
}

// HashPassword derives an argon2id key from password and salt and encodes it
// together with its cost parameters:
//
//	$argon2id$v=19$m=65536,t=1,p=4$<base64 key>
//
// The salt is stored separately and is not part of the encoded string.
func HashPassword(password, salt []byte, p PasswordParams) string {
	key := argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Threads, p.KeyLen)
	defer common.WipeByteArray(key)

	return fmt.Sprintf("$%s$v=%d$m=%d,t=%d,p=%d$%s",
		passwordAlgorithm, argon2.Version, p.MemoryKB, p.Time, p.Threads,
		base64.RawStdEncoding.EncodeToString(key))
}

// VerifyPassword recomputes the hash of password with salt using the
// parameters embedded in encoded and compares the keys in constant time.
func VerifyPassword(password, salt []byte, encoded string) (bool, error) {
	p, want, err := parsePasswordHash(encoded)
	if err != nil {
		return false, err
	}

	got := argon2.IDKey(password, salt, p.Time, p.MemoryKB, p.Threads, p.KeyLen)
	defer common.WipeByteArray(got)

	return subtle.ConstantTimeCompare(got, want) == 1, nil
}

func parsePasswordHash(encoded string) (PasswordParams, []byte, error) {
	var p PasswordParams

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 || parts[0] != "" || parts[1] != passwordAlgorithm {
		return p, nil, errInvalidPasswordHash
	}
	if parts[2] != "v="+strconv.Itoa(argon2.Version) {
		return p, nil, errInvalidPasswordHash
	}

	for _, kv := range strings.Split(parts[3], ",") {
		name, value, ok := strings.Cut(kv, "=")
		if !ok {
			return p, nil, errInvalidPasswordHash
		}
		n, err := strconv.ParseUint(value, 10, 32)
		if err != nil || n == 0 {
			return p, nil, errInvalidPasswordHash
		}
		switch name {
		case "m":
			p.MemoryKB = uint32(n)
		case "t":
			p.Time = uint32(n)
		case "p":
			if n > 255 {
				return p, nil, errInvalidPasswordHash
			}
			p.Threads = uint8(n)
		default:
			return p, nil, errInvalidPasswordHash
		}
	}
	if p.MemoryKB == 0 || p.Time == 0 || p.Threads == 0 {
		return p, nil, errInvalidPasswordHash
	}

	key, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(key) == 0 {
		return p, nil, errInvalidPasswordHash
	}
	p.KeyLen = uint32(len(key))

	return p, key, nil
}
