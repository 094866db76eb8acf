package lib

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"perfumery_server/structs"
	"strings"

	"golang.org/x/crypto/argon2"
)

// DefaultArgonParams follows the argon2id recommendation for interactive logins
var DefaultArgonParams = &structs.ArgonParams{
	Memory:  64 * 1024,
	Time:    1,
	Threads: 4,
	KeyLen:  32,
	SaltLen: 16,
}

var (
	ErrInvalidHash         = errors.New("invalid hash format")
	ErrIncompatibleVersion = errors.New("incompatible version of argon2")
)

var b64 = base64.RawStdEncoding

// Argon2Hash is a decoded $argon2id$v=19$m=...,t=...,p=...$salt$key string
type Argon2Hash struct {
	Params structs.ArgonParams
	Salt   []byte
	Key    []byte
}

func (h *Argon2Hash) String() string {
	return fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.Params.Memory, h.Params.Time, h.Params.Threads,
		b64.EncodeToString(h.Salt), b64.EncodeToString(h.Key))
}

// DecodeArgon2Hash parses an encoded argon2id hash
func DecodeArgon2Hash(encoded string) (*Argon2Hash, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != "argon2id" {
		return nil, ErrInvalidHash
	}

	var version int
	if _, err := fmt.Sscanf(fields[2], "v=%d", &version); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	if version != argon2.Version {
		return nil, ErrIncompatibleVersion
	}

	h := &Argon2Hash{}
	if _, err := fmt.Sscanf(fields[3], "m=%d,t=%d,p=%d", &h.Params.Memory, &h.Params.Time, &h.Params.Threads); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}

	var err error
	if h.Salt, err = b64.DecodeString(fields[4]); err != nil {
		return nil, fmt.Errorf("%w: bad salt", ErrInvalidHash)
	}
	if h.Key, err = b64.DecodeString(fields[5]); err != nil {
		return nil, fmt.Errorf("%w: bad key", ErrInvalidHash)
	}
	h.Params.SaltLen = uint32(len(h.Salt))
	h.Params.KeyLen = uint32(len(h.Key))
	return h, nil
}

// HashPassword derives an argon2id key with a fresh salt and returns its encoding
func HashPassword(password string, p *structs.ArgonParams) (string, error) {
	h := &Argon2Hash{Params: *p, Salt: make([]byte, p.SaltLen)}
	if _, err := rand.Read(h.Salt); err != nil {
		return "", err
	}
	h.Key = argon2.IDKey([]byte(password), h.Salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return h.String(), nil
}

// VerifyPassword reports whether password matches encoded, using the
// parameters stored in the hash itself
func VerifyPassword(password, encoded string) (bool, error) {
	h, err := DecodeArgon2Hash(encoded)
	if err != nil {
		return false, err
	}
	p := h.Params
	key := argon2.IDKey([]byte(password), h.Salt, p.Time, p.Memory, p.Threads, p.KeyLen)
	return subtle.ConstantTimeCompare(key, h.Key) == 1, nil
}

// PasswordNeedsRehash reports whether encoded was produced with parameters
// other than p. Undecodable hashes always need one.
func PasswordNeedsRehash(encoded string, p *structs.ArgonParams) bool {
	h, err := DecodeArgon2Hash(encoded)
	if err != nil {
		return true
	}
	return h.Params != *p
}
