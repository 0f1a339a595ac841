package utils // token creation, parsing and hashing helpers

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken is a signed HS256 JWT plus its expiry. Access tokens are
// short-lived and sent in the Authorization header on every request.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // UTC expiration time
}

// RefreshToken is the long-lived opaque token used to obtain new access
// tokens. Raw goes back to the client; only the SHA-256 hash of Raw is ever
// stored, so a leaked sessions table cannot be replayed.
type RefreshToken struct {
	Raw string    // raw token string returned to the client
	Exp time.Time // UTC expiration time
}

// AccessClaims is the decoded payload of an access token. PermissionVersion
// pins the permission snapshot the token was issued against; the gate
// compares it to the current version to detect stale tokens.
type AccessClaims struct {
	UserID            uint64
	RoleID            uint64
	AccessKeyID       uint64
	PermissionVersion uint64
	IssuedAt          time.Time
	ExpiresAt         time.Time
}

// NewAccessToken builds and signs an HS256 JWT carrying the identity and
// permission-version claims. ttlMin is the lifetime in minutes.
func NewAccessToken(secret string, cl AccessClaims, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":        cl.UserID,
		"role_id":    cl.RoleID,
		"access_key": cl.AccessKeyID,
		"pv":         cl.PermissionVersion,
		"iat":        now.Unix(),
		"exp":        exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ParseAccessClaims verifies the signature and expiry of a raw access token
// and decodes its claims. Errors from the jwt library are returned
// unwrapped so callers can distinguish jwt.ErrTokenExpired from signature
// failures.
func ParseAccessClaims(secret, raw string) (AccessClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return AccessClaims{}, err
	}
	if !tok.Valid {
		return AccessClaims{}, jwt.ErrTokenUnverifiable
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return AccessClaims{}, jwt.ErrTokenInvalidClaims
	}
	cl := AccessClaims{
		UserID:            claimUint(mc, "sub"),
		RoleID:            claimUint(mc, "role_id"),
		AccessKeyID:       claimUint(mc, "access_key"),
		PermissionVersion: claimUint(mc, "pv"),
	}
	if cl.UserID == 0 {
		return AccessClaims{}, jwt.ErrTokenInvalidClaims
	}
	if v := claimUint(mc, "iat"); v != 0 {
		cl.IssuedAt = time.Unix(int64(v), 0).UTC()
	}
	if v := claimUint(mc, "exp"); v != 0 {
		cl.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	return cl, nil
}

// claimUint reads a numeric claim. JSON numbers decode as float64; ids
// stay well below 2^53 so the conversion is lossless.
func claimUint(mc jwt.MapClaims, key string) uint64 {
	switch v := mc[key].(type) {
	case float64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case int64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case uint64:
		return v
	}
	return 0
}

// NewRefreshToken returns a cryptographically random opaque token and its
// expiry. ttlDays controls how long the refresh token stays valid.
func NewRefreshToken(ttlDays int) (RefreshToken, error) {
	raw, err := randomHex(48) // 48 bytes -> 96 hex chars
	if err != nil {
		return RefreshToken{}, err
	}
	return RefreshToken{
		Raw: raw,
		Exp: time.Now().UTC().Add(time.Duration(ttlDays) * 24 * time.Hour),
	}, nil
}

// HashRefreshRaw returns the SHA-256 hash of a raw refresh token as a hex
// string. Only this hash is persisted.
func HashRefreshRaw(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
