package account

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/iliyamo/worktime-ledger/internal/model"
)

// Token purposes.  A token minted for one purpose never verifies for the
// other.
const (
	PurposeActivation    = "activation"
	PurposePasswordReset = "password-reset"
)

// TokenService mints and checks account tokens.  Nothing is stored: a token
// is an expiry plus an HMAC-SHA256 over the purpose, the user id, the expiry
// and a fingerprint of the user's current state (password hash, active flag,
// last login, email).  Any change to that state invalidates every token
// issued before it, which makes tokens single use in practice.
//
// Format: base36(expiry unix seconds) "-" hex(mac).
type TokenService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenService returns a service signing with secret.  ttl <= 0 falls
// back to 72h.
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	if ttl <= 0 {
		ttl = 72 * time.Hour
	}
	return &TokenService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a fresh token for u.
func (s *TokenService) Issue(purpose string, u model.User) string {
	exp := s.now().Add(s.ttl).Unix()
	return strconv.FormatInt(exp, 36) + "-" + hex.EncodeToString(s.mac(purpose, u, exp))
}

// Verify reports whether token was issued for purpose and u in its current
// state and has not expired.
func (s *TokenService) Verify(purpose string, u model.User, token string) bool {
	expPart, macPart, ok := strings.Cut(token, "-")
	if !ok {
		return false
	}
	exp, err := strconv.ParseInt(expPart, 36, 64)
	if err != nil || s.now().Unix() > exp {
		return false
	}
	got, err := hex.DecodeString(macPart)
	if err != nil {
		return false
	}
	return hmac.Equal(got, s.mac(purpose, u, exp))
}

func (s *TokenService) mac(purpose string, u model.User, exp int64) []byte {
	var lastLogin int64
	if u.LastLoginAt != nil {
		lastLogin = u.LastLoginAt.UTC().Unix()
	}
	h := hmac.New(sha256.New, s.secret)
	for _, part := range []string{
		purpose,
		u.ID,
		u.PasswordHash,
		strconv.FormatBool(u.IsActive),
		strconv.FormatInt(lastLogin, 10),
		u.Email,
		strconv.FormatInt(exp, 10),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return h.Sum(nil)
}

// EncodeID makes a user id safe for a URL path segment.
func EncodeID(id string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(id))
}

// DecodeID reverses EncodeID.  Padded input is accepted too.
func DecodeID(s string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(s, "="))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
