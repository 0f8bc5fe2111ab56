package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMissingCredential = errors.New("auth: missing credential")
	ErrInvalidCredential = errors.New("auth: invalid credential")
	ErrIdentityMismatch  = errors.New("auth: credential does not match claimed user")
)

// Verifier resolves user identities for the socket auth envelope and for REST requests.
type Verifier interface {
	// VerifyEnvelope checks the credential carried in an auth envelope against the claimed user id.
	VerifyEnvelope(claimedUserID int64, credential string) (int64, error)
	// UserFromRequest extracts the authenticated user id from an HTTP request.
	UserFromRequest(r *http.Request) (int64, error)
}

// Claims is the token payload issued by the DAOOB auth subsystem.
type Claims struct {
	UserID   int64  `json:"user_id"`
	UserType string `json:"user_type,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

var _ Verifier = (*JWTVerifier)(nil)

// Sign issues a token for userID. Used by tests and the terminal client.
func (v *JWTVerifier) Sign(userID int64, userType string, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID:   userID,
		UserType: userType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

func (v *JWTVerifier) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	c, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || c.UserID <= 0 {
		return nil, ErrInvalidCredential
	}
	return c, nil
}

func (v *JWTVerifier) VerifyEnvelope(claimedUserID int64, credential string) (int64, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return 0, ErrMissingCredential
	}
	c, err := v.Parse(credential)
	if err != nil {
		return 0, err
	}
	if claimedUserID != 0 && claimedUserID != c.UserID {
		return 0, ErrIdentityMismatch
	}
	return c.UserID, nil
}

func (v *JWTVerifier) UserFromRequest(r *http.Request) (int64, error) {
	h := r.Header.Get("Authorization")
	if h == "" || !strings.HasPrefix(h, "Bearer ") {
		return 0, ErrMissingCredential
	}
	c, err := v.Parse(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		return 0, err
	}
	return c.UserID, nil
}

// TrustVerifier accepts the caller's word for its identity. Development only:
// the auth envelope must carry the decimal user id, and REST requests the
// X-User-ID header.
type TrustVerifier struct{}

var _ Verifier = TrustVerifier{}

func (TrustVerifier) VerifyEnvelope(claimedUserID int64, credential string) (int64, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return 0, ErrMissingCredential
	}
	id, err := strconv.ParseInt(credential, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCredential
	}
	if claimedUserID != id {
		return 0, ErrIdentityMismatch
	}
	return id, nil
}

func (TrustVerifier) UserFromRequest(r *http.Request) (int64, error) {
	v := strings.TrimSpace(r.Header.Get("X-User-ID"))
	if v == "" {
		return 0, ErrMissingCredential
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidCredential
	}
	return id, nil
}
