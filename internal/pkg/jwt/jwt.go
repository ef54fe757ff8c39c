package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-chi/jwtauth/v5"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	tokenTypeAccess = "access"
	tokenTypeStream = "stream"

	defaultStreamTTL = 5 * time.Minute
)

var ErrWrongUpload = errors.New("stream token was issued for another upload")

type Service interface {
	GenerateAccessToken(userID string, ttl time.Duration) (token string, expiresAt int64, err error)
	GenerateStreamToken(userID string, uploadID string) (token string, expiresIn int, err error)
	ValidateStreamToken(tokenString string, uploadID string) (userID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	tokenAuth *jwtauth.JWTAuth
	streamTTL time.Duration
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

// NewJWTService signs and verifies HS256 tokens. streamTTL bounds the lifetime of
// the query-string tokens used by event streams.
func NewJWTService(secretKey string, streamTTL time.Duration) Service {
	if streamTTL <= 0 {
		streamTTL = defaultStreamTTL
	}
	return &JWTService{
		tokenAuth: jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		streamTTL: streamTTL,
	}
}

// GenerateAccessToken issues a bearer token. Tokens are normally issued by the
// HRIS auth service; this is used by operators and tests.
func (j *JWTService) GenerateAccessToken(userID string, ttl time.Duration) (token string, expiresAt int64, err error) {
	expiresAt = time.Now().Add(ttl).Unix()
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id": userID,
		"type":    tokenTypeAccess,
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

// GenerateStreamToken generates a short-lived token bound to one upload's event stream
func (j *JWTService) GenerateStreamToken(userID string, uploadID string) (token string, expiresIn int, err error) {
	expiresAt := time.Now().Add(j.streamTTL).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"user_id":   userID,
		"upload_id": uploadID,
		"type":      tokenTypeStream,
		"exp":       expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, int(j.streamTTL.Seconds()), nil
}

// ValidateStreamToken validates a stream token for uploadID and returns the user ID
func (j *JWTService) ValidateStreamToken(tokenString string, uploadID string) (userID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != tokenTypeStream {
		return "", jwt.ErrInvalidJWT()
	}

	boundUpload, ok := token.Get("upload_id")
	if !ok || boundUpload != uploadID {
		return "", fmt.Errorf("%w: %s", ErrWrongUpload, uploadID)
	}

	userIDVal, ok := token.Get("user_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	userID, ok = userIDVal.(string)
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	return userID, nil
}
