package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/you/feedauth/domain"
)

// ChallengeTokenServiceImpl implements domain.ChallengeTokenService with
// HS256-signed JWTs. The token only points at a stored challenge; the
// fingerprint itself never leaves the server.
type ChallengeTokenServiceImpl struct {
	secretKey []byte
	issuer    string
	now       func() time.Time
}

// NewChallengeTokenService creates a new challenge token service
func NewChallengeTokenService(secretKey, issuer string) *ChallengeTokenServiceImpl {
	return &ChallengeTokenServiceImpl{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		now:       time.Now,
	}
}

// Issue implements domain.ChallengeTokenService
func (s *ChallengeTokenServiceImpl) Issue(challenge *domain.PendingChallenge) (string, error) {
	claims := jwt.MapClaims{
		"sub": challenge.Email,
		"jti": challenge.ID,
		"iss": s.issuer,
		"iat": challenge.CreatedAt.Unix(),
		"exp": challenge.ExpiresAt.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secretKey)
}

// Parse implements domain.ChallengeTokenService
func (s *ChallengeTokenServiceImpl) Parse(tokenString string) (*domain.ChallengeClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrChallengeInvalid
		}
		return s.secretKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrChallengeNotFound
		}
		return nil, domain.ErrChallengeInvalid
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrChallengeInvalid
	}

	email, _ := claims["sub"].(string)
	id, _ := claims["jti"].(string)
	if email == "" || id == "" {
		return nil, domain.ErrChallengeInvalid
	}

	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return nil, domain.ErrChallengeInvalid
	}

	return &domain.ChallengeClaims{
		ChallengeID: id,
		Email:       email,
		ExpiresAt:   exp.Time,
	}, nil
}

var _ domain.ChallengeTokenService = (*ChallengeTokenServiceImpl)(nil)
