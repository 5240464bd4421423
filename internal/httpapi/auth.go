package httpapi

import (
	"errors"
	"fmt"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"github.com/JayRileyDev/supptraq-claude-sub000/internal/domain"
)

const (
	RoleViewer = "viewer"
	RoleAdmin  = "admin"

	MinSecretLength = 32
	tokenIssuer     = "supptraq"
)

var ErrWeakSecret = fmt.Errorf("auth secret must be at least %d characters", MinSecretLength)

// TokenManager verifies the bearer tokens issued by the account service and
// mints operator tokens for the CLI. Both sides share one HS256 secret.
type TokenManager struct {
	secret   []byte
	tokenTTL time.Duration
	now      func() time.Time
}

type tenantClaims struct {
	jwtlib.RegisteredClaims
	OrgID       string `json:"org_id"`
	FranchiseID string `json:"franchise_id"`
	Role        string `json:"role"`
}

func NewTokenManager(secret string, tokenTTL time.Duration) (*TokenManager, error) {
	secret = strings.TrimSpace(secret)
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSecret
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &TokenManager{
		secret:   []byte(secret),
		tokenTTL: tokenTTL,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// IssueToken signs a token scoped to one tenant. A ttl <= 0 uses the
// manager's default.
func (m *TokenManager) IssueToken(subject string, tenant domain.Tenant, role string, ttl time.Duration) (string, time.Time, error) {
	if !tenant.Valid() {
		return "", time.Time{}, errors.New("token requires org_id and franchise_id")
	}
	if !isKnownRole(role) {
		return "", time.Time{}, fmt.Errorf("unknown role %q", role)
	}
	if ttl <= 0 {
		ttl = m.tokenTTL
	}
	if strings.TrimSpace(subject) == "" {
		subject = "operator"
	}

	now := m.now()
	expiresAt := now.Add(ttl)
	claims := tenantClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    tokenIssuer,
		},
		OrgID:       tenant.OrgID,
		FranchiseID: tenant.FranchiseID,
		Role:        role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *TokenManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &tenantClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}

	tenant := domain.Tenant{
		OrgID:       strings.TrimSpace(claims.OrgID),
		FranchiseID: strings.TrimSpace(claims.FranchiseID),
	}
	if !tenant.Valid() {
		return domain.Actor{}, errors.New("token is missing tenant claims")
	}
	if !isKnownRole(claims.Role) {
		return domain.Actor{}, errors.New("token has an unknown role")
	}
	sub, _ := claims.GetSubject()
	return domain.Actor{Subject: sub, Role: claims.Role, Tenant: tenant}, nil
}

func isKnownRole(role string) bool {
	return role == RoleViewer || role == RoleAdmin
}
