package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/material-submission-api/internal/models"
	appErrors "github.com/noah-isme/material-submission-api/pkg/errors"
)

type mockAuthRepo struct {
	user              *models.User
	findErr           error
	refreshTokens     map[string]*models.RefreshToken
	revokedAll        bool
	lastLoginUpdated  bool
	updatePasswordErr error
}

func (m *mockAuthRepo) FindByRegistrationNumber(ctx context.Context, registration string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if m.user == nil || m.user.RegistrationNumber != registration {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id int64, includeDeleted bool) (*models.User, error) {
	if m.user == nil || m.user.ID != id {
		return nil, sql.ErrNoRows
	}
	return m.user, nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id int64, ts time.Time) error {
	m.lastLoginUpdated = true
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id int64, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	m.user.PasswordHash = passwordHash
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID int64) error {
	m.revokedAll = true
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	if m.refreshTokens == nil {
		m.refreshTokens = make(map[string]*models.RefreshToken)
	}
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range m.refreshTokens {
		if token.ID == id {
			token.Revoked = true
			token.RevokedAt = &revokedAt
		}
	}
	return nil
}

type recordingAudit struct {
	logs []*models.AuditLog
}

func (r *recordingAudit) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	r.logs = append(r.logs, log)
	return nil
}

func (r *recordingAudit) actions() []string {
	out := make([]string, 0, len(r.logs))
	for _, l := range r.logs {
		out = append(out, l.Action)
	}
	return out
}

func newAuthFixture(t *testing.T, password string) (*AuthService, *mockAuthRepo, *recordingAudit) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	repo := &mockAuthRepo{user: &models.User{
		ID:                 7,
		ProfileID:          2,
		ProfileName:        "Professor",
		Name:               "Ana Souza",
		RegistrationNumber: "P-001",
		PasswordHash:       string(hash),
	}}
	audit := &recordingAudit{}
	svc := NewAuthService(repo, audit, nil, zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "material-submission-api",
	})
	return svc, repo, audit
}

func TestAuthServiceLoginSuccess(t *testing.T) {
	svc, repo, audit := newAuthFixture(t, "password")

	res, err := svc.Login(context.Background(), models.LoginRequest{RegistrationNumber: "P-001", Password: "password"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, int64(3600), res.ExpiresIn)
	assert.Equal(t, "Professor", res.User.ProfileName)
	assert.True(t, repo.lastLoginUpdated)
	assert.Len(t, repo.refreshTokens, 1)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.actions())
}

func TestAuthServiceLoginWrongPassword(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "password")

	_, err := svc.Login(context.Background(), models.LoginRequest{RegistrationNumber: "P-001", Password: "nope"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.lastLoginUpdated)
}

func TestAuthServiceLoginUnknownUser(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "password")

	_, err := svc.Login(context.Background(), models.LoginRequest{RegistrationNumber: "X-999", Password: "password"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLoginRequiresFields(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "password")

	_, err := svc.Login(context.Background(), models.LoginRequest{RegistrationNumber: "P-001"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceRefreshTokenRotates(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "password")
	repo.refreshTokens = map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: 7, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEqual(t, "token", res.RefreshToken)
	assert.True(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceRefreshTokenExpired(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "password")
	repo.refreshTokens = map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: 7, Token: "token", ExpiresAt: time.Now().Add(-time.Minute)},
	}

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "token"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestAuthServiceLogoutRejectsForeignToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "password")
	repo.refreshTokens = map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: 99, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}

	err := svc.Logout(context.Background(), "token", 7, models.RequestMeta{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.False(t, repo.refreshTokens["token"].Revoked)
}

func TestAuthServiceLogout(t *testing.T) {
	svc, repo, audit := newAuthFixture(t, "password")
	repo.refreshTokens = map[string]*models.RefreshToken{
		"token": {ID: "rt1", UserID: 7, Token: "token", ExpiresAt: time.Now().Add(time.Hour)},
	}

	require.NoError(t, svc.Logout(context.Background(), "token", 7, models.RequestMeta{IP: "10.0.0.1"}))
	assert.True(t, repo.refreshTokens["token"].Revoked)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, "10.0.0.1", audit.logs[0].IPAddress)
}

func TestAuthServiceChangePassword(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "old-pass")
	oldHash := repo.user.PasswordHash

	err := svc.ChangePassword(context.Background(), 7, models.ChangePasswordRequest{OldPassword: "old-pass", NewPassword: "new-pass"})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, repo.user.PasswordHash)
	assert.True(t, repo.revokedAll)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.user.PasswordHash), []byte("new-pass")))
}

func TestAuthServiceChangePasswordWrongOld(t *testing.T) {
	svc, _, _ := newAuthFixture(t, "old-pass")

	err := svc.ChangePassword(context.Background(), 7, models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "new-pass"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestValidateToken(t *testing.T) {
	svc, repo, _ := newAuthFixture(t, "password")
	token, _, err := svc.generateAccessToken(repo.user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), claims.UserID)
	assert.Equal(t, "Professor", claims.ProfileName)
	assert.Equal(t, "7", claims.Subject)

	_, err = svc.ValidateToken(token + "x")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
