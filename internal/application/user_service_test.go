package application

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/pkg/helpers"
	"github.com/techblog/backend/pkg/mailer"
)

func newTestService(t *testing.T) (*Service, *memRepo, *capturedMail) {
	t.Helper()
	repo := newMemRepo()
	mail := &capturedMail{}
	jwt := &helpers.JWTManager{Secret: []byte("test-secret"), TTL: time.Hour}
	svc := NewService(repo, jwt, nil, nil, nil, "", mail, "TechBlog", true, 15*time.Minute)
	return svc, repo, mail
}

func registerUser(t *testing.T, svc *Service, email, password string) *entity.User {
	t.Helper()
	u, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Jamie",
		LastName:  "Rivera",
		Email:     email,
		Password:  password,
	})
	require.NoError(t, err)
	return u
}

func lastResetCode(t *testing.T, mail *capturedMail) string {
	t.Helper()
	mail.mu.Lock()
	defer mail.mu.Unlock()
	require.NotEmpty(t, mail.jobs)
	job, ok := mail.jobs[len(mail.jobs)-1].(mailer.EmailJob)
	require.True(t, ok)
	code, ok := job.Data["Code"].(string)
	require.True(t, ok)
	return code
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates active user with default role", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		u := registerUser(t, svc, "jamie@example.com", "secret1")

		assert.Equal(t, entity.RoleUser, u.Role)
		assert.True(t, u.IsActive)
		assert.Empty(t, u.Password, "returned account must not carry the hash")

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.NotEmpty(t, stored.Password)
		assert.NotEqual(t, "secret1", stored.Password)
	})

	t.Run("rejects missing fields", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Register(ctx, RegisterInput{Email: "a@b.co", Password: "secret1"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("rejects malformed email", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "not-an-email", Password: "secret1"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Contains(t, verr.Message, "email")
	})

	t.Run("rejects short password", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "a@b.co", Password: "short"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})

	t.Run("rejects duplicate email", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		registerUser(t, svc, "dupe@example.com", "secret1")
		_, err := svc.Register(ctx, RegisterInput{FirstName: "A", LastName: "B", Email: "dupe@example.com", Password: "secret2"})
		assert.ErrorIs(t, err, ErrEmailExists)
	})
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	registerUser(t, svc, "jamie@example.com", "secret1")

	t.Run("valid credentials", func(t *testing.T) {
		u, err := svc.Authenticate(ctx, "jamie@example.com", "secret1")
		require.NoError(t, err)
		assert.Equal(t, "jamie@example.com", u.Email)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "nobody@example.com", "secret1")
		assert.ErrorIs(t, err, ErrUnknownEmail)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "jamie@example.com", "wrong-password")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("blank input", func(t *testing.T) {
		_, err := svc.Authenticate(ctx, "", "")
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	u := registerUser(t, svc, "jamie@example.com", "secret1")

	got, token, exp, err := svc.Login(ctx, "jamie@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, exp.After(time.Now()))

	claims, err := svc.JWT.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, claims.UserID)
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()

	strp := func(s string) *string { return &s }

	t.Run("applies submitted fields only", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		u := registerUser(t, svc, "jamie@example.com", "secret1")

		got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
			Bio:    strp("writes about databases"),
			GitHub: strp("jamier"),
		})
		require.NoError(t, err)
		assert.Equal(t, "writes about databases", got.Bio)
		assert.Equal(t, "jamier", got.GitHub)
		assert.Equal(t, "Jamie", got.FirstName, "omitted fields stay put")
	})

	t.Run("non-privileged role submission is discarded", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		u := registerUser(t, svc, "jamie@example.com", "secret1")

		got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{
			Bio:  strp("still just a user"),
			Role: strp("admin"),
		})
		require.NoError(t, err, "the rest of the update proceeds")
		assert.Equal(t, entity.RoleUser, got.Role)
		assert.Equal(t, "still just a user", got.Bio)

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, entity.RoleUser, stored.Role)
	})

	t.Run("privileged account may change role", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		u := registerUser(t, svc, "admin@example.com", "secret1")
		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		stored.Role = entity.RoleAdmin
		require.NoError(t, repo.Update(ctx, stored))

		got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Role: strp("superadmin")})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleSuperAdmin, got.Role)
	})

	t.Run("unknown role value is discarded even for admins", func(t *testing.T) {
		svc, repo, _ := newTestService(t)
		u := registerUser(t, svc, "admin@example.com", "secret1")
		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		stored.Role = entity.RoleAdmin
		require.NoError(t, repo.Update(ctx, stored))

		got, err := svc.UpdateProfile(ctx, u.ID, UpdateProfileInput{Role: strp("root")})
		require.NoError(t, err)
		assert.Equal(t, entity.RoleAdmin, got.Role)
	})

	t.Run("unknown user", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		_, err := svc.UpdateProfile(ctx, "missing", UpdateProfileInput{Bio: strp("x")})
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestListPublicUsersCache(t *testing.T) {
	ctx := context.Background()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	svc, _, _ := newTestService(t)
	svc.Redis = rdb

	registerUser(t, svc, "one@example.com", "secret1")

	first, err := svc.ListPublicUsers(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.True(t, mr.Exists("users:public"), "listing populates the cache")

	// A registration invalidates the cache so the next listing is fresh.
	registerUser(t, svc, "two@example.com", "secret1")
	assert.False(t, mr.Exists("users:public"))

	second, err := svc.ListPublicUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, second, 2)

	// With the cache warm, the listing is served from Redis even if the
	// store changed underneath.
	require.NoError(t, svc.Repo.Delete(ctx, first[0].ID))
	third, err := svc.ListPublicUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, third, 2, "cached result until TTL or invalidation")

	mr.FastForward(time.Minute)
	fourth, err := svc.ListPublicUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, fourth, 1)
}

func TestPasswordRecovery(t *testing.T) {
	ctx := context.Background()

	t.Run("request stores hash and mails plaintext code", func(t *testing.T) {
		svc, repo, mail := newTestService(t)
		u := registerUser(t, svc, "jamie@example.com", "secret1")

		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		code := lastResetCode(t, mail)
		assert.Regexp(t, `^\d{6}$`, code)

		stored, err := repo.GetByID(ctx, u.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ResetPasswordCode)
		assert.NotEqual(t, code, *stored.ResetPasswordCode, "store keeps the hash, never the code")
		assert.Equal(t, helpers.HashResetCode(code), *stored.ResetPasswordCode)
	})

	t.Run("unknown email succeeds silently without mail", func(t *testing.T) {
		svc, _, mail := newTestService(t)
		require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
		assert.Empty(t, mail.jobs)
	})

	t.Run("verify does not consume", func(t *testing.T) {
		svc, _, mail := newTestService(t)
		registerUser(t, svc, "jamie@example.com", "secret1")
		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		code := lastResetCode(t, mail)

		require.NoError(t, svc.VerifyResetCode(ctx, "jamie@example.com", code))
		require.NoError(t, svc.VerifyResetCode(ctx, "jamie@example.com", code), "verification is repeatable")
		assert.ErrorIs(t, svc.VerifyResetCode(ctx, "jamie@example.com", "000000"), ErrInvalidOrExpiredCode)
	})

	t.Run("reset replaces password and consumes the code", func(t *testing.T) {
		svc, _, mail := newTestService(t)
		registerUser(t, svc, "jamie@example.com", "secret1")
		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		code := lastResetCode(t, mail)

		require.NoError(t, svc.ResetPassword(ctx, "jamie@example.com", code, "fresh-password"))

		_, err := svc.Authenticate(ctx, "jamie@example.com", "secret1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
		_, err = svc.Authenticate(ctx, "jamie@example.com", "fresh-password")
		assert.NoError(t, err)

		// The code was cleared atomically with the hash swap.
		err = svc.ResetPassword(ctx, "jamie@example.com", code, "another-password")
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
	})

	t.Run("wrong code leaves password untouched", func(t *testing.T) {
		svc, _, _ := newTestService(t)
		registerUser(t, svc, "jamie@example.com", "secret1")
		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))

		err := svc.ResetPassword(ctx, "jamie@example.com", "999999", "fresh-password")
		assert.ErrorIs(t, err, ErrInvalidOrExpiredCode)
		_, err = svc.Authenticate(ctx, "jamie@example.com", "secret1")
		assert.NoError(t, err)
	})

	t.Run("code expires after the window", func(t *testing.T) {
		svc, _, mail := newTestService(t)
		registerUser(t, svc, "jamie@example.com", "secret1")

		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		svc.now = func() time.Time { return base }
		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		code := lastResetCode(t, mail)

		svc.now = func() time.Time { return base.Add(14*time.Minute + 59*time.Second) }
		require.NoError(t, svc.VerifyResetCode(ctx, "jamie@example.com", code))

		svc.now = func() time.Time { return base.Add(15*time.Minute + 1*time.Second) }
		assert.ErrorIs(t, svc.VerifyResetCode(ctx, "jamie@example.com", code), ErrInvalidOrExpiredCode)
		assert.ErrorIs(t, svc.ResetPassword(ctx, "jamie@example.com", code, "fresh-password"), ErrInvalidOrExpiredCode)
	})

	t.Run("new request replaces the previous code", func(t *testing.T) {
		svc, _, mail := newTestService(t)
		registerUser(t, svc, "jamie@example.com", "secret1")

		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		first := lastResetCode(t, mail)
		require.NoError(t, svc.RequestPasswordReset(ctx, "jamie@example.com"))
		second := lastResetCode(t, mail)

		if first == second {
			t.Skip("codes collided, nothing to assert")
		}
		assert.ErrorIs(t, svc.VerifyResetCode(ctx, "jamie@example.com", first), ErrInvalidOrExpiredCode)
		require.NoError(t, svc.VerifyResetCode(ctx, "jamie@example.com", second))
	})
}
