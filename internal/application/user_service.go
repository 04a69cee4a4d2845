package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/internal/domain/repository"
	"github.com/techblog/backend/pkg/helpers"
	"github.com/techblog/backend/pkg/mailer"
	tpl "github.com/techblog/backend/pkg/mailer/templates"
)

var (
	// ErrUnknownEmail and ErrInvalidCredentials are kept distinct because the
	// login responses have always differed for the two cases. Unifying them is
	// an open product question, not a code decision.
	ErrUnknownEmail         = errors.New("incorrect email or password")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrEmailExists          = errors.New("email already exists")
	ErrUserNotFound         = errors.New("user not found")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
)

// ValidationError carries a field-level message for malformed input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validationErr(format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

const minPasswordLen = 6

// MailEnqueuer hands an email job to the outbound-mail collaborator.
// *helpers.RabbitPublisher satisfies it.
type MailEnqueuer interface {
	PublishJSON(ctx context.Context, body any) error
}

const publicUsersCacheKey = "users:public"

const publicUsersCacheTTL = 30 * time.Second

// Service implements registration, credential verification, session issuance,
// the self-service profile path, and the password recovery protocol.
type Service struct {
	Repo         repository.UserRepository
	JWT          *helpers.JWTManager
	Redis        *redis.Client
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
	Mail         MailEnqueuer

	AppName      string
	MailEnabled  bool
	ResetCodeTTL time.Duration

	now func() time.Time
}

func NewService(repo repository.UserRepository, jwt *helpers.JWTManager, rdb *redis.Client, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string, mail MailEnqueuer, appName string, mailEnabled bool, resetTTL time.Duration) *Service {
	if resetTTL <= 0 {
		resetTTL = 15 * time.Minute
	}
	return &Service{
		Repo:         repo,
		JWT:          jwt,
		Redis:        rdb,
		Logger:       logger,
		ES:           es,
		ESUsersIndex: esUsersIndex,
		Mail:         mail,
		AppName:      appName,
		MailEnabled:  mailEnabled,
		ResetCodeTTL: resetTTL,
		now:          time.Now,
	}
}

// RegisterInput carries the registration payload.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// Register creates a new account with role user and isActive true. The
// returned account never exposes the stored hash.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*entity.User, error) {
	if strings.TrimSpace(in.FirstName) == "" || strings.TrimSpace(in.LastName) == "" || in.Email == "" || in.Password == "" {
		return nil, validationErr("all fields are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return nil, validationErr("invalid email")
	}
	if len(in.Password) < minPasswordLen {
		return nil, validationErr("password must be at least %d characters", minPasswordLen)
	}

	if _, err := s.Repo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrEmailExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := helpers.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Password:  hash,
		Role:      entity.RoleUser,
		IsActive:  true,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		// The unique index is the final arbiter under concurrent registration.
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	s.invalidatePublicCache(ctx)
	_ = s.indexUser(ctx, u)

	out := *u
	out.Password = ""
	return &out, nil
}

// Authenticate verifies credentials and returns the account on success.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*entity.User, error) {
	if email == "" || password == "" {
		return nil, validationErr("all fields are required")
	}
	if !emailPattern.MatchString(email) {
		return nil, validationErr("invalid email")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUnknownEmail
		}
		return nil, err
	}
	if !helpers.CompareHashAndPassword(u.Password, password) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// Login authenticates and issues the signed session token.
func (s *Service) Login(ctx context.Context, email, password string) (*entity.User, string, time.Time, error) {
	u, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	token, exp, err := s.JWT.Generate(u.ID)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Error("generate session token failed")
		}
		return nil, "", time.Time{}, err
	}
	return u, token, exp, nil
}

// GetProfile resolves an account by id.
func (s *Service) GetProfile(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// UpdateProfileInput uses pointers so an omitted field is distinguishable from
// an explicitly cleared one.
type UpdateProfileInput struct {
	FirstName  *string
	LastName   *string
	Bio        *string
	Occupation *string
	PhotoURL   *string
	Instagram  *string
	LinkedIn   *string
	GitHub     *string
	Facebook   *string
	Role       *string
}

// UpdateProfile applies the owner's profile changes. A submitted role is
// applied only when the account's current role is already privileged and the
// value is in the enum; otherwise it is silently discarded and the rest of the
// update proceeds.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in UpdateProfileInput) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	if in.FirstName != nil {
		u.FirstName = *in.FirstName
	}
	if in.LastName != nil {
		u.LastName = *in.LastName
	}
	if in.Bio != nil {
		u.Bio = *in.Bio
	}
	if in.Occupation != nil {
		u.Occupation = *in.Occupation
	}
	if in.PhotoURL != nil {
		u.PhotoURL = *in.PhotoURL
	}
	if in.Instagram != nil {
		u.Instagram = *in.Instagram
	}
	if in.LinkedIn != nil {
		u.LinkedIn = *in.LinkedIn
	}
	if in.GitHub != nil {
		u.GitHub = *in.GitHub
	}
	if in.Facebook != nil {
		u.Facebook = *in.Facebook
	}
	if in.Role != nil {
		if r := entity.Role(*in.Role); r.Valid() && u.Role.IsPrivileged() {
			u.Role = r
		}
	}

	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.invalidatePublicCache(ctx)
	_ = s.indexUser(ctx, u)
	return u, nil
}

// PublicUser is the account summary exposed by listings and login responses.
// The hash and reset fields never leave the store boundary.
type PublicUser struct {
	ID         string    `json:"_id"`
	FirstName  string    `json:"firstName"`
	LastName   string    `json:"lastName"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	IsActive   bool      `json:"isActive"`
	Bio        string    `json:"bio"`
	Occupation string    `json:"occupation"`
	PhotoURL   string    `json:"photoUrl"`
	Instagram  string    `json:"instagram"`
	LinkedIn   string    `json:"linkedin"`
	GitHub     string    `json:"github"`
	Facebook   string    `json:"facebook"`
	CreatedAt  time.Time `json:"createdAt"`
}

// ToPublic strips the credential fields from an account.
func ToPublic(u *entity.User) PublicUser {
	return PublicUser{
		ID:         u.ID,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		Role:       string(u.Role),
		IsActive:   u.IsActive,
		Bio:        u.Bio,
		Occupation: u.Occupation,
		PhotoURL:   u.PhotoURL,
		Instagram:  u.Instagram,
		LinkedIn:   u.LinkedIn,
		GitHub:     u.GitHub,
		Facebook:   u.Facebook,
		CreatedAt:  u.CreatedAt,
	}
}

// ListPublicUsers returns every account summary, served from the Redis cache
// when fresh.
func (s *Service) ListPublicUsers(ctx context.Context) ([]PublicUser, error) {
	if s.Redis != nil {
		var cached []PublicUser
		if ok, err := helpers.RedisGetJSON(ctx, s.Redis, publicUsersCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	users, _, err := s.Repo.List(ctx, repository.ListFilter{Page: 1, Limit: 1000})
	if err != nil {
		return nil, err
	}
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, ToPublic(u))
	}
	if s.Redis != nil {
		if err := helpers.RedisSetJSON(ctx, s.Redis, publicUsersCacheKey, out, publicUsersCacheTTL); err != nil && s.Logger != nil {
			s.Logger.WithError(err).Warn("public users cache write failed")
		}
	}
	return out, nil
}

func (s *Service) invalidatePublicCache(ctx context.Context) {
	if s.Redis == nil {
		return
	}
	if err := helpers.RedisDel(ctx, s.Redis, publicUsersCacheKey); err != nil && s.Logger != nil {
		s.Logger.WithError(err).Warn("public users cache invalidation failed")
	}
}

// RequestPasswordReset stores a hashed one-time code with a short expiry and
// dispatches the plaintext code by mail. It never reveals whether the email
// matched an account, and mail failures never fail the request.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	if email == "" {
		return validationErr("email is required")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}

	code, err := helpers.GenResetCode()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.ResetCodeTTL)
	if err := s.Repo.SetResetCode(ctx, u.ID, helpers.HashResetCode(code), expiresAt); err != nil {
		return err
	}

	s.sendResetCode(ctx, u, code)
	return nil
}

func (s *Service) sendResetCode(ctx context.Context, u *entity.User, code string) {
	if s.Mail == nil || !s.MailEnabled {
		return
	}
	data := tpl.ResetCodeData{
		AppName:       s.AppName,
		FirstName:     u.FirstName,
		Code:          code,
		ExpiryMinutes: int(s.ResetCodeTTL.Minutes()),
	}
	job := mailer.EmailJob{To: u.Email, Template: tpl.ResetCode, Data: data.ToMap()}
	if err := s.Mail.PublishJSON(ctx, job); err != nil && s.Logger != nil {
		s.Logger.WithError(err).WithField("user_id", u.ID).Warn("reset code mail enqueue failed")
	}
}

// VerifyResetCode checks a pending code without consuming it.
func (s *Service) VerifyResetCode(ctx context.Context, email, code string) error {
	if email == "" || code == "" {
		return validationErr("email and code are required")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}
	if !u.HasPendingReset(s.now()) {
		return ErrInvalidOrExpiredCode
	}
	if helpers.HashResetCode(code) != *u.ResetPasswordCode {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// ResetPassword consumes a pending code: the password hash replacement and the
// clearing of both reset fields land in one atomic store update, so a
// concurrent second attempt observes the cleared state and fails.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {
	if email == "" || code == "" || newPassword == "" {
		return validationErr("email, code and new password are required")
	}
	if len(newPassword) < minPasswordLen {
		return validationErr("password must be at least %d characters", minPasswordLen)
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidOrExpiredCode
		}
		return err
	}

	hash, err := helpers.HashPassword(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.Repo.ConsumeResetCode(ctx, u.ID, helpers.HashResetCode(code), hash, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvalidOrExpiredCode
	}
	return nil
}

// indexUser mirrors the account summary into the Elasticsearch index used by
// the admin search. Failures are logged, never surfaced.
func (s *Service) indexUser(ctx context.Context, u *entity.User) error {
	if s.ES == nil || s.ESUsersIndex == "" {
		return nil
	}
	doc := map[string]any{
		"id":         u.ID,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"email":      u.Email,
		"role":       string(u.Role),
		"is_active":  u.IsActive,
		"created_at": u.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": u.UpdatedAt.Format(time.RFC3339Nano),
	}
	b, _ := json.Marshal(doc)
	req := esapi.IndexRequest{Index: s.ESUsersIndex, DocumentID: u.ID, Body: strings.NewReader(string(b)), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", u.ID).Warn("es index failed")
		}
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && s.Logger != nil {
		s.Logger.WithField("status", res.Status()).WithField("user_id", u.ID).Warn("es index response error")
	}
	return nil
}
