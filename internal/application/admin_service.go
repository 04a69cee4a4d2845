package application

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/sirupsen/logrus"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/internal/domain/repository"
	"github.com/techblog/backend/pkg/helpers"
)

var (
	ErrSuperAdminImmutable = errors.New("cannot delete super admin")
	ErrAdminExists         = errors.New("admin already exists")
)

// AdminService implements the role-gated account management surface.
type AdminService struct {
	Repo         repository.UserRepository
	Content      repository.ContentRepository
	Logger       *logrus.Logger
	ES           *elasticsearch.Client
	ESUsersIndex string
}

func NewAdminService(repo repository.UserRepository, content repository.ContentRepository, logger *logrus.Logger, es *elasticsearch.Client, esUsersIndex string) *AdminService {
	return &AdminService{Repo: repo, Content: content, Logger: logger, ES: es, ESUsersIndex: esUsersIndex}
}

// Pagination describes the page of a listing result.
type Pagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalUsers  int  `json:"totalUsers"`
	HasNext     bool `json:"hasNext"`
	HasPrev     bool `json:"hasPrev"`
}

// ListUsers pages through accounts, optionally narrowed by a name/email search.
func (s *AdminService) ListUsers(ctx context.Context, f repository.ListFilter) ([]PublicUser, Pagination, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	users, total, err := s.Repo.List(ctx, f)
	if err != nil {
		return nil, Pagination{}, err
	}
	out := make([]PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, ToPublic(u))
	}
	totalPages := (total + f.Limit - 1) / f.Limit
	p := Pagination{
		CurrentPage: f.Page,
		TotalPages:  totalPages,
		TotalUsers:  total,
		HasNext:     f.Page < totalPages,
		HasPrev:     f.Page > 1,
	}
	return out, p, nil
}

// SearchUsers queries the Elasticsearch index across names and email. When no
// index is configured it falls back to the store's ILIKE search.
func (s *AdminService) SearchUsers(ctx context.Context, q string, size int) ([]map[string]any, error) {
	if size <= 0 || size > 50 {
		size = 10
	}
	if s.ES == nil || s.ESUsersIndex == "" {
		users, _, err := s.Repo.List(ctx, repository.ListFilter{Search: q, Page: 1, Limit: size})
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(users))
		for _, u := range users {
			out = append(out, map[string]any{
				"id":         u.ID,
				"first_name": u.FirstName,
				"last_name":  u.LastName,
				"email":      u.Email,
				"role":       string(u.Role),
				"is_active":  u.IsActive,
			})
		}
		return out, nil
	}

	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "first_name", "last_name"},
			},
		},
		"size": size,
	}
	b, _ := json.Marshal(query)

	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	res, err := s.ES.Search(s.ES.Search.WithContext(c), s.ES.Search.WithIndex(s.ESUsersIndex), s.ES.Search.WithBody(strings.NewReader(string(b))))
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID     string         `json:"_id"`
				Source map[string]any `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, h.Source)
	}
	return out, nil
}

// UpdateRole sets an arbitrary account's role; unknown values are rejected.
func (s *AdminService) UpdateRole(ctx context.Context, userID string, role string) (*entity.User, error) {
	r := entity.Role(role)
	if !r.Valid() {
		return nil, validationErr("invalid role")
	}
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u.Role = r
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ToggleActive flips an account's active flag.
func (s *AdminService) ToggleActive(ctx context.Context, userID string) (*entity.User, error) {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u.IsActive = !u.IsActive
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes an account and its owned content. Superadmin accounts can
// never be deleted. The content and account deletes run as an ordered sequence
// of independent statements; a crash in between can orphan content.
func (s *AdminService) DeleteUser(ctx context.Context, userID string) error {
	u, err := s.Repo.GetByID(ctx, userID)
	if err != nil {
		return ErrUserNotFound
	}
	if u.Role == entity.RoleSuperAdmin {
		return ErrSuperAdminImmutable
	}
	if s.Content != nil {
		if err := s.Content.DeleteByAuthor(ctx, userID); err != nil {
			return err
		}
	}
	if err := s.Repo.Delete(ctx, userID); err != nil {
		return err
	}
	s.deindexUser(ctx, userID)
	return nil
}

// InitializeAdmin creates the first superadmin. It is guarded by an existence
// check so repeated calls cannot mint extra privileged accounts.
func (s *AdminService) InitializeAdmin(ctx context.Context, email, password string) (*entity.User, error) {
	n, err := s.Repo.CountPrivileged(ctx)
	if err != nil {
		return nil, err
	}
	if n > 0 {
		return nil, ErrAdminExists
	}
	hash, err := helpers.HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &entity.User{
		FirstName: "Super",
		LastName:  "Admin",
		Email:     email,
		Password:  hash,
		Role:      entity.RoleSuperAdmin,
		IsActive:  true,
	}
	if err := s.Repo.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailExists
		}
		return nil, err
	}
	return u, nil
}

// PromoteToAdmin promotes an existing account to an active admin. Development
// helper carried over from the original surface.
func (s *AdminService) PromoteToAdmin(ctx context.Context, email string) (*entity.User, error) {
	if email == "" {
		return nil, validationErr("email is required")
	}
	u, err := s.Repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, ErrUserNotFound
	}
	u.Role = entity.RoleAdmin
	u.IsActive = true
	if err := s.Repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *AdminService) deindexUser(ctx context.Context, id string) {
	if s.ES == nil || s.ESUsersIndex == "" {
		return
	}
	req := esapi.DeleteRequest{Index: s.ESUsersIndex, DocumentID: id}
	c, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	res, err := req.Do(c, s.ES)
	if err != nil {
		if s.Logger != nil {
			s.Logger.WithError(err).WithField("user_id", id).Warn("es delete failed")
		}
		return
	}
	_ = res.Body.Close()
}
