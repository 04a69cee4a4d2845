package application

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/techblog/backend/internal/domain/entity"
	"github.com/techblog/backend/internal/domain/repository"
)

// memRepo is an in-memory UserRepository with the same semantics the postgres
// implementation provides, including the conditional reset consumption.
type memRepo struct {
	mu   sync.Mutex
	byID map[string]*entity.User
	seq  int
}

func newMemRepo() *memRepo {
	return &memRepo{byID: map[string]*entity.User{}}
}

func (r *memRepo) clone(u *entity.User) *entity.User {
	cp := *u
	if u.ResetPasswordCode != nil {
		c := *u.ResetPasswordCode
		cp.ResetPasswordCode = &c
	}
	if u.ResetPasswordExpiresAt != nil {
		t := *u.ResetPasswordExpiresAt
		cp.ResetPasswordExpiresAt = &t
	}
	return &cp
}

func (r *memRepo) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.byID {
		if other.Email == u.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.seq++
	u.ID = fmt.Sprintf("u%d", r.seq)
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	r.byID[u.ID] = r.clone(u)
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return r.clone(u), nil
}

func (r *memRepo) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.byID {
		if u.Email == email {
			return r.clone(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *memRepo) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now()
	// Update never touches the reset fields; they change only through
	// SetResetCode and ConsumeResetCode.
	cp := r.clone(u)
	cp.ResetPasswordCode = stored.ResetPasswordCode
	cp.ResetPasswordExpiresAt = stored.ResetPasswordExpiresAt
	r.byID[u.ID] = cp
	return nil
}

func (r *memRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *memRepo) List(_ context.Context, f repository.ListFilter) ([]*entity.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	var all []*entity.User
	q := strings.ToLower(f.Search)
	for _, u := range r.byID {
		if q == "" ||
			strings.Contains(strings.ToLower(u.FirstName), q) ||
			strings.Contains(strings.ToLower(u.LastName), q) ||
			strings.Contains(strings.ToLower(u.Email), q) {
			all = append(all, r.clone(u))
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	total := len(all)
	start := (f.Page - 1) * f.Limit
	if start > total {
		start = total
	}
	end := start + f.Limit
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

func (r *memRepo) CountPrivileged(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Role.IsPrivileged() {
			n++
		}
	}
	return n, nil
}

func (r *memRepo) SetResetCode(_ context.Context, id, codeHash string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ResetPasswordCode = &codeHash
	u.ResetPasswordExpiresAt = &expiresAt
	return nil
}

func (r *memRepo) ConsumeResetCode(_ context.Context, id, codeHash, newPasswordHash string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return false, nil
	}
	if u.ResetPasswordCode == nil || u.ResetPasswordExpiresAt == nil {
		return false, nil
	}
	if *u.ResetPasswordCode != codeHash || !u.ResetPasswordExpiresAt.After(now) {
		return false, nil
	}
	u.Password = newPasswordHash
	u.ResetPasswordCode = nil
	u.ResetPasswordExpiresAt = nil
	return true, nil
}

var _ repository.UserRepository = (*memRepo)(nil)

// memContent records cascade deletions.
type memContent struct {
	mu      sync.Mutex
	deleted []string
}

func (c *memContent) DeleteByAuthor(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deleted = append(c.deleted, userID)
	return nil
}

// capturedMail records enqueued jobs instead of publishing them.
type capturedMail struct {
	mu   sync.Mutex
	jobs []any
}

func (m *capturedMail) PublishJSON(_ context.Context, body any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, body)
	return nil
}
