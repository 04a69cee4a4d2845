package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/techblog/backend/internal/domain/repository"
)

// ContentRepository removes the blog content owned by an account. It exists so
// account deletion can cascade; the content tables themselves belong to the
// blog modules.
type ContentRepository struct {
	pool *pgxpool.Pool
}

func NewContentRepository(pool *pgxpool.Pool) *ContentRepository {
	return &ContentRepository{pool: pool}
}

// DeleteByAuthor runs the deletes as an ordered sequence of independent
// statements. A crash between them can leave orphaned comments; the caller
// accepts that in exchange for not holding a cross-table transaction.
func (r *ContentRepository) DeleteByAuthor(ctx context.Context, userID string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM blogs WHERE author_id = $1`, userID); err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM comments WHERE user_id = $1`, userID); err != nil {
		return err
	}
	return nil
}

var _ repository.ContentRepository = (*ContentRepository)(nil)
