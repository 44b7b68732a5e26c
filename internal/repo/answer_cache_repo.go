package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/xxxsen/tenantrag/internal/model"
	appErr "github.com/xxxsen/tenantrag/internal/pkg/errors"
)

type AnswerCacheRepo struct {
	db *sql.DB
}

func NewAnswerCacheRepo(db *sql.DB) *AnswerCacheRepo {
	return &AnswerCacheRepo{db: db}
}

func (r *AnswerCacheRepo) Get(ctx context.Context, tenantID, question string) (*model.CacheEntry, error) {
	const query = `SELECT tenant_id, question, answer, ctime FROM answer_cache WHERE tenant_id = $1 AND question = $2`
	var item model.CacheEntry
	err := r.db.QueryRowContext(ctx, query, tenantID, question).Scan(&item.TenantID, &item.Question, &item.Answer, &item.Ctime)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErr.ErrNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (r *AnswerCacheRepo) Upsert(ctx context.Context, item *model.CacheEntry) error {
	const query = `
		INSERT INTO answer_cache (tenant_id, question, answer, ctime)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id, question) DO UPDATE SET
			answer = EXCLUDED.answer,
			ctime = EXCLUDED.ctime
	`
	_, err := r.db.ExecContext(ctx, query, item.TenantID, item.Question, item.Answer, item.Ctime)
	return err
}

// Delete removes the entry only if it still carries the given ctime, so a
// concurrent refresh is not lost.
func (r *AnswerCacheRepo) Delete(ctx context.Context, tenantID, question string, ctime int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM answer_cache WHERE tenant_id = $1 AND question = $2 AND ctime = $3`, tenantID, question, ctime)
	return err
}

func (r *AnswerCacheRepo) DeleteBefore(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM answer_cache WHERE ctime < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
