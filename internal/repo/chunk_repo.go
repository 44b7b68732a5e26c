package repo

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pgvector/pgvector-go"

	"github.com/xxxsen/tenantrag/internal/model"
)

type ChunkRepo struct {
	db *sql.DB
}

func NewChunkRepo(db *sql.DB) *ChunkRepo {
	return &ChunkRepo{db: db}
}

// ExistingSources reports which of the given keys already have chunks.
func (r *ChunkRepo) ExistingSources(ctx context.Context, keys []model.SourceKey) (map[model.SourceKey]bool, error) {
	res := make(map[model.SourceKey]bool, len(keys))
	if len(keys) == 0 {
		return res, nil
	}
	tuples := make([]string, 0, len(keys))
	args := make([]interface{}, 0, len(keys)*2)
	for _, key := range keys {
		tuples = append(tuples, "(?, ?)")
		args = append(args, key.TenantID, key.SourceID)
	}
	query := "SELECT tenant_id, source_id FROM rag_chunks WHERE (tenant_id, source_id) IN (" +
		strings.Join(tuples, ", ") + ") GROUP BY tenant_id, source_id"
	rows, err := r.db.QueryContext(ctx, sqlx.Rebind(sqlx.DOLLAR, query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key model.SourceKey
		if err := rows.Scan(&key.TenantID, &key.SourceID); err != nil {
			return nil, err
		}
		res[key] = true
	}
	return res, rows.Err()
}

// InsertBatch writes all chunks in one transaction and returns how many rows
// were new. Rows colliding on (tenant_id, source_id, chunk_index) are ignored.
func (r *ChunkRepo) InsertBatch(ctx context.Context, chunks []*model.Chunk) (int, error) {
	if len(chunks) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		_ = tx.Rollback()
	}()
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO rag_chunks (tenant_id, source_id, chunk_index, content, embedding, ctime)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (tenant_id, source_id, chunk_index) DO NOTHING
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	inserted := 0
	for _, c := range chunks {
		res, err := stmt.ExecContext(ctx, c.TenantID, c.SourceID, c.ChunkIndex, c.Content, pgvector.NewVector(c.Embedding), c.Ctime)
		if err != nil {
			return 0, fmt.Errorf("insert chunk %s/%d: %w", c.SourceID, c.ChunkIndex, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		inserted += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return inserted, nil
}

// Search ranks one tenant's chunks by cosine similarity.
func (r *ChunkRepo) Search(ctx context.Context, tenantID string, vector []float32, topK int, threshold float64) ([]*model.ScoredChunk, error) {
	const query = `
		SELECT id, tenant_id, source_id, chunk_index, content, ctime, score
		FROM (
			SELECT id, tenant_id, source_id, chunk_index, content, ctime,
				1 - (embedding <=> $2) AS score
			FROM rag_chunks
			WHERE tenant_id = $1
		) ranked
		WHERE score >= $3
		ORDER BY score DESC, chunk_index ASC, source_id ASC
		LIMIT $4
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, pgvector.NewVector(vector), threshold, topK)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	results := make([]*model.ScoredChunk, 0, topK)
	for rows.Next() {
		var (
			c     model.Chunk
			score float64
		)
		if err := rows.Scan(&c.ID, &c.TenantID, &c.SourceID, &c.ChunkIndex, &c.Content, &c.Ctime, &score); err != nil {
			return nil, err
		}
		results = append(results, &model.ScoredChunk{Chunk: &c, Score: float32(score)})
	}
	return results, rows.Err()
}

func (r *ChunkRepo) CountByTenant(ctx context.Context, tenantID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM rag_chunks WHERE tenant_id = $1`, tenantID).Scan(&count)
	return count, err
}
