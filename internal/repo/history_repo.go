package repo

import (
	"context"
	"database/sql"
	"sync"

	"github.com/didi/gendry/builder"

	"github.com/xxxsen/tenantrag/internal/model"
	"github.com/xxxsen/tenantrag/internal/pkg/dbutil"
)

const createChatHistoryTable = `
	CREATE TABLE IF NOT EXISTS chat_history (
		id BIGSERIAL PRIMARY KEY,
		tenant_id TEXT NOT NULL,
		question TEXT NOT NULL,
		answer TEXT NOT NULL,
		ctime BIGINT NOT NULL
	)`

const createChatHistoryIndex = `CREATE INDEX IF NOT EXISTS idx_chat_history_tenant ON chat_history (tenant_id, id)`

// HistoryRepo owns chat_history and creates it on first use.
type HistoryRepo struct {
	db    *sql.DB
	mu    sync.Mutex
	ready bool
}

func NewHistoryRepo(db *sql.DB) *HistoryRepo {
	return &HistoryRepo{db: db}
}

func (r *HistoryRepo) ensureTable(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ready {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, createChatHistoryTable); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, createChatHistoryIndex); err != nil {
		return err
	}
	r.ready = true
	return nil
}

func (r *HistoryRepo) Insert(ctx context.Context, item *model.HistoryRecord) error {
	if err := r.ensureTable(ctx); err != nil {
		return err
	}
	const query = `INSERT INTO chat_history (tenant_id, question, answer, ctime) VALUES ($1, $2, $3, $4) RETURNING id`
	return r.db.QueryRowContext(ctx, query, item.TenantID, item.Question, item.Answer, item.Ctime).Scan(&item.ID)
}

// List returns the newest records of one tenant first.
func (r *HistoryRepo) List(ctx context.Context, tenantID string, limit, offset int) ([]model.HistoryRecord, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	where := map[string]interface{}{"tenant_id": tenantID, "_orderby": "id desc"}
	if limit > 0 {
		if offset < 0 {
			offset = 0
		}
		where["_limit"] = []uint{uint(offset), uint(limit)}
	}
	sqlStr, args, err := builder.BuildSelect("chat_history", where, []string{"id", "tenant_id", "question", "answer", "ctime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := r.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.HistoryRecord, 0)
	for rows.Next() {
		var item model.HistoryRecord
		if err := rows.Scan(&item.ID, &item.TenantID, &item.Question, &item.Answer, &item.Ctime); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
