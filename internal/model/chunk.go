package model

// Chunk is an embedded slice of source text owned by exactly one tenant.
type Chunk struct {
	ID         int64     `json:"id"`
	TenantID   string    `json:"tenant_id"`
	SourceID   string    `json:"source_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"-"`
	Ctime      int64     `json:"ctime"`
}

type ScoredChunk struct {
	Chunk *Chunk  `json:"chunk"`
	Score float32 `json:"score"`
}

// EmbeddingCache is a persisted vector keyed by model, task type and the
// sha256 of the embedded text. It is shared across tenants.
type EmbeddingCache struct {
	ModelName   string    `json:"model_name"`
	TaskType    string    `json:"task_type"`
	ContentHash string    `json:"content_hash"`
	Embedding   []float32 `json:"-"`
	Ctime       int64     `json:"ctime"`
}
