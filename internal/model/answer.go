package model

type CacheEntry struct {
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Ctime    int64  `json:"ctime"`
}

type HistoryRecord struct {
	ID       int64  `json:"id"`
	TenantID string `json:"tenant_id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Ctime    int64  `json:"ctime"`
}
