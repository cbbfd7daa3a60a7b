package model

import "time"

// Memory is a persistent per-conversation record. ID is assigned by the store
// on insert; (ChatID, UserID, Timestamp) is the natural key, and a second
// store with the same triple replaces the prior record.
type Memory struct {
	ID        int64
	ChatID    string
	UserID    string
	Timestamp time.Time
	Content   string
	Embedding []float32 // nil when the embedding call failed or was skipped
	Metadata  string    // opaque, empty when absent
}

// ScoredMemory pairs a memory with its similarity score against a query
// embedding.
type ScoredMemory struct {
	Memory *Memory
	Score  float64
}
