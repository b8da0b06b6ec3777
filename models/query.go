package models

import "time"

// Answer sources reported alongside every response.
const (
	SourceCache       = "cache"
	SourceUnavailable = "unavailable"
	SourceEmbedError  = "embed_error"
)

// Generation is the outcome of running the generator chain. Tier names the
// generator that produced Answer; Failed is set when every tier failed and Answer
// holds displayable error text.
type Generation struct {
	Answer string
	Tier   string
	Failed bool
}

// QueryResult is the full outcome of answering a question.
type QueryResult struct {
	Question  string        `json:"question"`
	Answer    string        `json:"answer"`
	Source    string        `json:"source"`
	Cached    bool          `json:"cached"`
	Committed bool          `json:"committed"`
	Chunks    int           `json:"chunks"`
	Duration  time.Duration `json:"duration"`
}

// QueryLog is the persisted form of a QueryResult.
type QueryLog struct {
	RequestID  string    `bson:"request_id,omitempty" json:"request_id,omitempty"`
	Question   string    `bson:"question" json:"question"`
	Answer     string    `bson:"answer" json:"answer"`
	Source     string    `bson:"source" json:"source"`
	Cached     bool      `bson:"cached" json:"cached"`
	Committed  bool      `bson:"committed" json:"committed"`
	Chunks     int       `bson:"chunks" json:"chunks"`
	DurationMS int64     `bson:"duration_ms" json:"duration_ms"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}
