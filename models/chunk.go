package models

// Chunk is one retrievable passage of a source document. Chunks are written once by
// ingestion and are read-only afterwards.
type Chunk struct {
	ChunkID string `json:"chunk_id"`
	Source  string `json:"source"`
	Order   int    `json:"order"`
	Text    string `json:"text"`
}

// Document is a corpus file awaiting extraction. Name is the stable identifier used in
// reports and chunk provenance.
type Document struct {
	Name string
	Path string
}
