package vectordb

import "context"

// Document is one record's searchable text plus filter metadata.
type Document struct {
	ID       string
	Content  string
	Metadata DocumentMetadata
}

// DocumentMetadata carries the attributes semantic search can filter on.
type DocumentMetadata struct {
	UserID string
	Source string
	Type   string
}

// SearchResult is a document with its similarity to the query.
type SearchResult struct {
	Document
	Similarity float32
}

// SearchFilter restricts a semantic search. UserID is mandatory so one
// user's records never surface for another.
type SearchFilter struct {
	UserID string
	Source string
	Type   string
}

// VectorStore indexes record text for semantic retrieval.
type VectorStore interface {
	AddDocuments(ctx context.Context, docs []Document) error
	Search(ctx context.Context, query string, limit int, filter *SearchFilter) ([]SearchResult, error)
	Delete(ctx context.Context, id string) error
	Persist(ctx context.Context, dir string) error
	Load(ctx context.Context, dir string) error
	Count() int
}
