// Package search mirrors approved posts into Elasticsearch for full-text lookups.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	es8 "github.com/elastic/go-elasticsearch/v8"

	"github.com/devnovate/blog/models"
)

// Indexer keeps a search index of publicly visible posts.
type Indexer interface {
	Index(ctx context.Context, post *models.Post) error
	Remove(ctx context.Context, id string) error
	// Search returns ids of matching posts, best match first.
	Search(ctx context.Context, query string, limit int) ([]string, error)
}

type ES struct {
	Client    *es8.Client
	IndexName string
}

func New(esURL, index string) (*ES, error) {
	es, err := es8.NewClient(es8.Config{Addresses: []string{esURL}, Transport: &http.Transport{}})
	if err != nil {
		return nil, err
	}
	return &ES{Client: es, IndexName: index}, nil
}

// EnsureIndex creates the index with a simple mapping; an existing index is left alone.
func (e *ES) EnsureIndex(ctx context.Context) error {
	mapping := `{
	  "mappings": {
	    "properties": {
	      "title":    {"type":"text"},
	      "content":  {"type":"text"},
	      "tags":     {"type":"keyword"},
	      "category": {"type":"keyword"}
	    }
	  }
	}`
	res, err := e.Client.Indices.Create(e.IndexName,
		e.Client.Indices.Create.WithContext(ctx),
		e.Client.Indices.Create.WithBody(bytes.NewBufferString(mapping)),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	// 400 resource_already_exists_exception is fine
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("create index %s: %s", e.IndexName, res.Status())
	}
	return nil
}

type document struct {
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Tags     []string `json:"tags"`
	Category string   `json:"category"`
}

func (e *ES) Index(ctx context.Context, post *models.Post) error {
	b, err := json.Marshal(document{Title: post.Title, Content: post.Content, Tags: post.Tags, Category: post.Category})
	if err != nil {
		return err
	}
	res, err := e.Client.Index(e.IndexName, bytes.NewReader(b),
		e.Client.Index.WithContext(ctx),
		e.Client.Index.WithDocumentID(post.ID),
	)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	_, _ = io.Copy(io.Discard, res.Body)
	if res.IsError() {
		return fmt.Errorf("index post %s: %s", post.ID, res.Status())
	}
	return nil
}

func (e *ES) Remove(ctx context.Context, id string) error {
	res, err := e.Client.Delete(e.IndexName, id, e.Client.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("remove post %s: %s", id, res.Status())
	}
	return nil
}

func (e *ES) Search(ctx context.Context, query string, limit int) ([]string, error) {
	body := map[string]any{
		"_source": false,
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"title^2", "content", "tags"},
			},
		},
	}
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	res, err := e.Client.Search(
		e.Client.Search.WithContext(ctx),
		e.Client.Search.WithIndex(e.IndexName),
		e.Client.Search.WithBody(bytes.NewReader(b)),
		e.Client.Search.WithSize(limit),
	)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search %s: %s", e.IndexName, res.Status())
	}
	return decodeHitIDs(res.Body)
}

func decodeHitIDs(r io.Reader) ([]string, error) {
	var out struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	ids := make([]string, 0, len(out.Hits.Hits))
	for _, h := range out.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, nil
}
