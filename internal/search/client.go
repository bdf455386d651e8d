package search

import (
	"context"
	"fmt"
	"io"

	"github.com/elastic/go-elasticsearch/v9"
)

type Config struct {
	URL      string
	User     string
	Password string
	Index    string
}

// Index keeps product documents in one Elasticsearch index.
type Index struct {
	es    *elasticsearch.Client
	index string
}

func NewClient(cfg Config) (*elasticsearch.Client, error) {
	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.User,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch client: %w", err)
	}
	return client, nil
}

// New connects and makes sure the index exists.
func New(ctx context.Context, cfg Config) (*Index, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	res, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch info: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("elasticsearch info: %s: %s", res.Status(), body)
	}

	idx := &Index{es: client, index: cfg.Index}
	if err := idx.EnsureIndex(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

func NewIndex(client *elasticsearch.Client, index string) *Index {
	return &Index{es: client, index: index}
}
