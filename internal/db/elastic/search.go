package elastic

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/query"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID        string              `json:"_id"`
			Score     float64             `json:"_score"`
			Source    json.RawMessage     `json:"_source"`
			Highlight map[string][]string `json:"highlight"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a query spec and returns up to size hits by descending score.
func (c *Client) Search(ctx context.Context, spec query.Spec, size int, exclude []string) (*db.Result, error) {
	body := m{
		"query": buildQuery(spec, exclude),
		"size":  size,
	}
	if h := buildHighlight(spec.Highlight()); h != nil {
		body["highlight"] = h
	}
	return c.search(ctx, db.OpSearch, body)
}

// SimilarTo returns documents resembling the given one by content.
func (c *Client) SimilarTo(ctx context.Context, nctID string, size int, exclude []string) (*db.Result, error) {
	body := m{
		"query": buildMLT(c.index, nctID, exclude),
		"size":  size,
	}
	return c.search(ctx, db.OpMLT, body)
}

func (c *Client) search(ctx context.Context, op string, body m) (*db.Result, error) {
	var resp searchResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.index+"/_search", body, &resp); err != nil {
		return nil, &db.Error{Op: op, Err: err}
	}

	result := &db.Result{
		Total: resp.Hits.Total.Value,
		Hits:  make([]db.Hit, 0, len(resp.Hits.Hits)),
	}
	for _, h := range resp.Hits.Hits {
		var t trial.Trial
		if err := json.Unmarshal(h.Source, &t); err != nil {
			return nil, &db.Error{Op: op, Err: err}
		}
		if t.NCTID == "" {
			t.NCTID = h.ID
		}
		result.Hits = append(result.Hits, db.Hit{
			Trial:      t,
			Score:      h.Score,
			Highlights: h.Highlight,
		})
	}
	return result, nil
}
