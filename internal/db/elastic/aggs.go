package elastic

import (
	"context"
	"net/http"
	"strings"

	"github.com/trialgrid/trialsearch/internal/db"
)

// facetSize caps the number of distinct values returned per field.
const facetSize = 100

type bucketList struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
	} `json:"buckets"`
}

type aggsResponse struct {
	Aggregations map[string]struct {
		bucketList
		Values *bucketList `json:"values"`
	} `json:"aggregations"`
}

// Facets returns the distinct values and counts of each requested field.
func (c *Client) Facets(ctx context.Context, fields []string) (map[string][]db.Bucket, error) {
	body := m{
		"size": 0,
		"aggs": buildFacets(fields, facetSize),
	}
	var resp aggsResponse
	if err := c.do(ctx, http.MethodPost, "/"+c.index+"/_search", body, &resp); err != nil {
		return nil, &db.Error{Op: db.OpAggs, Err: err}
	}

	out := make(map[string][]db.Bucket, len(fields))
	for _, f := range fields {
		agg, ok := resp.Aggregations[f]
		if !ok {
			out[f] = nil
			continue
		}
		buckets := agg.Buckets
		// nested aggregations nest the terms one level deeper
		if strings.Contains(f, ".") && agg.Values != nil {
			buckets = agg.Values.Buckets
		}
		list := make([]db.Bucket, 0, len(buckets))
		for _, b := range buckets {
			list = append(list, db.Bucket{Value: b.Key, Count: b.DocCount})
		}
		out[f] = list
	}
	return out, nil
}
