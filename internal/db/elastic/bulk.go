package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

type bulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  *struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// BulkIndex upserts the given trials in one request. A trial keeps its
// identifier as the document id, so re-ingesting is idempotent.
func (c *Client) BulkIndex(ctx context.Context, trials []trial.Trial) ([]db.BulkFailure, error) {
	if len(trials) == 0 {
		return nil, nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, t := range trials {
		action := m{"index": m{"_index": c.index, "_id": t.NCTID}}
		if err := enc.Encode(action); err != nil {
			return nil, &db.Error{Op: db.OpBulk, Err: err}
		}
		if err := enc.Encode(t); err != nil {
			return nil, &db.Error{Op: db.OpBulk, Err: fmt.Errorf("%s: %w", t.NCTID, err)}
		}
	}

	var resp bulkResponse
	if err := c.doNDJSON(ctx, "/_bulk", buf.Bytes(), &resp); err != nil {
		return nil, &db.Error{Op: db.OpBulk, Err: err}
	}
	if !resp.Errors {
		return nil, nil
	}

	var failures []db.BulkFailure
	for _, item := range resp.Items {
		if item.Index.Error == nil {
			continue
		}
		failures = append(failures, db.BulkFailure{
			NCTID:  item.Index.ID,
			Reason: fmt.Sprintf("%s: %s", item.Index.Error.Type, item.Index.Error.Reason),
		})
	}
	return failures, nil
}
