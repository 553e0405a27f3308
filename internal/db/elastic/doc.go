package elastic

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/trialgrid/trialsearch/internal/db"
	"github.com/trialgrid/trialsearch/internal/domain/trial"
)

type getResponse struct {
	Found  bool            `json:"found"`
	Source json.RawMessage `json:"_source"`
}

// GetTrial fetches one document by identifier.
// Returns db.ErrDocNotFound when the identifier is unknown.
func (c *Client) GetTrial(ctx context.Context, nctID string) (trial.Trial, error) {
	var resp getResponse
	err := c.do(ctx, http.MethodGet, "/"+c.index+"/_doc/"+nctID, nil, &resp)
	if err != nil {
		if isNotFound(err) {
			return trial.Trial{}, db.ErrDocNotFound
		}
		return trial.Trial{}, &db.Error{Op: db.OpGetDoc, Err: err}
	}
	if !resp.Found {
		return trial.Trial{}, db.ErrDocNotFound
	}

	var t trial.Trial
	if err := json.Unmarshal(resp.Source, &t); err != nil {
		return trial.Trial{}, &db.Error{Op: db.OpGetDoc, Err: err}
	}
	return t, nil
}
