package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/oddsdesk/oddsdesk/internal/domain"
)

// ListDisputes returns open and voting oracle disputes.
func (c *Client) ListDisputes(ctx context.Context, opts domain.ListOpts) ([]domain.Dispute, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/oracle/disputes", listQuery(opts), nil)
	if err != nil {
		return nil, fmt.Errorf("engine: list disputes: %w", err)
	}

	var raw []apiDispute
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("engine: decode disputes: %w", err)
	}

	disputes := make([]domain.Dispute, 0, len(raw))
	for _, d := range raw {
		disputes = append(disputes, d.toDomain())
	}
	return disputes, nil
}

// GetVote returns the recorded vote for one voter on one disputed question.
// Returns domain.ErrNotFound if the voter has not voted.
func (c *Client) GetVote(ctx context.Context, questionID, voter string) (domain.Vote, error) {
	path := "/api/oracle/questions/" + url.PathEscape(questionID) + "/vote/" + url.PathEscape(voter)

	body, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return domain.Vote{}, fmt.Errorf("engine: get vote %s/%s: %w", questionID, voter, err)
	}

	var raw apiVote
	if err := json.Unmarshal(body, &raw); err != nil {
		return domain.Vote{}, fmt.Errorf("engine: decode vote: %w", err)
	}
	return raw.toDomain(), nil
}
