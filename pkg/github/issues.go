package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// User is a partial GitHub user document.
type User struct {
	Login string `json:"login"`
}

// PullRequestLink marks an issue document as a pull request. GitHub attaches
// it only to items that are pull requests.
type PullRequestLink struct {
	URL string `json:"url"`
}

// Issue is a partial GitHub issue document. The issues endpoint serves both
// plain issues and pull requests.
type Issue struct {
	Number      int              `json:"number"`
	Title       string           `json:"title"`
	Body        string           `json:"body"`
	User        User             `json:"user"`
	ClosedAt    *time.Time       `json:"closed_at"`
	PullRequest *PullRequestLink `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the document describes a pull request.
func (i *Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// Issue fetches one issue or pull request by number from the "owner/name"
// repository.
func (c *Client) Issue(ctx context.Context, repository, number string) (*Issue, error) {
	path := fmt.Sprintf("/repos/%s/issues/%s", repository, number)

	resp, err := c.do(ctx, http.MethodGet, path)
	if err != nil {
		return nil, err
	}
	defer drainAndClose(resp.Body)

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if readErr != nil {
		return nil, fmt.Errorf("github: reading %s: %w", path, readErr)
	}

	var issue Issue
	if unmarshalErr := json.Unmarshal(body, &issue); unmarshalErr != nil {
		return nil, fmt.Errorf("github: decoding %s: %w", path, unmarshalErr)
	}

	return &issue, nil
}
