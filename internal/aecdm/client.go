// Package aecdm provides helpers for the Autodesk AEC Data Model GraphQL
// API: raw query execution plus shaped hub, project and element lookups.
package aecdm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultEndpoint is the production AEC Data Model GraphQL endpoint.
const DefaultEndpoint = "https://developer.api.autodesk.com/aec/graphql"

// Client posts GraphQL queries to the AEC Data Model endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint overrides the GraphQL endpoint. Used by tests.
func WithEndpoint(url string) ClientOption {
	return func(c *Client) { c.endpoint = url }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client using the given bearer token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   DefaultEndpoint,
		token:      token,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// QueryError is one error from a GraphQL response.
type QueryError struct {
	Message string `json:"message"`
}

// Response is the raw GraphQL response envelope.
type Response struct {
	Data   json.RawMessage `json:"data"`
	Errors []QueryError    `json:"errors,omitempty"`
}

// Err folds the response's GraphQL errors into a single error, or nil.
func (r *Response) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Message)
	}
	return fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
}

// Execute posts a query with variables and returns the raw response
// envelope. Transport failures and non-2xx statuses are returned as errors;
// GraphQL-level errors are left on the Response for the caller.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]interface{}) (*Response, error) {
	payload := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}
	if variables == nil {
		payload["variables"] = map[string]interface{}{}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding query payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building graphql request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting graphql query: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graphql response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("graphql request: status %d: %s", resp.StatusCode, respBody)
	}

	var out Response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, fmt.Errorf("decoding graphql response: %w", err)
	}
	return &out, nil
}

// Hub is a shaped AEC Data Model hub.
type Hub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Project is a shaped AEC Data Model project.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	// DataManagementProjectID carries the alternative identifier linking
	// back to the Data Management API.
	DataManagementProjectID string `json:"data_management_project_id,omitempty"`
}

const hubsQuery = `query GetHubs {
  hubs {
    results {
      id
      name
    }
  }
}`

const projectsQuery = `query GetProjects($hubId: ID!) {
  projects(hubId: $hubId) {
    results {
      id
      name
      alternativeIdentifiers {
        dataManagementAPIProjectId
      }
    }
  }
}`

// Hubs lists the hubs visible to the token.
func (c *Client) Hubs(ctx context.Context) ([]Hub, error) {
	resp, err := c.Execute(ctx, hubsQuery, nil)
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var payload struct {
		Hubs struct {
			Results []Hub `json:"results"`
		} `json:"hubs"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decoding hubs payload: %w", err)
	}
	return payload.Hubs.Results, nil
}

// Projects lists the projects in a hub.
func (c *Client) Projects(ctx context.Context, hubID string) ([]Project, error) {
	resp, err := c.Execute(ctx, projectsQuery, map[string]interface{}{"hubId": hubID})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var payload struct {
		Projects struct {
			Results []struct {
				ID                     string `json:"id"`
				Name                   string `json:"name"`
				AlternativeIdentifiers struct {
					DataManagementAPIProjectID string `json:"dataManagementAPIProjectId"`
				} `json:"alternativeIdentifiers"`
			} `json:"results"`
		} `json:"projects"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decoding projects payload: %w", err)
	}

	projects := make([]Project, 0, len(payload.Projects.Results))
	for _, res := range payload.Projects.Results {
		projects = append(projects, Project{
			ID:                      res.ID,
			Name:                    res.Name,
			DataManagementProjectID: res.AlternativeIdentifiers.DataManagementAPIProjectID,
		})
	}
	return projects, nil
}
