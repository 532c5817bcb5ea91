// Package aps provides helpers for the Autodesk Platform Services Data
// Management REST API: hubs, projects, items and versions. Each helper is a
// stateless request/response call; errors are wrapped and passed upward
// without retries.
package aps

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/localrivet/apschat/internal/logx"
)

// DefaultBaseURL is the production APS endpoint.
const DefaultBaseURL = "https://developer.api.autodesk.com"

// Client issues authenticated requests against the Data Management API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	diag       logx.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(url string) ClientOption {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the diagnostic logger.
func WithLogger(l logx.Logger) ClientOption {
	return func(c *Client) { c.diag = l }
}

// NewClient creates a Client using the given bearer token.
func NewClient(token string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		diag:       logx.Nop{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Hub is a shaped hub record.
type Hub struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// HubList is the result of GetHubs.
type HubList struct {
	Hubs  []Hub `json:"hubs"`
	Count int   `json:"count"`
}

// Project is a shaped project record.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProjectList is the result of GetProjects.
type ProjectList struct {
	HubID    string    `json:"hub_id"`
	Projects []Project `json:"projects"`
	Count    int       `json:"count"`
}

// Item is a shaped item record.
type Item struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	FileType     string `json:"file_type"`
	LastModified string `json:"last_modified"`
	VersionID    string `json:"version_id"`
}

// ItemList is the result of GetItems.
type ItemList struct {
	ProjectID string `json:"project_id"`
	Items     []Item `json:"items"`
	Count     int    `json:"count"`
}

// Version is a shaped version record.
type Version struct {
	ID            string `json:"id"`
	VersionNumber int    `json:"version_number"`
	Name          string `json:"name"`
	CreatedBy     string `json:"created_by"`
	CreatedDate   string `json:"created_date"`
	FileType      string `json:"file_type"`
	StorageSize   string `json:"storage_size"`
}

// VersionList is the result of GetVersions.
type VersionList struct {
	ProjectID string    `json:"project_id"`
	ItemID    string    `json:"item_id"`
	Versions  []Version `json:"versions"`
	Count     int       `json:"count"`
}

// resourceDocument is the slice of a JSON:API payload the helpers consume.
type resourceDocument struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			Name             string `json:"name"`
			DisplayName      string `json:"displayName"`
			FileType         string `json:"fileType"`
			LastModifiedTime string `json:"lastModifiedTime"`
			VersionID        string `json:"versionId"`
			VersionNumber    int    `json:"versionNumber"`
			CreateTime       string `json:"createTime"`
			CreateUserName   string `json:"createUserName"`
			StorageSize      int64  `json:"storageSize"`
		} `json:"attributes"`
	} `json:"data"`
}

// GetHubs retrieves the hubs accessible to the authenticated member.
func (c *Client) GetHubs(ctx context.Context) (*HubList, error) {
	var doc resourceDocument
	if err := c.get(ctx, "/project/v1/hubs", &doc); err != nil {
		return nil, err
	}
	list := &HubList{Hubs: []Hub{}}
	for _, res := range doc.Data {
		name := res.Attributes.Name
		if name == "" {
			name = "Unknown Hub"
		}
		list.Hubs = append(list.Hubs, Hub{ID: res.ID, Name: name})
	}
	list.Count = len(list.Hubs)
	return list, nil
}

// GetProjects retrieves the projects in a hub.
func (c *Client) GetProjects(ctx context.Context, hubID string) (*ProjectList, error) {
	var doc resourceDocument
	if err := c.get(ctx, fmt.Sprintf("/project/v1/hubs/%s/projects", hubID), &doc); err != nil {
		return nil, err
	}
	list := &ProjectList{HubID: hubID, Projects: []Project{}}
	for _, res := range doc.Data {
		name := res.Attributes.Name
		if name == "" {
			name = "Unknown Project"
		}
		list.Projects = append(list.Projects, Project{ID: res.ID, Name: name})
	}
	list.Count = len(list.Projects)
	return list, nil
}

// GetItems retrieves item metadata for a project.
func (c *Client) GetItems(ctx context.Context, projectID string) (*ItemList, error) {
	var doc resourceDocument
	if err := c.get(ctx, fmt.Sprintf("/data/v1/projects/%s/items", projectID), &doc); err != nil {
		return nil, err
	}
	list := &ItemList{ProjectID: projectID, Items: []Item{}}
	for _, res := range doc.Data {
		name := res.Attributes.DisplayName
		if name == "" {
			name = "Unknown Item"
		}
		fileType := res.Attributes.FileType
		if fileType == "" {
			fileType = "Unknown"
		}
		list.Items = append(list.Items, Item{
			ID:           res.ID,
			Name:         name,
			FileType:     fileType,
			LastModified: formatTimestamp(res.Attributes.LastModifiedTime),
			VersionID:    res.Attributes.VersionID,
		})
	}
	list.Count = len(list.Items)
	return list, nil
}

// GetVersions retrieves the versions of an item, newest first.
func (c *Client) GetVersions(ctx context.Context, projectID, itemID string) (*VersionList, error) {
	var doc resourceDocument
	if err := c.get(ctx, fmt.Sprintf("/data/v1/projects/%s/items/%s/versions", projectID, itemID), &doc); err != nil {
		return nil, err
	}
	list := &VersionList{ProjectID: projectID, ItemID: itemID, Versions: []Version{}}
	for _, res := range doc.Data {
		name := res.Attributes.DisplayName
		if name == "" {
			name = "Unknown Version"
		}
		createdBy := res.Attributes.CreateUserName
		if createdBy == "" {
			createdBy = "Unknown User"
		}
		fileType := res.Attributes.FileType
		if fileType == "" {
			fileType = "Unknown"
		}
		list.Versions = append(list.Versions, Version{
			ID:            res.ID,
			VersionNumber: res.Attributes.VersionNumber,
			Name:          name,
			CreatedBy:     createdBy,
			CreatedDate:   formatTimestamp(res.Attributes.CreateTime),
			FileType:      fileType,
			StorageSize:   FormatFileSize(res.Attributes.StorageSize),
		})
	}
	sort.Slice(list.Versions, func(i, j int) bool {
		return list.Versions[i].VersionNumber > list.Versions[j].VersionNumber
	})
	list.Count = len(list.Versions)
	return list, nil
}

// FilterProjects returns the projects whose name contains criteria,
// case-insensitively. An empty criteria returns the input unchanged.
func FilterProjects(projects []Project, criteria string) []Project {
	if criteria == "" {
		return projects
	}
	needle := strings.ToLower(criteria)
	filtered := []Project{}
	for _, p := range projects {
		if strings.Contains(strings.ToLower(p.Name), needle) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// FilterItems returns the items whose name or file type contains criteria,
// case-insensitively.
func FilterItems(items []Item, criteria string) []Item {
	if criteria == "" {
		return items
	}
	needle := strings.ToLower(criteria)
	filtered := []Item{}
	for _, i := range items {
		if strings.Contains(strings.ToLower(i.Name), needle) ||
			strings.Contains(strings.ToLower(i.FileType), needle) {
			filtered = append(filtered, i)
		}
	}
	return filtered
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	url := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("building request for %s: %w", path, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response from %s: %w", path, err)
	}

	c.diag.Debug("GET %s - status %d", url, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: status %d: %s", path, resp.StatusCode, snippet(body))
	}
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", path, err)
	}
	return nil
}

func snippet(body []byte) string {
	const max = 200
	s := string(body)
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}

// formatTimestamp renders an RFC3339 timestamp as "2006-01-02 15:04:05",
// keeping the original string when it does not parse.
func formatTimestamp(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}
