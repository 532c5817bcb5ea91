package aecdm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func graphqlServer(t *testing.T, respond func(query string, variables map[string]interface{}) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		var payload struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		_, _ = w.Write([]byte(respond(payload.Query, payload.Variables)))
	}))
}

func TestExecuteReturnsDataAndErrors(t *testing.T) {
	srv := graphqlServer(t, func(query string, _ map[string]interface{}) string {
		return `{"data":{"hubs":{"results":[]}},"errors":[{"message":"partial failure"}]}`
	})
	defer srv.Close()

	c := NewClient("test-token", WithEndpoint(srv.URL))
	resp, err := c.Execute(context.Background(), "query {}", nil)
	require.NoError(t, err)
	require.Error(t, resp.Err())
	assert.Contains(t, resp.Err().Error(), "partial failure")
}

func TestHubs(t *testing.T) {
	srv := graphqlServer(t, func(query string, _ map[string]interface{}) string {
		assert.Contains(t, query, "hubs")
		return `{"data":{"hubs":{"results":[{"id":"h1","name":"Hub One"},{"id":"h2","name":"Hub Two"}]}}}`
	})
	defer srv.Close()

	c := NewClient("test-token", WithEndpoint(srv.URL))
	hubs, err := c.Hubs(context.Background())
	require.NoError(t, err)
	require.Len(t, hubs, 2)
	assert.Equal(t, Hub{ID: "h1", Name: "Hub One"}, hubs[0])
}

func TestProjectsCarriesAlternativeIdentifier(t *testing.T) {
	srv := graphqlServer(t, func(query string, variables map[string]interface{}) string {
		assert.Equal(t, "h1", variables["hubId"])
		return `{"data":{"projects":{"results":[
			{"id":"p1","name":"Tower","alternativeIdentifiers":{"dataManagementAPIProjectId":"b.p1"}}
		]}}}`
	})
	defer srv.Close()

	c := NewClient("test-token", WithEndpoint(srv.URL))
	projects, err := c.Projects(context.Background(), "h1")
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "b.p1", projects[0].DataManagementProjectID)
}

func TestElementsByProject(t *testing.T) {
	srv := graphqlServer(t, func(query string, variables map[string]interface{}) string {
		assert.Equal(t, "p1", variables["projectId"])
		assert.Contains(t, variables["propertyFilter"], "Walls")
		return `{"data":{"elementsByProject":{"results":[
			{"id":"e1","name":"Basic Wall","properties":{"results":[
				{"name":"Width","value":0.2,"displayValue":"0.20","definition":{"units":{"name":"m"}}},
				{"name":"Material","value":"Concrete","displayValue":""}
			]}}
		]}}}`
	})
	defer srv.Close()

	c := NewClient("test-token", WithEndpoint(srv.URL))
	elements, err := c.ElementsByProject(context.Background(), "p1", "'property.name.category'==Walls")
	require.NoError(t, err)

	require.Len(t, elements, 1)
	el := elements[0]
	assert.Equal(t, "Basic Wall", el.Name)
	require.Len(t, el.Properties, 2)
	assert.Equal(t, "0.20 m", el.Properties[0].DisplayString())
	assert.Equal(t, "Concrete", el.Properties[1].DisplayString())
}

type scriptedCompleter struct {
	content string
	err     error
	gotReq  openai.ChatCompletionRequest
}

func (s *scriptedCompleter) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	s.gotReq = req
	if s.err != nil {
		return openai.ChatCompletionResponse{}, s.err
	}
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: s.content}},
		},
	}, nil
}

func TestGenerateStripsFences(t *testing.T) {
	fake := &scriptedCompleter{content: "```graphql\nquery GetHubs { hubs { results { id name } } }\n```"}
	gen := NewQueryGenerator(fake, "gpt-x", 0.7, 1000)

	query, err := gen.Generate(context.Background(), "show me my hubs")
	require.NoError(t, err)
	assert.Equal(t, "query GetHubs { hubs { results { id name } } }", query)
	assert.Contains(t, fake.gotReq.Messages[0].Content, "show me my hubs")
}

func TestStripFences(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"query { hubs }", "query { hubs }"},
		{"```\nquery { hubs }\n```", "query { hubs }"},
		{"```graphql\nquery { hubs }\n```", "query { hubs }"},
		{"Here you go:\n```graphql\nquery { hubs }\n```\nEnjoy.", "query { hubs }"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, StripFences(tc.in))
	}
}
