package assistant

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
	openai "github.com/sashabaranov/go-openai"

	"github.com/localrivet/apschat/internal/aps"
	"github.com/localrivet/apschat/internal/models"
	"github.com/localrivet/apschat/internal/schedule"
)

func fn(name, description string, params map[string]interface{}) openai.Tool {
	if params == nil {
		params = map[string]interface{}{
			"type":       "object",
			"properties": map[string]interface{}{},
			"required":   []string{},
		}
	}
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        name,
			Description: description,
			Parameters:  params,
		},
	}
}

func objectParams(required []string, props map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}

func stringParam(description string) map[string]interface{} {
	return map[string]interface{}{"type": "string", "description": description}
}

func toolDefinitions() []openai.Tool {
	return []openai.Tool{
		fn("get_hubs", "Retrieves accessible hubs for the authenticated member", nil),
		fn("get_projects", "Retrieves projects from a specified hub",
			objectParams([]string{"hub_id"}, map[string]interface{}{
				"hub_id": stringParam("The ID of the hub to retrieve projects from"),
			})),
		fn("filter_projects", "Filters projects from a specified hub by name",
			objectParams([]string{"hub_id", "prefix"}, map[string]interface{}{
				"hub_id": stringParam("The ID of the hub to retrieve projects from"),
				"prefix": stringParam("Text the project name must contain"),
			})),
		fn("get_items", "Retrieves metadata for up to 50 items in a project",
			objectParams([]string{"project_id"}, map[string]interface{}{
				"project_id": stringParam("The ID of the project to retrieve items from"),
			})),
		fn("get_versions", "Returns versions for a given item",
			objectParams([]string{"project_id", "item_id"}, map[string]interface{}{
				"project_id": stringParam("The ID of the project containing the item"),
				"item_id":    stringParam("The ID of the item to retrieve versions for"),
			})),
		fn("get_elements", "Retrieves model elements for a project from the AEC Data Model, filtered by a property filter expression",
			objectParams([]string{"project_id", "property_filter"}, map[string]interface{}{
				"project_id":      stringParam("The AEC Data Model project ID"),
				"property_filter": stringParam("Property filter expression, e.g. 'property.name.category'==Walls"),
			})),
		fn("create_schedule", "Creates a tabular schedule from previously retrieved model elements",
			objectParams([]string{"schedule_type"}, map[string]interface{}{
				"schedule_type": stringParam("The type of schedule, e.g. 'wall' or 'electrical device'"),
				"properties": map[string]interface{}{
					"type":        "array",
					"items":       map[string]interface{}{"type": "string"},
					"description": "Specific property names to include as columns",
				},
			})),
		fn("run_aec_query", "Generates and executes an AEC Data Model GraphQL query from a natural language request",
			objectParams([]string{"request"}, map[string]interface{}{
				"request": stringParam("The natural language description of the data to query"),
			})),
	}
}

type projectsArgs struct {
	HubID string `mapstructure:"hub_id"`
}

type filterProjectsArgs struct {
	HubID  string `mapstructure:"hub_id"`
	Prefix string `mapstructure:"prefix"`
}

type itemsArgs struct {
	ProjectID string `mapstructure:"project_id"`
}

type versionsArgs struct {
	ProjectID string `mapstructure:"project_id"`
	ItemID    string `mapstructure:"item_id"`
}

type elementsArgs struct {
	ProjectID      string `mapstructure:"project_id"`
	PropertyFilter string `mapstructure:"property_filter"`
}

type scheduleArgs struct {
	ScheduleType string   `mapstructure:"schedule_type"`
	Properties   []string `mapstructure:"properties"`
}

type aecQueryArgs struct {
	Request string `mapstructure:"request"`
}

func errorResult(format string, v ...interface{}) map[string]interface{} {
	return map[string]interface{}{"error": fmt.Sprintf(format, v...)}
}

// executeTool dispatches one tool call. The returned value is serialized as
// the tool message content; failures are returned as error payloads so the
// model can relay them to the user.
func (a *Assistant) executeTool(ctx context.Context, conv *Conversation, name, rawArgs string) interface{} {
	args := map[string]interface{}{}
	if rawArgs != "" {
		if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
			a.diag.Warn("assistant: parsing arguments for %s: %v", name, err)
			return errorResult("invalid arguments for %s: %v", name, err)
		}
	}

	a.diag.Info("assistant: calling tool %s with args %v", name, args)

	switch name {
	case "get_hubs":
		list, err := a.aps.GetHubs(ctx)
		if err != nil {
			return errorResult("Error executing get_hubs: %v", err)
		}
		conv.LastOptions = hubOptions(list.Hubs)
		return list

	case "get_projects":
		var in projectsArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.HubID == "" {
			return errorResult("get_projects requires a hub_id")
		}
		list, err := a.aps.GetProjects(ctx, in.HubID)
		if err != nil {
			return errorResult("Error executing get_projects: %v", err)
		}
		conv.LastOptions = projectOptions(list.Projects)
		return list

	case "filter_projects":
		var in filterProjectsArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.HubID == "" {
			return errorResult("filter_projects requires a hub_id and prefix")
		}
		list, err := a.aps.GetProjects(ctx, in.HubID)
		if err != nil {
			return errorResult("Error executing filter_projects: %v", err)
		}
		filtered := aps.FilterProjects(list.Projects, in.Prefix)
		conv.LastOptions = projectOptions(filtered)
		return &aps.ProjectList{HubID: in.HubID, Projects: filtered, Count: len(filtered)}

	case "get_items":
		var in itemsArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.ProjectID == "" {
			return errorResult("get_items requires a project_id")
		}
		list, err := a.aps.GetItems(ctx, in.ProjectID)
		if err != nil {
			return errorResult("Error executing get_items: %v", err)
		}
		conv.LastOptions = itemOptions(list.Items)
		return list

	case "get_versions":
		var in versionsArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.ProjectID == "" || in.ItemID == "" {
			return errorResult("get_versions requires a project_id and item_id")
		}
		list, err := a.aps.GetVersions(ctx, in.ProjectID, in.ItemID)
		if err != nil {
			return errorResult("Error executing get_versions: %v", err)
		}
		conv.LastOptions = versionOptions(list.Versions)
		return list

	case "get_elements":
		var in elementsArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.ProjectID == "" || in.PropertyFilter == "" {
			return errorResult("get_elements requires a project_id and property_filter")
		}
		elements, err := a.aec.ElementsByProject(ctx, in.ProjectID, in.PropertyFilter)
		if err != nil {
			return errorResult("Error executing get_elements: %v", err)
		}
		conv.LastObjects = schedule.FromElements(elements)
		names := make([]string, 0, len(elements))
		for _, el := range elements {
			names = append(names, el.Name)
		}
		return map[string]interface{}{
			"project_id":    in.ProjectID,
			"element_count": len(elements),
			"elements":      names,
		}

	case "create_schedule":
		var in scheduleArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.ScheduleType == "" {
			return errorResult("create_schedule requires a schedule_type")
		}
		if len(conv.LastObjects) == 0 {
			return errorResult("No data available. Please retrieve model data first.")
		}
		objects := schedule.ObjectsForType(conv.LastObjects, in.ScheduleType)
		result, err := a.creator.Create(ctx, in.ScheduleType, objects, in.Properties, "")
		if err != nil {
			return errorResult("Error creating %s schedule: %v", in.ScheduleType, err)
		}
		return result

	case "run_aec_query":
		var in aecQueryArgs
		if err := mapstructure.Decode(args, &in); err != nil || in.Request == "" {
			return errorResult("run_aec_query requires a request")
		}
		query, err := a.gen.Generate(ctx, in.Request)
		if err != nil {
			return errorResult("Error generating query: %v", err)
		}
		resp, err := a.aec.Execute(ctx, query, nil)
		if err != nil {
			return errorResult("Error executing query: %v", err)
		}
		out := map[string]interface{}{"query": query}
		if err := resp.Err(); err != nil {
			out["error"] = err.Error()
		} else {
			out["data"] = json.RawMessage(resp.Data)
		}
		return out

	default:
		return errorResult("Unknown function: %s", name)
	}
}

func hubOptions(hubs []aps.Hub) []models.Option {
	opts := make([]models.Option, 0, len(hubs))
	for _, h := range hubs {
		opts = append(opts, models.Option{ID: h.ID, Name: h.Name, Kind: "hub"})
	}
	return opts
}

func projectOptions(projects []aps.Project) []models.Option {
	opts := make([]models.Option, 0, len(projects))
	for _, p := range projects {
		opts = append(opts, models.Option{ID: p.ID, Name: p.Name, Kind: "project"})
	}
	return opts
}

func itemOptions(items []aps.Item) []models.Option {
	opts := make([]models.Option, 0, len(items))
	for _, i := range items {
		opts = append(opts, models.Option{ID: i.ID, Name: i.Name, Kind: "item"})
	}
	return opts
}

func versionOptions(versions []aps.Version) []models.Option {
	opts := make([]models.Option, 0, len(versions))
	for _, v := range versions {
		opts = append(opts, models.Option{
			ID:   v.ID,
			Name: fmt.Sprintf("v%d - %s", v.VersionNumber, v.Name),
			Kind: "version",
		})
	}
	return opts
}
