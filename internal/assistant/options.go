package assistant

import "strings"

// OptionsInfo describes a selection detected in an assistant response.
type OptionsInfo struct {
	HasOptions bool
	Kind       string
}

var optionIndicators = []string{
	"here is a list of",
	"here are the",
	"please select",
	"choose from",
	"select one of the following",
	"here's a list of",
}

var optionKinds = []struct {
	kind       string
	indicators []string
}{
	{"hub", []string{"hub", "hubs"}},
	{"project", []string{"project", "projects"}},
	{"item", []string{"item", "items", "file", "files"}},
	{"version", []string{"version", "versions"}},
}

// AnalyzeOptions inspects an assistant response for phrasing that presents
// a selection, classifying the resource kind when possible. Returns nil
// when the response does not present options.
func AnalyzeOptions(response string) *OptionsInfo {
	lower := strings.ToLower(response)

	found := false
	for _, ind := range optionIndicators {
		if strings.Contains(lower, ind) {
			found = true
			break
		}
	}
	if !found {
		return nil
	}

	info := &OptionsInfo{HasOptions: true}
	for _, k := range optionKinds {
		for _, ind := range k.indicators {
			if strings.Contains(lower, ind) {
				info.Kind = k.kind
				return info
			}
		}
	}
	return info
}

// FollowupQuery renders the chat text a clicked option stands for, keyed by
// the option kind.
func FollowupQuery(kind, id, name string) string {
	switch kind {
	case "hub":
		return "Show me the projects in hub " + id
	case "project":
		return "Show me the items in project " + id
	case "item":
		return "Show me the versions of item " + id
	case "version":
		return "Tell me about version " + id
	default:
		return "Tell me more about " + name
	}
}
