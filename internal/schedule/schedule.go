// Package schedule builds tabular reports ("schedules") from model element
// data: walls, electrical devices and similar categories. Column selection
// is delegated to the LLM; table construction happens locally.
package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/localrivet/apschat/internal/aecdm"
)

// Object is a summarized model object included in a schedule.
type Object struct {
	Name       string     `json:"name"`
	ObjectID   ObjectID   `json:"objectid"`
	Properties []Property `json:"properties"`
}

// ObjectID carries the object's type classification.
type ObjectID struct {
	Type string `json:"type"`
}

// Property is one name/value attribute of an object.
type Property struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

var wallIdentifiers = []string{"wall", "partition", "facade", "curtain wall"}

var electricalIdentifiers = []string{"electrical", "device", "fixture", "switch", "outlet", "receptacle", "panel"}

// FromElements converts AEC Data Model elements into schedule objects,
// keeping only properties with non-nil values.
func FromElements(elements []aecdm.Element) []Object {
	objects := make([]Object, 0, len(elements))
	for _, el := range elements {
		obj := Object{Name: el.Name}
		for _, prop := range el.Properties {
			if prop.Value == nil && prop.DisplayValue == "" {
				continue
			}
			value := prop.Value
			if display := prop.DisplayString(); display != "" {
				value = display
			}
			obj.Properties = append(obj.Properties, Property{Name: prop.Name, Value: value})
			if strings.EqualFold(prop.Name, "category") {
				obj.ObjectID.Type = fmt.Sprintf("%v", prop.Value)
			}
		}
		objects = append(objects, obj)
	}
	return objects
}

// ObjectsForType filters objects matching the requested schedule type.
// Matching checks the object name, type and category-like properties, with
// a fallback scan over all property names and values. When nothing matches,
// sample fixture objects are returned so schedule formatting can still be
// demonstrated.
func ObjectsForType(objects []Object, scheduleType string) []Object {
	identifiers := identifiersFor(scheduleType)
	if len(identifiers) == 0 {
		// Unrecognized type: match on the type string itself.
		identifiers = []string{strings.ToLower(scheduleType)}
	}

	var matched []Object
	for _, obj := range objects {
		if matchesObject(obj, scheduleType, identifiers) {
			matched = append(matched, summarize(obj))
		}
	}
	if len(matched) == 0 {
		return SampleObjects(scheduleType)
	}
	return matched
}

func identifiersFor(scheduleType string) []string {
	switch strings.ToLower(scheduleType) {
	case "wall":
		return wallIdentifiers
	case "electrical device":
		return electricalIdentifiers
	default:
		return nil
	}
}

func matchesObject(obj Object, scheduleType string, identifiers []string) bool {
	name := strings.ToLower(obj.Name)
	objType := strings.ToLower(obj.ObjectID.Type)

	category := ""
	for _, prop := range obj.Properties {
		switch strings.ToLower(prop.Name) {
		case "category", "family", "type", "element type":
			category = strings.ToLower(fmt.Sprintf("%v", prop.Value))
		}
	}

	for _, term := range identifiers {
		if strings.Contains(name, term) || strings.Contains(objType, term) || strings.Contains(category, term) {
			return true
		}
	}
	if strings.EqualFold(scheduleType, "wall") && strings.Contains(name, "basic wall") {
		return true
	}

	// Fallback: scan every property name and value.
	for _, prop := range obj.Properties {
		propName := strings.ToLower(prop.Name)
		propValue := strings.ToLower(fmt.Sprintf("%v", prop.Value))
		for _, term := range identifiers {
			if strings.Contains(propName, term) || strings.Contains(propValue, term) {
				return true
			}
		}
	}
	return false
}

// summarize keeps only the essentials: name, objectid and properties that
// carry a value.
func summarize(obj Object) Object {
	out := Object{Name: obj.Name, ObjectID: obj.ObjectID}
	for _, prop := range obj.Properties {
		if prop.Name != "" && prop.Value != nil {
			out.Properties = append(out.Properties, prop)
		}
	}
	return out
}

// SampleObjects returns fixture objects for a schedule type, used when the
// retrieved model data contains no matches.
func SampleObjects(scheduleType string) []Object {
	switch strings.ToLower(scheduleType) {
	case "wall":
		return []Object{
			{Name: "Basic Wall", ObjectID: ObjectID{Type: "wall"}, Properties: []Property{
				{Name: "Width", Value: 0.2}, {Name: "Height", Value: 3.0},
				{Name: "Volume", Value: 1.5}, {Name: "Material", Value: "Concrete"},
			}},
			{Name: "Interior Wall", ObjectID: ObjectID{Type: "wall"}, Properties: []Property{
				{Name: "Width", Value: 0.15}, {Name: "Height", Value: 2.7},
				{Name: "Volume", Value: 0.8}, {Name: "Material", Value: "Drywall"},
			}},
			{Name: "Exterior Wall", ObjectID: ObjectID{Type: "wall"}, Properties: []Property{
				{Name: "Width", Value: 0.3}, {Name: "Height", Value: 3.2},
				{Name: "Volume", Value: 2.1}, {Name: "Material", Value: "Brick"},
			}},
		}
	case "electrical device":
		return []Object{
			{Name: "Light Switch", ObjectID: ObjectID{Type: "electrical device"}, Properties: []Property{
				{Name: "Type", Value: "Switch"}, {Name: "Voltage", Value: 120},
				{Name: "Manufacturer", Value: "Acme"},
			}},
			{Name: "Light Fixture", ObjectID: ObjectID{Type: "electrical device"}, Properties: []Property{
				{Name: "Type", Value: "Light Fixture"}, {Name: "Voltage", Value: 120},
				{Name: "Wattage", Value: 60}, {Name: "Manufacturer", Value: "Acme"},
			}},
			{Name: "Outlet", ObjectID: ObjectID{Type: "electrical device"}, Properties: []Property{
				{Name: "Type", Value: "Outlet"}, {Name: "Voltage", Value: 120},
				{Name: "Amperage", Value: 15}, {Name: "Manufacturer", Value: "Acme"},
			}},
		}
	default:
		return nil
	}
}

// BuildMarkdownTable renders objects as a markdown table over the given
// columns. Missing values render as N/A.
func BuildMarkdownTable(objects []Object, columns []string) string {
	if len(objects) == 0 || len(columns) == 0 {
		return "No data available for table."
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	separators := make([]string, len(columns))
	for i := range separators {
		separators[i] = "---"
	}
	b.WriteString("| " + strings.Join(separators, " | ") + " |\n")

	for _, obj := range objects {
		row := make([]string, 0, len(columns))
		for _, col := range columns {
			row = append(row, lookupValue(obj, col))
		}
		b.WriteString("| " + strings.Join(row, " | ") + " |\n")
	}
	return b.String()
}

func lookupValue(obj Object, column string) string {
	if strings.EqualFold(column, "name") {
		return obj.Name
	}
	for _, prop := range obj.Properties {
		if prop.Name == column {
			if prop.Value == nil {
				return "N/A"
			}
			return fmt.Sprintf("%v", prop.Value)
		}
	}
	return "N/A"
}

// PropertyNames collects the distinct property names across objects, sorted.
func PropertyNames(objects []Object) []string {
	seen := map[string]bool{}
	var names []string
	for _, obj := range objects {
		for _, prop := range obj.Properties {
			if prop.Name != "" && !seen[prop.Name] {
				seen[prop.Name] = true
				names = append(names, prop.Name)
			}
		}
	}
	sort.Strings(names)
	return names
}
