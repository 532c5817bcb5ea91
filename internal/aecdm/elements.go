package aecdm

import (
	"context"
	"encoding/json"
	"fmt"
)

// ElementProperty is one property of a model element.
type ElementProperty struct {
	Name         string      `json:"name"`
	Value        interface{} `json:"value"`
	DisplayValue string      `json:"displayValue,omitempty"`
	Units        string      `json:"units,omitempty"`
}

// Element is a shaped model element with its property values.
type Element struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Properties []ElementProperty `json:"properties"`
}

// DisplayString renders a property for tabular output, appending units when
// present and preferring the display value.
func (p ElementProperty) DisplayString() string {
	base := p.DisplayValue
	if base == "" && p.Value != nil {
		base = fmt.Sprintf("%v", p.Value)
	}
	if base == "" {
		return ""
	}
	if p.Units != "" {
		return base + " " + p.Units
	}
	return base
}

const elementsQuery = `query GetElements($projectId: ID!, $propertyFilter: String!) {
  elementsByProject(projectId: $projectId, filter: {query: $propertyFilter}) {
    results {
      id
      name
      properties {
        results {
          name
          value
          displayValue
          definition {
            units {
              name
            }
          }
        }
      }
    }
  }
}`

// ElementsByProject fetches elements matching a property filter expression,
// e.g. "'property.name.category'==Walls".
func (c *Client) ElementsByProject(ctx context.Context, projectID, propertyFilter string) ([]Element, error) {
	resp, err := c.Execute(ctx, elementsQuery, map[string]interface{}{
		"projectId":      projectID,
		"propertyFilter": propertyFilter,
	})
	if err != nil {
		return nil, err
	}
	if err := resp.Err(); err != nil {
		return nil, err
	}

	var payload struct {
		ElementsByProject struct {
			Results []struct {
				ID         string `json:"id"`
				Name       string `json:"name"`
				Properties struct {
					Results []struct {
						Name         string      `json:"name"`
						Value        interface{} `json:"value"`
						DisplayValue string      `json:"displayValue"`
						Definition   *struct {
							Units *struct {
								Name string `json:"name"`
							} `json:"units"`
						} `json:"definition"`
					} `json:"results"`
				} `json:"properties"`
			} `json:"results"`
		} `json:"elementsByProject"`
	}
	if err := json.Unmarshal(resp.Data, &payload); err != nil {
		return nil, fmt.Errorf("decoding elements payload: %w", err)
	}

	elements := make([]Element, 0, len(payload.ElementsByProject.Results))
	for _, res := range payload.ElementsByProject.Results {
		el := Element{ID: res.ID, Name: res.Name}
		for _, prop := range res.Properties.Results {
			p := ElementProperty{
				Name:         prop.Name,
				Value:        prop.Value,
				DisplayValue: prop.DisplayValue,
			}
			if prop.Definition != nil && prop.Definition.Units != nil {
				p.Units = prop.Definition.Units.Name
			}
			el.Properties = append(el.Properties, p)
		}
		elements = append(elements, el)
	}
	return elements, nil
}
