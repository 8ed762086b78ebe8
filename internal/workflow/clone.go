// Package workflow starts projects from static workflow templates.
package workflow

import (
	"encoding/json"
	"reflect"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/planner/internal/models"
)

// Cloner copies templates into fresh instances.
type Cloner struct {
	NewID func() string
	Now   func() time.Time
}

// Clone copies t into an instance called name using random identifiers.
func Clone(t models.WorkflowTemplate, name string) models.WorkflowInstance {
	return Cloner{}.Clone(t, name)
}

// Clone deep-copies the nodes and edges of t. Every node and edge gets a
// new id, every node is reset to pending and edges are rewired to the new
// node ids. Nothing in the result is shared with t.
func (c Cloner) Clone(t models.WorkflowTemplate, name string) models.WorkflowInstance {
	newID := c.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	now := c.Now
	if now == nil {
		now = time.Now
	}

	inst := models.WorkflowInstance{
		ID:         newID(),
		Name:       name,
		TemplateID: t.ID,
		Nodes:      make([]models.WorkflowNode, len(t.Nodes)),
		Edges:      make([]models.WorkflowEdge, len(t.Edges)),
		CreatedAt:  now(),
	}

	// All nodes first: edges can only be rewired once the map is complete.
	ids := make(map[string]string, len(t.Nodes))
	for i, n := range t.Nodes {
		clone := n
		clone.ID = newID()
		clone.Status = models.NodePending
		clone.Data = copyMap(n.Data)
		ids[n.ID] = clone.ID
		inst.Nodes[i] = clone
	}

	for i, e := range t.Edges {
		inst.Edges[i] = models.WorkflowEdge{
			ID:     newID(),
			Source: remap(ids, e.Source),
			Target: remap(ids, e.Target),
			Label:  e.Label,
		}
	}
	return inst
}

// remap returns the new id of old. Edges pointing outside the template
// keep their endpoint.
func remap(ids map[string]string, old string) string {
	if id, ok := ids[old]; ok {
		return id
	}
	return old
}

func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case []any:
		out := make([]any, len(v))
		for i, x := range v {
			out[i] = copyValue(x)
		}
		return out
	case []string:
		return append([]string(nil), v...)
	default:
		return copyReference(v)
	}
}

// copyReference copies any other map, slice, pointer or struct through its
// JSON form, which is how node data is persisted anyway. Values that do not
// encode are kept as they are.
func copyReference(v any) any {
	if v == nil {
		return nil
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Pointer, reflect.Struct, reflect.Array:
	default:
		return v
	}
	data, err := json.Marshal(v)
	if err != nil {
		return v
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return v
	}
	return out
}
