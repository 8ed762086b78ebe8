package models

import "time"

// NodeStatus is the execution state of a workflow node.
type NodeStatus string

const (
	NodePending    NodeStatus = "pending"
	NodeInProgress NodeStatus = "in-progress"
	NodeDone       NodeStatus = "done"
)

// Position is a node's location on the canvas.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// WorkflowNode is a step in a workflow graph.
type WorkflowNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Label    string         `json:"label"`
	Status   NodeStatus     `json:"status"`
	Position Position       `json:"position"`
	Data     map[string]any `json:"data,omitempty"`
}

// WorkflowEdge connects two nodes by ID.
type WorkflowEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
	Label  string `json:"label,omitempty"`
}

// WorkflowTemplate is static graph data that projects are started from.
type WorkflowTemplate struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Nodes       []WorkflowNode `json:"nodes"`
	Edges       []WorkflowEdge `json:"edges"`
}

// WorkflowInstance is a project cloned from a template.
type WorkflowInstance struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	TemplateID string         `json:"templateId"`
	Nodes      []WorkflowNode `json:"nodes"`
	Edges      []WorkflowEdge `json:"edges"`
	CreatedAt  time.Time      `json:"createdAt"`
}
