package api

import (
	"context"
	"fmt"
)

// Resources reads projects, tasks, users and comments.
type Resources struct {
	t Transport
}

// NewResources creates a Resources collaborator on t.
func NewResources(t Transport) *Resources {
	return &Resources{t: t}
}

func (r *Resources) page(ctx context.Context, path string, opts ListOptions) (*Page, error) {
	var p Page
	if err := r.t.GetJSON(ctx, path, opts.Query(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Resources) item(ctx context.Context, path string) (Item, error) {
	var it Item
	if err := r.t.GetJSON(ctx, path, nil, &it); err != nil {
		return nil, err
	}
	return it, nil
}

// Projects lists projects. Filters: sourceSystem, status, search.
func (r *Resources) Projects(ctx context.Context, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/projects", opts)
}

// Project fetches one project.
func (r *Resources) Project(ctx context.Context, id int64) (Item, error) {
	return r.item(ctx, "/projects/"+pathID(id))
}

// Tasks lists tasks. Filters: sourceSystem, status, priority, projectId, search.
func (r *Resources) Tasks(ctx context.Context, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/tasks", opts)
}

// Task fetches one task.
func (r *Resources) Task(ctx context.Context, id int64) (Item, error) {
	return r.item(ctx, "/tasks/"+pathID(id))
}

// TasksByProject lists the tasks of a project.
func (r *Resources) TasksByProject(ctx context.Context, projectID int64, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/tasks/project/"+pathID(projectID), opts)
}

// Users lists users.
func (r *Resources) Users(ctx context.Context, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/users", opts)
}

// User fetches one user.
func (r *Resources) User(ctx context.Context, id int64) (Item, error) {
	return r.item(ctx, "/users/"+pathID(id))
}

// Comments lists comments.
func (r *Resources) Comments(ctx context.Context, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/comments", opts)
}

// CommentsByTask lists the comments of a task.
func (r *Resources) CommentsByTask(ctx context.Context, taskID int64, opts ListOptions) (*Page, error) {
	return r.page(ctx, "/comments/task/"+pathID(taskID), opts)
}

// Alerts covers the /alerts endpoints.
type Alerts struct {
	t Transport
}

// NewAlerts creates an Alerts collaborator on t.
func NewAlerts(t Transport) *Alerts {
	return &Alerts{t: t}
}

// List returns unresolved alerts.
func (a *Alerts) List(ctx context.Context, opts ListOptions) (*Page, error) {
	var p Page
	if err := a.t.GetJSON(ctx, "/alerts", opts.Query(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Unread returns unread alerts.
func (a *Alerts) Unread(ctx context.Context, opts ListOptions) (*Page, error) {
	var p Page
	if err := a.t.GetJSON(ctx, "/alerts/unread", opts.Query(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UnreadCount returns the number of unread alerts.
func (a *Alerts) UnreadCount(ctx context.Context) (int64, error) {
	var out struct {
		Count int64 `json:"count"`
	}
	if err := a.t.GetJSON(ctx, "/alerts/count", nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// MarkRead marks an alert as read.
func (a *Alerts) MarkRead(ctx context.Context, id int64) error {
	return a.t.PostJSON(ctx, fmt.Sprintf("/alerts/%d/read", id), nil, nil)
}

// Resolve resolves an alert.
func (a *Alerts) Resolve(ctx context.Context, id int64) error {
	return a.t.PostJSON(ctx, fmt.Sprintf("/alerts/%d/resolve", id), nil, nil)
}

// ActionResult is the outcome of approving an alert.
type ActionResult struct {
	Success     bool   `json:"success"`
	Description string `json:"description"`
	ActionTaken string `json:"actionTaken"`
}

// Approve approves an alert and runs its recommended action.
func (a *Alerts) Approve(ctx context.Context, id int64) (*ActionResult, error) {
	var out ActionResult
	if err := a.t.PostJSON(ctx, fmt.Sprintf("/alerts/%d/approve", id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
