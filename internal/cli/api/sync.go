package api

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// SyncStatistics counts what a sync run created and updated.
type SyncStatistics struct {
	ProjectsCreated int `json:"projectsCreated"`
	ProjectsUpdated int `json:"projectsUpdated"`
	TasksCreated    int `json:"tasksCreated"`
	TasksUpdated    int `json:"tasksUpdated"`
	UsersCreated    int `json:"usersCreated"`
	UsersUpdated    int `json:"usersUpdated"`
	CommentsCreated int `json:"commentsCreated"`
	CommentsUpdated int `json:"commentsUpdated"`
}

// SyncResult is the response of a sync run.
type SyncResult struct {
	ConnectorType   string          `json:"connectorType"`
	Status          string          `json:"status"`
	Statistics      *SyncStatistics `json:"statistics,omitempty"`
	SyncStartTime   string          `json:"syncStartTime,omitempty"`
	SyncEndTime     string          `json:"syncEndTime,omitempty"`
	DurationSeconds *int64          `json:"durationSeconds,omitempty"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
}

// Sync scopes accepted by Sync.Run.
const (
	ScopeAll      = "all"
	ScopeProjects = "projects"
	ScopeTasks    = "tasks"
	ScopeUsers    = "users"
	ScopeComments = "comments"
)

// Scopes lists the valid sync scopes.
var Scopes = []string{ScopeAll, ScopeProjects, ScopeTasks, ScopeUsers, ScopeComments}

// Sync covers the /sync endpoints.
type Sync struct {
	t Transport
}

// NewSync creates a Sync collaborator on t.
func NewSync(t Transport) *Sync {
	return &Sync{t: t}
}

// Test checks connectivity to a connector.
func (s *Sync) Test(ctx context.Context, connector string) (Item, error) {
	name, err := checkConnector(connector, Connectors)
	if err != nil {
		return nil, err
	}
	var out Item
	if err := s.t.GetJSON(ctx, "/sync/"+name+"/test", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Run starts a sync of scope against a project-management connector.
func (s *Sync) Run(ctx context.Context, connector, scope string) (*SyncResult, error) {
	name, err := checkConnector(connector, PMConnectors)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(Scopes, scope) {
		return nil, fmt.Errorf("unknown sync scope %q (valid: %s)", scope, strings.Join(Scopes, ", "))
	}
	var out SyncResult
	if err := s.t.PostJSON(ctx, "/sync/"+name+"/"+scope, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logs lists sync log entries. Filters: connectorType.
func (s *Sync) Logs(ctx context.Context, opts ListOptions) (*Page, error) {
	var p Page
	if err := s.t.GetJSON(ctx, "/sync/logs", opts.Query(), &p); err != nil {
		return nil, err
	}
	return &p, nil
}
