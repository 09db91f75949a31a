package dto

// RepoItem is one repository in the GET /github/repos listing.
type RepoItem struct {
	ID            string `json:"id"`
	FullName      string `json:"full_name"`
	DefaultBranch string `json:"default_branch,omitempty"`
	Private       bool   `json:"private"`
	LastSyncedAt  string `json:"last_synced_at,omitempty"`
}

// ListReposResponse is the body of GET /github/repos.
type ListReposResponse struct {
	Repos []RepoItem `json:"repos"`
}

// SyncReposResponse is the body of POST /github/repos/sync.
type SyncReposResponse struct {
	Synced int `json:"synced"`
}
