package models

import "time"

// WatcherState is the persisted checkpoint for one watched external key
// (typically a repository URL). Writes are idempotent upserts so a restart
// never loses progress.
type WatcherState struct {
	Key           string                 `json:"key" badgerhold:"key"`
	Watcher       string                 `json:"watcher"`
	LastCommitSHA string                 `json:"last_commit_sha,omitempty"`
	LastPRNumber  int                    `json:"last_pr_number,omitempty"`
	Data          map[string]interface{} `json:"data,omitempty"`
	LastCheck     time.Time              `json:"last_check"`
}
