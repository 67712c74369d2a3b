package watchers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/common"
	"github.com/ternarybob/argus/internal/interfaces"
	"github.com/ternarybob/argus/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// GitHubWatcher polls configured repositories for new commits and pull
// requests. Checkpoints (last seen commit SHA and PR number) persist per
// repository so restarts do not replay history.
type GitHubWatcher struct {
	client   *github.Client
	repos    []string
	interval time.Duration
	states   interfaces.WatcherStateStorage
	limiter  *rate.Limiter
	logger   arbor.ILogger
}

// NewGitHubWatcher creates a GitHub watcher from configuration
func NewGitHubWatcher(config *common.GitHubWatcherConfig, states interfaces.WatcherStateStorage, logger arbor.ILogger) *GitHubWatcher {
	httpClient := oauth2.NewClient(context.Background(), nil)
	if config.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: config.Token})
		httpClient = oauth2.NewClient(context.Background(), src)
	}

	interval := time.Duration(config.IntervalMinutes) * time.Minute
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	return &GitHubWatcher{
		client:   github.NewClient(httpClient),
		repos:    config.Repos,
		interval: interval,
		states:   states,
		// Stay well inside GitHub's secondary rate limits
		limiter: rate.NewLimiter(rate.Every(time.Second), 1),
		logger:  logger,
	}
}

func (w *GitHubWatcher) Name() string {
	return "github"
}

func (w *GitHubWatcher) Interval() time.Duration {
	return w.interval
}

// Init seeds checkpoints for repositories seen for the first time so the
// initial poll does not flood the bus with historical activity
func (w *GitHubWatcher) Init(ctx context.Context) error {
	for _, repo := range w.repos {
		owner, name, err := splitRepo(repo)
		if err != nil {
			return err
		}

		state, err := w.states.GetWatcherState(ctx, stateKey(repo))
		if err != nil {
			return fmt.Errorf("failed to load watcher state for %s: %w", repo, err)
		}
		if state != nil {
			continue
		}

		state = &models.WatcherState{
			Key:       stateKey(repo),
			Watcher:   w.Name(),
			LastCheck: time.Now(),
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		commits, _, err := w.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
			ListOptions: github.ListOptions{PerPage: 1},
		})
		if err != nil {
			return fmt.Errorf("failed to fetch commits for %s: %w", repo, err)
		}
		if len(commits) > 0 {
			state.LastCommitSHA = commits[0].GetSHA()
		}

		if err := w.limiter.Wait(ctx); err != nil {
			return err
		}
		prs, _, err := w.client.PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{
			State:       "all",
			Sort:        "created",
			Direction:   "desc",
			ListOptions: github.ListOptions{PerPage: 1},
		})
		if err != nil {
			return fmt.Errorf("failed to fetch pull requests for %s: %w", repo, err)
		}
		if len(prs) > 0 {
			state.LastPRNumber = prs[0].GetNumber()
		}

		if err := w.states.SaveWatcherState(ctx, state); err != nil {
			return fmt.Errorf("failed to save watcher state for %s: %w", repo, err)
		}
		w.logger.Info().
			Str("repo", repo).
			Str("last_commit", state.LastCommitSHA).
			Int("last_pr", state.LastPRNumber).
			Msg("GitHub watcher checkpoint seeded")
	}
	return nil
}

// Check polls every configured repository once. A failing repository logs
// and moves on; its checkpoint stays untouched so nothing is lost.
func (w *GitHubWatcher) Check(ctx context.Context) ([]interfaces.WatcherEvent, error) {
	var events []interfaces.WatcherEvent

	for _, repo := range w.repos {
		repoEvents, err := w.checkRepo(ctx, repo)
		if err != nil {
			if ctx.Err() != nil {
				return events, ctx.Err()
			}
			w.logger.Warn().Err(err).Str("repo", repo).Msg("GitHub poll failed")
			continue
		}
		events = append(events, repoEvents...)
	}

	return events, nil
}

func (w *GitHubWatcher) checkRepo(ctx context.Context, repo string) ([]interfaces.WatcherEvent, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	state, err := w.states.GetWatcherState(ctx, stateKey(repo))
	if err != nil {
		return nil, fmt.Errorf("failed to load watcher state: %w", err)
	}
	if state == nil {
		state = &models.WatcherState{Key: stateKey(repo), Watcher: w.Name()}
	}

	var events []interfaces.WatcherEvent

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	commits, _, err := w.client.Repositories.ListCommits(ctx, owner, name, &github.CommitsListOptions{
		ListOptions: github.ListOptions{PerPage: 20},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list commits: %w", err)
	}

	// Commits arrive newest first; collect until the checkpoint
	var newCommits []*github.RepositoryCommit
	for _, c := range commits {
		if c.GetSHA() == state.LastCommitSHA {
			break
		}
		newCommits = append(newCommits, c)
	}
	// Oldest first so downstream handlers see history in order
	for i := len(newCommits) - 1; i >= 0; i-- {
		c := newCommits[i]
		events = append(events, interfaces.WatcherEvent{
			Trigger: interfaces.TriggerGithubPush,
			Data: map[string]interface{}{
				"repo":    repo,
				"sha":     c.GetSHA(),
				"message": c.GetCommit().GetMessage(),
				"author":  c.GetCommit().GetAuthor().GetName(),
				"url":     c.GetHTMLURL(),
			},
		})
	}
	if len(newCommits) > 0 {
		state.LastCommitSHA = newCommits[0].GetSHA()
	}

	if err := w.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	prs, _, err := w.client.PullRequests.List(ctx, owner, name, &github.PullRequestListOptions{
		State:       "all",
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: 20},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list pull requests: %w", err)
	}

	maxPR := state.LastPRNumber
	for i := len(prs) - 1; i >= 0; i-- {
		pr := prs[i]
		if pr.GetNumber() <= state.LastPRNumber {
			continue
		}
		events = append(events, interfaces.WatcherEvent{
			Trigger: interfaces.TriggerGithubPR,
			Data: map[string]interface{}{
				"repo":   repo,
				"number": pr.GetNumber(),
				"title":  pr.GetTitle(),
				"author": pr.GetUser().GetLogin(),
				"url":    pr.GetHTMLURL(),
			},
		})
		if pr.GetNumber() > maxPR {
			maxPR = pr.GetNumber()
		}
	}
	state.LastPRNumber = maxPR

	state.LastCheck = time.Now()
	if err := w.states.SaveWatcherState(ctx, state); err != nil {
		return events, fmt.Errorf("failed to save watcher state: %w", err)
	}

	return events, nil
}

func stateKey(repo string) string {
	return "github:" + repo
}

func splitRepo(repo string) (string, string, error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", repo)
	}
	return parts[0], parts[1], nil
}

var _ interfaces.Watcher = (*GitHubWatcher)(nil)
