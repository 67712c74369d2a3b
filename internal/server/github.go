package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

// githubPRDelivery is the pull-request family: a pull_request object plus
// the repository URL
type githubPRDelivery struct {
	PullRequest map[string]interface{} `json:"pull_request" validate:"required"`
	RepoURL     string                 `json:"repo_url" validate:"required"`
}

// githubPushDelivery is the push family: a commit object plus the
// repository URL
type githubPushDelivery struct {
	Commit  map[string]interface{} `json:"commit" validate:"required"`
	RepoURL string                 `json:"repo_url" validate:"required"`
}

// GitHubWebhookHandler accepts code-host deliveries and maps them to
// GITHUB_PR or GITHUB_PUSH events based on the payload shape.
type GitHubWebhookHandler struct {
	bus      interfaces.EventBus
	validate *validator.Validate
	logger   arbor.ILogger
}

// NewGitHubWebhookHandler creates the GitHub webhook handler
func NewGitHubWebhookHandler(bus interfaces.EventBus, logger arbor.ILogger) *GitHubWebhookHandler {
	return &GitHubWebhookHandler{
		bus:      bus,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *GitHubWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isJSONRequest(r) {
		http.Error(w, "content type must be application/json", http.StatusBadRequest)
		return
	}

	var raw map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}

	// Re-marshal so the typed payloads can be validated
	data, err := json.Marshal(raw)
	if err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	var trigger interfaces.Trigger
	switch {
	case raw["pull_request"] != nil:
		var payload githubPRDelivery
		if err := json.Unmarshal(data, &payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid pull_request payload: %v", err), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid pull_request payload: %v", err), http.StatusBadRequest)
			return
		}
		trigger = interfaces.TriggerGithubPR

	case raw["commit"] != nil:
		var payload githubPushDelivery
		if err := json.Unmarshal(data, &payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid push payload: %v", err), http.StatusBadRequest)
			return
		}
		if err := h.validate.Struct(&payload); err != nil {
			http.Error(w, fmt.Sprintf("invalid push payload: %v", err), http.StatusBadRequest)
			return
		}
		trigger = interfaces.TriggerGithubPush

	default:
		http.Error(w, "unrecognized event payload", http.StatusBadRequest)
		return
	}

	payload := map[string]interface{}{
		"source":  "github",
		"payload": raw,
	}
	if err := h.bus.Publish(r.Context(), trigger, payload); err != nil {
		h.logger.Warn().Err(err).Str("trigger", string(trigger)).Msg("Failed to publish GitHub event")
		http.Error(w, "failed to process event", http.StatusInternalServerError)
		return
	}

	h.logger.Info().Str("trigger", string(trigger)).Msg("GitHub webhook processed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
