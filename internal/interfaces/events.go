package interfaces

import (
	"context"

	"github.com/ternarybob/argus/internal/models"
)

// Trigger is a named event kind that fans out to handlers
type Trigger string

// Built-in triggers. Additional triggers can be minted at runtime through
// the event bus's RegisterCustom.
const (
	TriggerNewProject       Trigger = "NEW_PROJECT"
	TriggerProjectUpdate    Trigger = "PROJECT_UPDATE"
	TriggerProjectRemove    Trigger = "PROJECT_REMOVE"
	TriggerNewAsset         Trigger = "NEW_ASSET"
	TriggerAssetUpdate      Trigger = "ASSET_UPDATE"
	TriggerAssetRemove      Trigger = "ASSET_REMOVE"
	TriggerGithubPush       Trigger = "GITHUB_PUSH"
	TriggerGithubPR         Trigger = "GITHUB_PR"
	TriggerBlockchainEvent  Trigger = "BLOCKCHAIN_EVENT"
	TriggerContractUpgraded Trigger = "CONTRACT_UPGRADED"
)

// Event is the unit published on the bus
type Event struct {
	Trigger Trigger                `json:"trigger"`
	Payload map[string]interface{} `json:"payload"`
}

// EventHandler is a reactive unit that consumes events. Handlers for the
// same trigger run concurrently; state must be confined to Handle locals.
type EventHandler interface {
	Name() string
	Triggers() []Trigger
	Handle(ctx context.Context, event Event) (*models.HandlerResult, error)
}

// EventBus maps triggers to handler sets and fans events out to them,
// writing one event log row per handler invocation.
type EventBus interface {
	Subscribe(handler EventHandler) error
	Publish(ctx context.Context, trigger Trigger, payload map[string]interface{}) error
	RegisterCustom(name string) Trigger
	Close() error
}
