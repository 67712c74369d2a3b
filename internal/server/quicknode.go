package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/argus/internal/interfaces"
)

// quickNodeDelivery is the envelope QuickNode posts: an object carrying a
// payload array of event objects.
type quickNodeDelivery struct {
	Payload []map[string]interface{} `json:"payload"`
}

// QuickNodeHandler accepts QuickNode alert deliveries. Each entry of the
// payload array becomes one BLOCKCHAIN_EVENT on the bus; structurally
// invalid deliveries are rejected before anything is published.
type QuickNodeHandler struct {
	bus    interfaces.EventBus
	logger arbor.ILogger
}

// NewQuickNodeHandler creates the QuickNode webhook handler
func NewQuickNodeHandler(bus interfaces.EventBus, logger arbor.ILogger) *QuickNodeHandler {
	return &QuickNodeHandler{
		bus:    bus,
		logger: logger,
	}
}

func (h *QuickNodeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !isJSONRequest(r) {
		http.Error(w, "content type must be application/json", http.StatusBadRequest)
		return
	}

	var delivery quickNodeDelivery
	if err := json.NewDecoder(r.Body).Decode(&delivery); err != nil {
		http.Error(w, fmt.Sprintf("invalid payload: %v", err), http.StatusBadRequest)
		return
	}
	if len(delivery.Payload) == 0 {
		http.Error(w, "payload array is missing or empty", http.StatusBadRequest)
		return
	}
	for i, event := range delivery.Payload {
		if err := validateQuickNodeEvent(event); err != nil {
			http.Error(w, fmt.Sprintf("payload[%d]: %v", i, err), http.StatusBadRequest)
			return
		}
	}

	published := 0
	for _, event := range delivery.Payload {
		payload := map[string]interface{}{
			"source":  "quicknode",
			"payload": event,
		}
		if err := h.bus.Publish(r.Context(), interfaces.TriggerBlockchainEvent, payload); err != nil {
			h.logger.Warn().Err(err).Msg("Failed to publish blockchain event")
			continue
		}
		published++
	}

	h.logger.Info().Int("events", published).Msg("QuickNode webhook processed")

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": "ok",
		"events": published,
	})
}

// validateQuickNodeEvent checks the alert structure: the event must carry a
// logs array whose entries each carry a topics array.
func validateQuickNodeEvent(event map[string]interface{}) error {
	logs, ok := event["logs"].([]interface{})
	if !ok {
		return fmt.Errorf("event missing logs array")
	}
	for i, entry := range logs {
		log, ok := entry.(map[string]interface{})
		if !ok {
			return fmt.Errorf("logs[%d] is not an object", i)
		}
		if _, ok := log["topics"].([]interface{}); !ok {
			return fmt.Errorf("logs[%d] missing topics array", i)
		}
	}
	return nil
}

// isJSONRequest accepts "application/json" with optional parameters such
// as "; charset=utf-8"
func isJSONRequest(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/json")
}
