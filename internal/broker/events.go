package broker

import (
	"context"
	"encoding/json"
	"fmt"

	"inventaire-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishCommandeCreee publishes a CommandeCreee event
func (ep *EventPublisher) PublishCommandeCreee(ctx context.Context, event *models.CommandeCreeeEvent) error {
	return ep.producer.PublishEvent(ctx, "commande-"+event.CommandeID, event)
}

// PublishCommandeStatut publishes a CommandeStatut event
func (ep *EventPublisher) PublishCommandeStatut(ctx context.Context, event *models.CommandeStatutEvent) error {
	return ep.producer.PublishEvent(ctx, "commande-"+event.CommandeID, event)
}

// PublishCommandeSupprimee publishes a CommandeSupprimee event
func (ep *EventPublisher) PublishCommandeSupprimee(ctx context.Context, event *models.CommandeSupprimeeEvent) error {
	return ep.producer.PublishEvent(ctx, "commande-"+event.CommandeID, event)
}

// PublishStockAjuste publishes a StockAjuste event
func (ep *EventPublisher) PublishStockAjuste(ctx context.Context, event *models.StockAjusteEvent) error {
	return ep.producer.PublishEvent(ctx, "produit-"+event.ProduitID, event)
}

// EventHandler routes consumed messages to per-type callbacks.
type EventHandler struct {
	onStockAjuste       func(context.Context, *models.StockAjusteEvent) error
	onCommandeSupprimee func(context.Context, *models.CommandeSupprimeeEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnStockAjuste registers a handler for StockAjuste events
func (eh *EventHandler) OnStockAjuste(handler func(context.Context, *models.StockAjusteEvent) error) {
	eh.onStockAjuste = handler
}

// OnCommandeSupprimee registers a handler for CommandeSupprimee events
func (eh *EventHandler) OnCommandeSupprimee(handler func(context.Context, *models.CommandeSupprimeeEvent) error) {
	eh.onCommandeSupprimee = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	switch baseEvent.EventType {
	case models.EventTypeStockAjuste:
		if eh.onStockAjuste != nil {
			var event models.StockAjusteEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal StockAjuste event: %w", err)
			}
			return eh.onStockAjuste(ctx, &event)
		}

	case models.EventTypeCommandeSupprimee:
		if eh.onCommandeSupprimee != nil {
			var event models.CommandeSupprimeeEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal CommandeSupprimee event: %w", err)
			}
			return eh.onCommandeSupprimee(ctx, &event)
		}
	}

	return nil
}
