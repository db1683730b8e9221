package worker

import (
	"context"
	"log"

	"inventaire-service/internal/broker"
	"inventaire-service/internal/models"
	"inventaire-service/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker watches stock adjustment events and raises an alert
// whenever a product's quantity falls to or below the configured
// threshold. Alerts are a log line plus a counter; they never block the
// request that caused the adjustment.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, threshold int) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:  consumer,
		threshold: threshold,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnStockAjuste(w.handleStockAjuste)
	eventHandler.OnCommandeSupprimee(w.handleCommandeSupprimee)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	log.Println("Starting stock alert worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	log.Println("Stopping stock alert worker...")
	return w.consumer.Close()
}

func (w *StockAlertWorker) handleStockAjuste(ctx context.Context, event *models.StockAjusteEvent) error {
	if event.Delta >= 0 || event.NouvelleQuantite > w.threshold {
		return nil
	}

	util.LowStockAlertsTotal.Inc()
	w.logger.Warn("Stock bas",
		zap.String("produit_id", event.ProduitID),
		zap.Int("quantite", event.NouvelleQuantite),
		zap.Int("seuil", w.threshold))
	return nil
}

func (w *StockAlertWorker) handleCommandeSupprimee(ctx context.Context, event *models.CommandeSupprimeeEvent) error {
	w.logger.Info("Commande supprimée, stock restitué",
		zap.String("commande_id", event.CommandeID),
		zap.String("statut", event.Statut))
	return nil
}
