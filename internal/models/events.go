package models

import "time"

// Event types
const (
	EventTypeCommandeCreee     = "COMMANDE_CREEE"
	EventTypeCommandeStatut    = "COMMANDE_STATUT_CHANGE"
	EventTypeCommandeSupprimee = "COMMANDE_SUPPRIMEE"
	EventTypeStockAjuste       = "STOCK_AJUSTE"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// LigneData is the line payload carried by order events.
type LigneData struct {
	ProduitID    string `json:"produit_id"`
	Quantite     int    `json:"quantite"`
	PrixUnitaire string `json:"prix_unitaire"`
}

// CommandeCreeeEvent is published after an order and its lines are durable.
type CommandeCreeeEvent struct {
	BaseEvent
	CommandeID string      `json:"commande_id"`
	ClientID   string      `json:"client_id"`
	Total      string      `json:"total"`
	Lignes     []LigneData `json:"lignes"`
}

// CommandeStatutEvent is published on a real status transition (never on
// a no-op change).
type CommandeStatutEvent struct {
	BaseEvent
	CommandeID    string `json:"commande_id"`
	AncienStatut  string `json:"ancien_statut"`
	NouveauStatut string `json:"nouveau_statut"`
}

// CommandeSupprimeeEvent is published after an order and its lines are gone.
type CommandeSupprimeeEvent struct {
	BaseEvent
	CommandeID string `json:"commande_id"`
	Statut     string `json:"statut"`
}

// StockAjusteEvent is published for every stock counter change the engine
// applies. Delta is negative for decrements.
type StockAjusteEvent struct {
	BaseEvent
	ProduitID        string `json:"produit_id"`
	Delta            int    `json:"delta"`
	NouvelleQuantite int    `json:"nouvelle_quantite"`
}
