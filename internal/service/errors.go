package service

import (
	"fmt"

	"inventaire-service/internal/models"
)

// ValidationError covers malformed or missing input. Maps to HTTP 400.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// NotFoundError covers references to absent entities. Maps to HTTP 404.
type NotFoundError struct {
	Msg string
}

func (e *NotFoundError) Error() string { return e.Msg }

// InsufficientStockError rejects an order item whose requested quantity
// exceeds the product's current stock. Maps to HTTP 400.
type InsufficientStockError struct {
	ProduitID string
	Nom       string
	Stock     int
	Demande   int
}

func (e *InsufficientStockError) Error() string {
	nom := e.Nom
	if nom == "" {
		nom = e.ProduitID
	}
	return fmt.Sprintf("Stock insuffisant pour %s (stock=%d, demandé=%d)", nom, e.Stock, e.Demande)
}

// ConflictError covers operations not allowed in the entity's current
// state, such as deleting a finalized order.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// PartialFailureError reports that the order header and lines are durable
// but a dependent stock update failed. The created state is carried so
// the handler can return it with a 207.
type PartialFailureError struct {
	Commande *models.Commande
	Lignes   []models.LigneCommande
	Err      error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("Commande créée mais une mise à jour de stock a échoué: %v", e.Err)
}

func (e *PartialFailureError) Unwrap() error { return e.Err }
