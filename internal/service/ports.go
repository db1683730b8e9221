package service

import (
	"context"
	"time"

	"inventaire-service/internal/models"
)

// ProduitStore is the product-side storage the engine reads and adjusts.
type ProduitStore interface {
	ListProduits(ctx context.Context) ([]models.Produit, error)
	GetProduitByID(ctx context.Context, id string) (*models.Produit, error)
	GetProduitByNom(ctx context.Context, nom string) (*models.Produit, error)
	GetProduitsByIDs(ctx context.Context, ids []string) ([]models.Produit, error)
	InsertProduit(ctx context.Context, p *models.Produit) error
	UpdateProduit(ctx context.Context, id string, up models.ProduitUpdate) (*models.Produit, error)
	DeleteProduit(ctx context.Context, id string) (*models.Produit, error)
	DecrementStock(ctx context.Context, id string, qty int) (newQty int, applied bool, err error)
	RestoreStock(ctx context.Context, id string, qty int) (newQty int, err error)
}

// CommandeStore is the order-side storage: headers and lines.
type CommandeStore interface {
	CreateCommande(ctx context.Context, c *models.Commande) error
	GetCommandeByID(ctx context.Context, id string) (*models.Commande, error)
	ListCommandes(ctx context.Context) ([]models.Commande, error)
	UpdateCommandeStatut(ctx context.Context, id, statut string) error
	DeleteCommande(ctx context.Context, id string) (*models.Commande, error)
	InsertLignes(ctx context.Context, lignes []models.LigneCommande) error
	GetLignesByCommandeID(ctx context.Context, commandeID string) ([]models.LigneCommande, error)
	UpdateLigneQuantite(ctx context.Context, commandeID, produitID string, quantite int) error
	DeleteLigne(ctx context.Context, commandeID, produitID string) error
	DeleteLignesByCommandeID(ctx context.Context, commandeID string) error
}

// ClientStore is read-only from the engine's perspective.
type ClientStore interface {
	GetClientByID(ctx context.Context, id string) (*models.Client, error)
	ListClients(ctx context.Context) ([]models.Client, error)
}

// UtilisateurStore backs login and admin seeding.
type UtilisateurStore interface {
	GetUtilisateurByEmail(ctx context.Context, email string) (*models.Utilisateur, error)
	CreateUtilisateur(ctx context.Context, u *models.Utilisateur) error
}

// Locker serializes the decide-and-write window per product. Best effort:
// the engine degrades to lock-free operation when a lock is unavailable.
type Locker interface {
	AcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
}

// Publisher emits domain events after successful mutations. Publishing
// failures never alter the HTTP result.
type Publisher interface {
	PublishCommandeCreee(ctx context.Context, event *models.CommandeCreeeEvent) error
	PublishCommandeStatut(ctx context.Context, event *models.CommandeStatutEvent) error
	PublishCommandeSupprimee(ctx context.Context, event *models.CommandeSupprimeeEvent) error
	PublishStockAjuste(ctx context.Context, event *models.StockAjusteEvent) error
}

// ProduitCache caches the product list; it is invalidated on every
// product mutation, stock writes included.
type ProduitCache interface {
	GetProduitsCache(ctx context.Context) ([]models.Produit, bool)
	SetProduitsCache(ctx context.Context, produits []models.Produit) error
	InvalidateProduits(ctx context.Context) error
}
