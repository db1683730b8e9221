package service

import (
	"context"
	"fmt"

	"inventaire-service/internal/models"
	"inventaire-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProduitService handles product management. Stock mutations outside
// direct edits stay the reconciliation engine's job.
type ProduitService struct {
	produits ProduitStore
	cache    ProduitCache
	logger   *zap.Logger
}

// NewProduitService creates a new product service. cache may be nil.
func NewProduitService(produits ProduitStore, cache ProduitCache) *ProduitService {
	return &ProduitService{
		produits: produits,
		cache:    cache,
		logger:   util.GetLogger(),
	}
}

// CreerProduitRequest carries the payload of POST /api/produit.
type CreerProduitRequest struct {
	Nom        string          `json:"produit_nom"`
	Prix       decimal.Decimal `json:"produit_prix"`
	Quantite   int             `json:"produit_quantiter"`
	Disponible *bool           `json:"disponible"`
}

// ListProduits returns all products, served from cache when possible.
func (s *ProduitService) ListProduits(ctx context.Context) ([]models.Produit, error) {
	if s.cache != nil {
		if produits, ok := s.cache.GetProduitsCache(ctx); ok {
			return produits, nil
		}
	}

	produits, err := s.produits.ListProduits(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list produits: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.SetProduitsCache(ctx, produits); err != nil {
			s.logger.Warn("Failed to cache produits", zap.Error(err))
		}
	}
	return produits, nil
}

// CreerProduit validates and inserts a product. Duplicate names are
// rejected case-insensitively. disponible defaults to true when absent.
func (s *ProduitService) CreerProduit(ctx context.Context, req *CreerProduitRequest) (*models.Produit, error) {
	if req.Nom == "" || len(req.Nom) > 120 {
		return nil, &ValidationError{Msg: "produit_nom invalide."}
	}
	if req.Prix.IsNegative() {
		return nil, &ValidationError{Msg: "produit_prix doit être positif."}
	}
	if req.Quantite < 0 {
		return nil, &ValidationError{Msg: "produit_quantiter doit être positif ou nul."}
	}

	existing, err := s.produits.GetProduitByNom(ctx, req.Nom)
	if err != nil {
		return nil, fmt.Errorf("failed to check produit name: %w", err)
	}
	if existing != nil {
		return nil, &ConflictError{Msg: "Un produit avec ce nom existe déjà."}
	}

	disponible := true
	if req.Disponible != nil {
		disponible = *req.Disponible
	}

	produit := &models.Produit{
		Nom:        req.Nom,
		Prix:       req.Prix,
		Quantite:   req.Quantite,
		Disponible: disponible,
	}
	if err := s.produits.InsertProduit(ctx, produit); err != nil {
		return nil, fmt.Errorf("failed to insert produit: %w", err)
	}

	s.invalidate(ctx)
	s.logger.Info("Produit créé",
		zap.String("produit_id", produit.ID),
		zap.String("nom", produit.Nom))
	return produit, nil
}

// ModifierProduit applies a field mask. An empty mask is rejected; an
// absent product yields NotFound. Updating the quantity recomputes
// disponible rather than trusting a stale flag.
func (s *ProduitService) ModifierProduit(ctx context.Context, id string, up models.ProduitUpdate) (*models.Produit, error) {
	if !estUUID(id) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}
	if up.Empty() {
		return nil, &ValidationError{Msg: "Aucun champ à mettre à jour."}
	}
	if up.Prix != nil && up.Prix.IsNegative() {
		return nil, &ValidationError{Msg: "produit_prix doit être positif."}
	}
	if up.Quantite != nil && *up.Quantite < 0 {
		return nil, &ValidationError{Msg: "produit_quantiter doit être positif ou nul."}
	}

	produit, err := s.produits.UpdateProduit(ctx, id, up)
	if err != nil {
		return nil, fmt.Errorf("failed to update produit: %w", err)
	}
	if produit == nil {
		return nil, &NotFoundError{Msg: "Produit introuvable."}
	}

	s.invalidate(ctx)
	s.logger.Info("Produit modifié", zap.String("produit_id", id))
	return produit, nil
}

// SupprimerProduit removes a product and returns the deleted row.
func (s *ProduitService) SupprimerProduit(ctx context.Context, id string) (*models.Produit, error) {
	if !estUUID(id) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}

	produit, err := s.produits.DeleteProduit(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete produit: %w", err)
	}
	if produit == nil {
		return nil, &NotFoundError{Msg: "Produit introuvable."}
	}

	s.invalidate(ctx)
	s.logger.Info("Produit supprimé", zap.String("produit_id", id))
	return produit, nil
}

func (s *ProduitService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduits(ctx); err != nil {
		s.logger.Warn("Failed to invalidate produits cache", zap.Error(err))
	}
}
