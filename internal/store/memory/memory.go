// Package memory provides an in-memory implementation of the service
// storage ports, used by tests and local experiments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"inventaire-service/internal/models"

	"github.com/google/uuid"
)

type Store struct {
	mu           sync.Mutex
	produits     map[string]models.Produit
	commandes    map[string]models.Commande
	lignes       map[string][]models.LigneCommande
	clients      map[string]models.Client
	utilisateurs map[string]models.Utilisateur

	// Error injection for failure-path tests.
	DecrementErr    error
	InsertLignesErr error
}

func NewStore() *Store {
	return &Store{
		produits:     make(map[string]models.Produit),
		commandes:    make(map[string]models.Commande),
		lignes:       make(map[string][]models.LigneCommande),
		clients:      make(map[string]models.Client),
		utilisateurs: make(map[string]models.Utilisateur),
	}
}

// SeedProduit inserts a product directly, bypassing validation.
func (s *Store) SeedProduit(p models.Produit) models.Produit {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.Disponible = p.Quantite > 0
	s.produits[p.ID] = p
	return p
}

// SeedClient inserts a client directly.
func (s *Store) SeedClient(c models.Client) models.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	s.clients[c.ID] = c
	return c
}

func (s *Store) ListProduits(ctx context.Context) ([]models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Produit, 0, len(s.produits))
	for _, p := range s.produits {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Nom < out[j].Nom })
	return out, nil
}

func (s *Store) GetProduitByID(ctx context.Context, id string) (*models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.produits[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *Store) GetProduitByNom(ctx context.Context, nom string) (*models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.produits {
		if strings.EqualFold(p.Nom, nom) {
			cp := p
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) GetProduitsByIDs(ctx context.Context, ids []string) ([]models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Produit, 0, len(ids))
	for _, id := range ids {
		if p, ok := s.produits[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *Store) InsertProduit(ctx context.Context, p *models.Produit) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.New().String()
	s.produits[p.ID] = *p
	return nil
}

func (s *Store) UpdateProduit(ctx context.Context, id string, up models.ProduitUpdate) (*models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.produits[id]
	if !ok {
		return nil, nil
	}
	if up.Nom != nil {
		p.Nom = *up.Nom
	}
	if up.Prix != nil {
		p.Prix = *up.Prix
	}
	if up.Quantite != nil {
		p.Quantite = *up.Quantite
		p.Disponible = *up.Quantite > 0
	} else if up.Disponible != nil {
		p.Disponible = *up.Disponible
	}
	s.produits[id] = p
	return &p, nil
}

func (s *Store) DeleteProduit(ctx context.Context, id string) (*models.Produit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.produits[id]
	if !ok {
		return nil, nil
	}
	delete(s.produits, id)
	return &p, nil
}

func (s *Store) DecrementStock(ctx context.Context, id string, qty int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.DecrementErr != nil {
		return 0, false, s.DecrementErr
	}
	p, ok := s.produits[id]
	if !ok || p.Quantite < qty {
		return 0, false, nil
	}
	p.Quantite -= qty
	p.Disponible = p.Quantite > 0
	s.produits[id] = p
	return p.Quantite, true, nil
}

func (s *Store) RestoreStock(ctx context.Context, id string, qty int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.produits[id]
	if !ok {
		return 0, fmt.Errorf("produit not found: %s", id)
	}
	p.Quantite += qty
	p.Disponible = p.Quantite > 0
	s.produits[id] = p
	return p.Quantite, nil
}

func (s *Store) CreateCommande(ctx context.Context, c *models.Commande) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = uuid.New().String()
	if c.Date.IsZero() {
		c.Date = time.Now()
	}
	s.commandes[c.ID] = *c
	return nil
}

func (s *Store) GetCommandeByID(ctx context.Context, id string) (*models.Commande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commandes[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListCommandes(ctx context.Context) ([]models.Commande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Commande, 0, len(s.commandes))
	for _, c := range s.commandes {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) UpdateCommandeStatut(ctx context.Context, id, statut string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commandes[id]
	if !ok {
		return fmt.Errorf("commande not found: %s", id)
	}
	c.Statut = statut
	s.commandes[id] = c
	return nil
}

func (s *Store) DeleteCommande(ctx context.Context, id string) (*models.Commande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.commandes[id]
	if !ok {
		return nil, nil
	}
	delete(s.commandes, id)
	return &c, nil
}

func (s *Store) InsertLignes(ctx context.Context, lignes []models.LigneCommande) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertLignesErr != nil {
		return s.InsertLignesErr
	}
	for _, l := range lignes {
		s.lignes[l.CommandeID] = append(s.lignes[l.CommandeID], l)
	}
	return nil
}

func (s *Store) GetLignesByCommandeID(ctx context.Context, commandeID string) ([]models.LigneCommande, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.LigneCommande(nil), s.lignes[commandeID]...), nil
}

func (s *Store) UpdateLigneQuantite(ctx context.Context, commandeID, produitID string, quantite int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lignes := s.lignes[commandeID]
	for i := range lignes {
		if lignes[i].ProduitID == produitID {
			lignes[i].Quantite = quantite
			return nil
		}
	}
	return fmt.Errorf("ligne not found: %s/%s", commandeID, produitID)
}

func (s *Store) DeleteLigne(ctx context.Context, commandeID, produitID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	lignes := s.lignes[commandeID]
	out := lignes[:0]
	for _, l := range lignes {
		if l.ProduitID != produitID {
			out = append(out, l)
		}
	}
	s.lignes[commandeID] = out
	return nil
}

func (s *Store) DeleteLignesByCommandeID(ctx context.Context, commandeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lignes, commandeID)
	return nil
}

func (s *Store) GetClientByID(ctx context.Context, id string) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.clients[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Client, 0, len(s.clients))
	for _, c := range s.clients {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) GetUtilisateurByEmail(ctx context.Context, email string) (*models.Utilisateur, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.utilisateurs {
		if u.Email == email {
			cp := u
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) CreateUtilisateur(ctx context.Context, u *models.Utilisateur) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = uuid.New().String()
	s.utilisateurs[u.ID] = *u
	return nil
}
