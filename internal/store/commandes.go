package store

import (
	"context"
	"database/sql"

	"inventaire-service/internal/models"
)

// CreateCommande creates a new order header. Date and status come back
// from the database so the caller sees exactly what was persisted.
func (s *Store) CreateCommande(ctx context.Context, c *models.Commande) error {
	query := `
		INSERT INTO commandes (client_id, date, statut)
		VALUES ($1, CURRENT_DATE, $2)
		RETURNING id, date`

	return s.db.QueryRowxContext(ctx, query, c.ClientID, c.Statut).Scan(&c.ID, &c.Date)
}

// GetCommandeByID retrieves an order header, (nil, nil) when absent.
func (s *Store) GetCommandeByID(ctx context.Context, id string) (*models.Commande, error) {
	var c models.Commande
	err := s.db.GetContext(ctx, &c, "SELECT * FROM commandes WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListCommandes retrieves all order headers, most recent first.
func (s *Store) ListCommandes(ctx context.Context) ([]models.Commande, error) {
	var commandes []models.Commande
	err := s.db.SelectContext(ctx, &commandes,
		"SELECT id, client_id, date, statut FROM commandes ORDER BY date DESC")
	return commandes, err
}

// UpdateCommandeStatut persists a new status.
func (s *Store) UpdateCommandeStatut(ctx context.Context, id, statut string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE commandes SET statut = $1 WHERE id = $2", statut, id)
	return err
}

// DeleteCommande removes an order header and returns the deleted row,
// (nil, nil) when absent.
func (s *Store) DeleteCommande(ctx context.Context, id string) (*models.Commande, error) {
	var c models.Commande
	err := s.db.GetContext(ctx, &c, "DELETE FROM commandes WHERE id = $1 RETURNING *", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// InsertLignes inserts all lines of an order.
func (s *Store) InsertLignes(ctx context.Context, lignes []models.LigneCommande) error {
	for i := range lignes {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO commande_produit (commande_id, produit_id, commande_produit_quantite, prix_unitaire)
			VALUES ($1, $2, $3, $4)`,
			lignes[i].CommandeID, lignes[i].ProduitID, lignes[i].Quantite, lignes[i].PrixUnitaire)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetLignesByCommandeID retrieves all lines of an order.
func (s *Store) GetLignesByCommandeID(ctx context.Context, commandeID string) ([]models.LigneCommande, error) {
	var lignes []models.LigneCommande
	err := s.db.SelectContext(ctx, &lignes,
		"SELECT * FROM commande_produit WHERE commande_id = $1", commandeID)
	return lignes, err
}

// UpdateLigneQuantite changes the quantity of one line. The captured
// unit price is left untouched.
func (s *Store) UpdateLigneQuantite(ctx context.Context, commandeID, produitID string, quantite int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE commande_produit SET commande_produit_quantite = $1
		WHERE commande_id = $2 AND produit_id = $3`,
		quantite, commandeID, produitID)
	return err
}

// DeleteLigne removes one line of an order.
func (s *Store) DeleteLigne(ctx context.Context, commandeID, produitID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM commande_produit WHERE commande_id = $1 AND produit_id = $2",
		commandeID, produitID)
	return err
}

// DeleteLignesByCommandeID removes every line of an order.
func (s *Store) DeleteLignesByCommandeID(ctx context.Context, commandeID string) error {
	_, err := s.db.ExecContext(ctx,
		"DELETE FROM commande_produit WHERE commande_id = $1", commandeID)
	return err
}

// GetClientByID retrieves a client, (nil, nil) when absent.
func (s *Store) GetClientByID(ctx context.Context, id string) (*models.Client, error) {
	var c models.Client
	err := s.db.GetContext(ctx, &c, "SELECT * FROM clients WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListClients retrieves all clients.
func (s *Store) ListClients(ctx context.Context) ([]models.Client, error) {
	var clients []models.Client
	err := s.db.SelectContext(ctx, &clients,
		"SELECT id, client_nom, client_prenom, client_email, client_cell FROM clients")
	return clients, err
}

// GetUtilisateurByEmail retrieves a user, (nil, nil) when absent.
func (s *Store) GetUtilisateurByEmail(ctx context.Context, email string) (*models.Utilisateur, error) {
	var u models.Utilisateur
	err := s.db.GetContext(ctx, &u,
		"SELECT * FROM utilisateurs WHERE utilisateur_email = $1", email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUtilisateur creates a user and fills in the generated id.
func (s *Store) CreateUtilisateur(ctx context.Context, u *models.Utilisateur) error {
	query := `
		INSERT INTO utilisateurs (utilisateur_nom, utilisateur_email, mdp, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.db.GetContext(ctx, &u.ID, query, u.Nom, u.Email, u.MDP, u.Role)
}
