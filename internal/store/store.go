package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"inventaire-service/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schemaSQL string

type Store struct {
	db *sqlx.DB
}

// NewStore creates a new database store
func NewStore(databaseURL string) (*Store, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Store{db: db}, nil
}

// Migrate applies the embedded schema. Statements are idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// ListProduits retrieves all products
func (s *Store) ListProduits(ctx context.Context) ([]models.Produit, error) {
	var produits []models.Produit
	err := s.db.SelectContext(ctx, &produits, "SELECT * FROM produits ORDER BY produit_nom")
	return produits, err
}

// GetProduitByID retrieves a product, (nil, nil) when absent.
func (s *Store) GetProduitByID(ctx context.Context, id string) (*models.Produit, error) {
	var p models.Produit
	err := s.db.GetContext(ctx, &p, "SELECT * FROM produits WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduitByNom retrieves a product by case-insensitive name, (nil, nil) when absent.
func (s *Store) GetProduitByNom(ctx context.Context, nom string) (*models.Produit, error) {
	var p models.Produit
	err := s.db.GetContext(ctx, &p, "SELECT * FROM produits WHERE lower(produit_nom) = lower($1)", nom)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// GetProduitsByIDs retrieves multiple products by IDs
func (s *Store) GetProduitsByIDs(ctx context.Context, ids []string) ([]models.Produit, error) {
	if len(ids) == 0 {
		return []models.Produit{}, nil
	}

	query, args, err := sqlx.In("SELECT * FROM produits WHERE id IN (?)", ids)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var produits []models.Produit
	err = s.db.SelectContext(ctx, &produits, query, args...)
	return produits, err
}

// InsertProduit creates a new product
func (s *Store) InsertProduit(ctx context.Context, p *models.Produit) error {
	query := `
		INSERT INTO produits (produit_nom, produit_prix, produit_quantiter, disponible)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	return s.db.GetContext(ctx, &p.ID, query, p.Nom, p.Prix, p.Quantite, p.Disponible)
}

// UpdateProduit applies the field mask and returns the updated row,
// (nil, nil) when the product does not exist.
func (s *Store) UpdateProduit(ctx context.Context, id string, up models.ProduitUpdate) (*models.Produit, error) {
	sets := make([]string, 0, 4)
	args := make([]interface{}, 0, 5)

	add := func(col string, val interface{}) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}

	if up.Nom != nil {
		add("produit_nom", *up.Nom)
	}
	if up.Prix != nil {
		add("produit_prix", *up.Prix)
	}
	if up.Quantite != nil {
		add("produit_quantiter", *up.Quantite)
		add("disponible", *up.Quantite > 0)
	} else if up.Disponible != nil {
		add("disponible", *up.Disponible)
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE produits SET %s WHERE id = $%d RETURNING *",
		strings.Join(sets, ", "), len(args))

	var p models.Produit
	err := s.db.GetContext(ctx, &p, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeleteProduit removes a product and returns the deleted row,
// (nil, nil) when absent.
func (s *Store) DeleteProduit(ctx context.Context, id string) (*models.Produit, error) {
	var p models.Produit
	err := s.db.GetContext(ctx, &p, "DELETE FROM produits WHERE id = $1 RETURNING *", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DecrementStock atomically subtracts qty from the product's stock and
// recomputes disponible. The guard refuses to drive the counter negative:
// applied is false when current stock is below qty (or the product is
// gone), and no write happens.
func (s *Store) DecrementStock(ctx context.Context, id string, qty int) (newQty int, applied bool, err error) {
	err = s.db.GetContext(ctx, &newQty, `
		UPDATE produits
		SET produit_quantiter = produit_quantiter - $1,
		    disponible = (produit_quantiter - $1) > 0
		WHERE id = $2 AND produit_quantiter >= $1
		RETURNING produit_quantiter`, qty, id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return newQty, true, nil
}

// RestoreStock atomically adds qty back to the product's stock and
// recomputes disponible.
func (s *Store) RestoreStock(ctx context.Context, id string, qty int) (newQty int, err error) {
	err = s.db.GetContext(ctx, &newQty, `
		UPDATE produits
		SET produit_quantiter = produit_quantiter + $1,
		    disponible = (produit_quantiter + $1) > 0
		WHERE id = $2
		RETURNING produit_quantiter`, qty, id)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("produit not found: %s", id)
	}
	if err != nil {
		return 0, err
	}
	return newQty, nil
}
