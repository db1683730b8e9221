package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// The legacy API serializes prices and totals as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Produit is a catalog product with its quantity on hand.
// "disponible" is derived: it must equal produit_quantiter > 0 after
// every stock mutation.
type Produit struct {
	ID         string          `db:"id" json:"id"`
	Nom        string          `db:"produit_nom" json:"produit_nom"`
	Prix       decimal.Decimal `db:"produit_prix" json:"produit_prix"`
	Quantite   int             `db:"produit_quantiter" json:"produit_quantiter"`
	Disponible bool            `db:"disponible" json:"disponible"`
}

// ProduitUpdate is the field mask accepted by product PATCH: only the
// fields present in the request are applied.
type ProduitUpdate struct {
	Nom        *string          `json:"produit_nom,omitempty"`
	Prix       *decimal.Decimal `json:"produit_prix,omitempty"`
	Quantite   *int             `json:"produit_quantiter,omitempty"`
	Disponible *bool            `json:"disponible,omitempty"`
}

// Empty reports whether the mask carries no field at all.
func (u ProduitUpdate) Empty() bool {
	return u.Nom == nil && u.Prix == nil && u.Quantite == nil && u.Disponible == nil
}

// Commande is an order header. Status is one of the Statut* constants;
// a new order always starts "En cours". The total is never stored, it is
// recomputed from the lines on every read.
type Commande struct {
	ID       string    `db:"id" json:"id"`
	ClientID string    `db:"client_id" json:"client_id"`
	Date     time.Time `db:"date" json:"date"`
	Statut   string    `db:"statut" json:"statut"`
}

// LigneCommande is one product line of an order. The unit price is
// captured when the line is created and never re-derived afterwards.
type LigneCommande struct {
	CommandeID   string          `db:"commande_id" json:"commande_id"`
	ProduitID    string          `db:"produit_id" json:"produit_id"`
	Quantite     int             `db:"commande_produit_quantite" json:"commande_produit_quantite"`
	PrixUnitaire decimal.Decimal `db:"prix_unitaire" json:"prix_unitaire"`
}

// Client is read-only from the engine's perspective; only its existence
// is checked before an order is created.
type Client struct {
	ID     string `db:"id" json:"id"`
	Nom    string `db:"client_nom" json:"client_nom"`
	Prenom string `db:"client_prenom" json:"client_prenom"`
	Email  string `db:"client_email" json:"client_email"`
	Cell   string `db:"client_cell" json:"client_cell"`
}

// Utilisateur is an application user. MDP holds the bcrypt hash.
type Utilisateur struct {
	ID    string `db:"id" json:"id"`
	Nom   string `db:"utilisateur_nom" json:"utilisateur_nom"`
	Email string `db:"utilisateur_email" json:"utilisateur_email"`
	MDP   string `db:"mdp" json:"-"`
	Role  string `db:"role" json:"role"`
}

// Order statuses (no "Payée" state)
const (
	StatutEnCours = "En cours"
	StatutLivree  = "Livrée"
	StatutAnnulee = "Annulée"
)

// StatutValide reports whether s is one of the three allowed statuses.
func StatutValide(s string) bool {
	return s == StatutEnCours || s == StatutLivree || s == StatutAnnulee
}

// Finalisee reports whether the order is in a terminal state, making it
// immutable for deletion and line replacement.
func (c *Commande) Finalisee() bool {
	return c.Statut == StatutLivree || c.Statut == StatutAnnulee
}

// TotalLignes computes Σ quantité × prix_unitaire over the given lines.
func TotalLignes(lignes []LigneCommande) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lignes {
		total = total.Add(l.PrixUnitaire.Mul(decimal.NewFromInt(int64(l.Quantite))))
	}
	return total
}
