package service

import (
	"context"
	"testing"

	"inventaire-service/internal/models"
	"inventaire-service/internal/store/memory"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreerProduit(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	p, err := svc.CreerProduit(ctx, &CreerProduitRequest{
		Nom:      "Clavier mécanique",
		Prix:     decimal.RequireFromString("129.99"),
		Quantite: 12,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.True(t, p.Disponible, "disponible absent doit valoir true")

	faux := false
	p2, err := svc.CreerProduit(ctx, &CreerProduitRequest{
		Nom:        "Souris filaire",
		Prix:       decimal.RequireFromString("9.99"),
		Quantite:   0,
		Disponible: &faux,
	})
	require.NoError(t, err)
	assert.False(t, p2.Disponible)
}

func TestCreerProduitNomDuplique(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	_, err := svc.CreerProduit(ctx, &CreerProduitRequest{
		Nom:  "Webcam",
		Prix: decimal.RequireFromString("45.00"),
	})
	require.NoError(t, err)

	// Case-insensitive duplicate.
	_, err = svc.CreerProduit(ctx, &CreerProduitRequest{
		Nom:  "WEBCAM",
		Prix: decimal.RequireFromString("50.00"),
	})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
}

func TestCreerProduitInvalide(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	cases := []struct {
		name string
		req  CreerProduitRequest
	}{
		{"nom vide", CreerProduitRequest{Prix: decimal.RequireFromString("1.00")}},
		{"prix négatif", CreerProduitRequest{Nom: "X", Prix: decimal.RequireFromString("-1.00")}},
		{"quantité négative", CreerProduitRequest{Nom: "X", Prix: decimal.RequireFromString("1.00"), Quantite: -1}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreerProduit(ctx, &tc.req)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
		})
	}
}

func TestModifierProduit(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	p := mem.SeedProduit(models.Produit{
		Nom:      "Tablette",
		Prix:     decimal.RequireFromString("299.00"),
		Quantite: 4,
	})

	nouveauNom := "Tablette 10 pouces"
	updated, err := svc.ModifierProduit(ctx, p.ID, models.ProduitUpdate{Nom: &nouveauNom})
	require.NoError(t, err)
	assert.Equal(t, nouveauNom, updated.Nom)
	assert.Equal(t, 4, updated.Quantite, "champs hors masque inchangés")

	// Setting the quantity recomputes disponible.
	zero := 0
	updated, err = svc.ModifierProduit(ctx, p.ID, models.ProduitUpdate{Quantite: &zero})
	require.NoError(t, err)
	assert.Equal(t, 0, updated.Quantite)
	assert.False(t, updated.Disponible)

	cinq := 5
	updated, err = svc.ModifierProduit(ctx, p.ID, models.ProduitUpdate{Quantite: &cinq})
	require.NoError(t, err)
	assert.True(t, updated.Disponible)
}

func TestModifierProduitMasqueVide(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	p := mem.SeedProduit(models.Produit{Nom: "Support", Prix: decimal.RequireFromString("19.00"), Quantite: 1})

	_, err := svc.ModifierProduit(ctx, p.ID, models.ProduitUpdate{})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestModifierProduitIntrouvable(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	nom := "Fantôme"
	_, err := svc.ModifierProduit(ctx, uuid.New().String(), models.ProduitUpdate{Nom: &nom})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSupprimerProduit(t *testing.T) {
	ctx := context.Background()
	mem := memory.NewStore()
	svc := NewProduitService(mem, nil)

	p := mem.SeedProduit(models.Produit{Nom: "Ruban", Prix: decimal.RequireFromString("3.00"), Quantite: 2})

	deleted, err := svc.SupprimerProduit(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, deleted.ID)

	_, err = svc.SupprimerProduit(ctx, p.ID)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}
