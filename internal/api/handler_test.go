package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"inventaire-service/internal/models"
	"inventaire-service/internal/service"
	"inventaire-service/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestRouter(t *testing.T) (*gin.Engine, *memory.Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mem := memory.NewStore()
	commandes := service.NewCommandeService(mem, mem, mem, nil, nil, nil, false)
	produits := service.NewProduitService(mem, nil)
	auth := service.NewAuthService(mem, "test-secret", 3600, bcrypt.MinCost)
	factures := service.NewFactureService()

	handler := NewHandler(commandes, produits, auth, factures, mem)
	router := gin.New()
	handler.SetupRoutes(router)
	return router, mem
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), "body: %s", w.Body.String())
	return out
}

func adminToken(t *testing.T, router *gin.Engine) string {
	t.Helper()
	w := doJSON(t, router, http.MethodPost, "/api/user/seed-admin", gin.H{
		"nom": "Admin", "email": "admin@example.com", "password": "motdepasse",
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decodeBody(t, w)["token"].(string)
}

func TestCreateCommandeEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy", Prenom: "Anne", Email: "anne@example.com"})
	produit := mem.SeedProduit(models.Produit{Nom: "Clavier", Prix: decimal.RequireFromString("89.99"), Quantite: 5})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"produit_id": produit.ID, "quantite": 2}},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Commande créée (statut: En cours).", body["message"])

	commande := body["commande"].(map[string]interface{})
	assert.Equal(t, "En cours", commande["statut"])
	assert.Equal(t, 179.98, commande["total"])
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, commande["date"])
	assert.Len(t, body["lignes"].([]interface{}), 1)
}

func TestCreateCommandeLegacyProduitsKey(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy"})
	produit := mem.SeedProduit(models.Produit{Nom: "Souris", Prix: decimal.RequireFromString("25.50"), Quantite: 5})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"produits":  []gin.H{{"produit_id": produit.ID, "quantite": 1}},
	}, nil)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestCreateCommandeStockInsuffisant(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy"})
	produit := mem.SeedProduit(models.Produit{Nom: "Écran", Prix: decimal.RequireFromString("199.00"), Quantite: 2})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"produit_id": produit.ID, "quantite": 5}},
	}, nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decodeBody(t, w)
	assert.Equal(t, "Stock insuffisant pour Écran (stock=2, demandé=5)", body["error"])
}

func TestChangeStatutEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy"})
	produit := mem.SeedProduit(models.Produit{Nom: "Lampe", Prix: decimal.RequireFromString("30.00"), Quantite: 5})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"produit_id": produit.ID, "quantite": 1}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["commande"].(map[string]interface{})["id"].(string)

	w = doJSON(t, router, http.MethodPatch, "/api/commandes/"+id+"/statut", gin.H{"statut": "Livrée"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Statut mis à jour.", decodeBody(t, w)["message"])

	// Same status again: reported no-op.
	w = doJSON(t, router, http.MethodPatch, "/api/commandes/"+id+"/statut", gin.H{"statut": "Livrée"}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Aucun changement.", decodeBody(t, w)["message"])

	// Finalized order cannot be deleted.
	w = doJSON(t, router, http.MethodDelete, "/api/commandes/"+id, nil, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteCommandeEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy"})
	produit := mem.SeedProduit(models.Produit{Nom: "Table", Prix: decimal.RequireFromString("120.00"), Quantite: 6})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"produit_id": produit.ID, "quantite": 4}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["commande"].(map[string]interface{})["id"].(string)

	w = doJSON(t, router, http.MethodDelete, "/api/commandes/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Commande supprimée.", decodeBody(t, w)["message"])

	w = doJSON(t, router, http.MethodGet, "/api/commandes/"+id, nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Commande introuvable.", decodeBody(t, w)["error"])
}

func TestReplaceLignesEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	client := mem.SeedClient(models.Client{Nom: "Roy"})
	p1 := mem.SeedProduit(models.Produit{Nom: "Cahier", Prix: decimal.RequireFromString("4.00"), Quantite: 20})
	p2 := mem.SeedProduit(models.Produit{Nom: "Crayon", Prix: decimal.RequireFromString("1.50"), Quantite: 20})

	w := doJSON(t, router, http.MethodPost, "/api/commandes", gin.H{
		"client_id": client.ID,
		"items":     []gin.H{{"produit_id": p1.ID, "quantite": 5}},
	}, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	id := decodeBody(t, w)["commande"].(map[string]interface{})["id"].(string)

	w = doJSON(t, router, http.MethodPut, "/api/commandes/"+id+"/lignes", gin.H{
		"items": []gin.H{{"produit_id": p2.ID, "quantite": 3}},
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decodeBody(t, w)
	assert.Equal(t, "Commande mise à jour.", body["message"])
	assert.Len(t, body["lignes"].([]interface{}), 1)

	// items must be present, even if empty is a valid diff target.
	w = doJSON(t, router, http.MethodPut, "/api/commandes/"+id+"/lignes", gin.H{}, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProduitEndpointsRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/produit", gin.H{
		"produit_nom": "Clavier", "produit_prix": 89.99, "produit_quantiter": 5,
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Token manquant", decodeBody(t, w)["message"])

	token := adminToken(t, router)
	w = doJSON(t, router, http.MethodPost, "/api/produit", gin.H{
		"produit_nom": "Clavier", "produit_prix": 89.99, "produit_quantiter": 5,
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Duplicate name is a 409.
	w = doJSON(t, router, http.MethodPost, "/api/produit", gin.H{
		"produit_nom": "clavier", "produit_prix": 10.00,
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusConflict, w.Code)
}

func TestUpdateProduitEndpoint(t *testing.T) {
	router, mem := newTestRouter(t)
	produit := mem.SeedProduit(models.Produit{Nom: "Tablette", Prix: decimal.RequireFromString("299.00"), Quantite: 4})
	token := adminToken(t, router)

	w := doJSON(t, router, http.MethodPatch, "/api/produit/"+produit.ID, gin.H{
		"produit_quantiter": 0,
	}, map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	data := decodeBody(t, w)["data"].(map[string]interface{})
	assert.Equal(t, false, data["disponible"])

	// Empty mask rejected.
	w = doJSON(t, router, http.MethodPatch, "/api/produit/"+produit.ID, gin.H{},
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduitRequiresAdmin(t *testing.T) {
	router, mem := newTestRouter(t)
	produit := mem.SeedProduit(models.Produit{Nom: "Ruban", Prix: decimal.RequireFromString("3.00"), Quantite: 2})
	token := adminToken(t, router)

	w := doJSON(t, router, http.MethodDelete, "/api/produit/"+produit.ID, nil,
		map[string]string{"Authorization": "Bearer " + token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestLoginEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	adminToken(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/user/login", gin.H{
		"email": "admin@example.com", "mdp": "motdepasse",
	}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeBody(t, w)
	assert.NotEmpty(t, body["token"])

	w = doJSON(t, router, http.MethodPost, "/api/user/login", gin.H{
		"email": "admin@example.com", "mdp": "mauvais",
	}, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Identifiants invalides", decodeBody(t, w)["message"])
}

func TestSeedAdminConflict(t *testing.T) {
	router, _ := newTestRouter(t)
	adminToken(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/user/seed-admin", gin.H{
		"nom": "Autre", "email": "admin@example.com", "password": "motdepasse",
	}, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "Admin déjà existant", decodeBody(t, w)["message"])
}

func TestInvoiceEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)
	token := adminToken(t, router)

	w := doJSON(t, router, http.MethodPost, "/api/invoice", gin.H{
		"invoice": gin.H{"number": "2025-0042"},
		"items":   []gin.H{{"description": "Écran", "qty": 1, "unit_price": 249.99}},
	}, map[string]string{"Authorization": "Bearer " + token})

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF")))
}

func TestListEndpoints(t *testing.T) {
	router, mem := newTestRouter(t)
	mem.SeedClient(models.Client{Nom: "Roy"})
	mem.SeedProduit(models.Produit{Nom: "Clavier", Prix: decimal.RequireFromString("89.99"), Quantite: 5})

	for _, path := range []string{"/api/clients", "/api/produit/tousLesProduits", "/api/commandes"} {
		w := doJSON(t, router, http.MethodGet, path, nil, nil)
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decodeBody(t, w)
		_, ok := body["data"]
		assert.True(t, ok, fmt.Sprintf("%s doit envelopper sa réponse dans data", path))
	}
}
