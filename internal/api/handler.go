package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"inventaire-service/internal/models"
	"inventaire-service/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
)

// Handler contains HTTP handlers
type Handler struct {
	commandes *service.CommandeService
	produits  *service.ProduitService
	auth      *service.AuthService
	factures  *service.FactureService
	clients   service.ClientStore
}

// NewHandler creates a new HTTP handler
func NewHandler(
	commandes *service.CommandeService,
	produits *service.ProduitService,
	auth *service.AuthService,
	factures *service.FactureService,
	clients service.ClientStore,
) *Handler {
	return &Handler{
		commandes: commandes,
		produits:  produits,
		auth:      auth,
		factures:  factures,
		clients:   clients,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")

	api.POST("/user/login", h.login)
	api.POST("/user/seed-admin", h.seedAdmin)

	api.GET("/clients", h.listClients)

	api.GET("/produit/tousLesProduits", h.listProduits)

	authed := api.Group("")
	authed.Use(RequireAuth(h.auth))
	authed.POST("/produit", h.createProduit)
	authed.PATCH("/produit/:id", h.updateProduit)
	authed.DELETE("/produit/:id", RequireRole(service.RoleAdmin), h.deleteProduit)
	authed.POST("/invoice", h.generateFacture)

	api.GET("/commandes", h.listCommandes)
	api.POST("/commandes", h.createCommande)
	api.GET("/commandes/:id", h.getCommande)
	api.PATCH("/commandes/:id/statut", h.changeStatut)
	api.DELETE("/commandes/:id", h.deleteCommande)
	api.PUT("/commandes/:id/lignes", h.replaceLignes)
}

func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "time": time.Now().Unix()})
}

func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ready", "time": time.Now().Unix()})
}

// commandeJSON serializes an order header with its recomputed total,
// keeping the date in the YYYY-MM-DD shape the API always used.
func commandeJSON(cmd *models.Commande, total decimal.Decimal) gin.H {
	return gin.H{
		"id":        cmd.ID,
		"client_id": cmd.ClientID,
		"date":      cmd.Date.Format("2006-01-02"),
		"statut":    cmd.Statut,
		"total":     total,
	}
}

func commandeHeaderJSON(cmd models.Commande) gin.H {
	return gin.H{
		"id":        cmd.ID,
		"client_id": cmd.ClientID,
		"date":      cmd.Date.Format("2006-01-02"),
		"statut":    cmd.Statut,
	}
}

// respondError maps the engine's error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	var partial *service.PartialFailureError
	var vErr *service.ValidationError
	var stockErr *service.InsufficientStockError
	var nfErr *service.NotFoundError
	var confErr *service.ConflictError
	var authErr *service.AuthError

	switch {
	case errors.As(err, &partial):
		total := models.TotalLignes(partial.Lignes)
		c.JSON(http.StatusMultiStatus, gin.H{
			"warning":      "Commande créée mais une mise à jour de stock a échoué.",
			"commande":     commandeJSON(partial.Commande, total),
			"lignes":       partial.Lignes,
			"erreur_stock": partial.Err.Error(),
		})
	case errors.As(err, &vErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
	case errors.As(err, &stockErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": stockErr.Error()})
	case errors.As(err, &confErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": confErr.Error()})
	case errors.As(err, &nfErr):
		c.JSON(http.StatusNotFound, gin.H{"error": nfErr.Error()})
	case errors.As(err, &authErr):
		c.JSON(http.StatusUnauthorized, gin.H{"message": authErr.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// --- commandes ---

func (h *Handler) listCommandes(c *gin.Context) {
	commandes, err := h.commandes.ListCommandes(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	data := make([]gin.H, 0, len(commandes))
	for _, cmd := range commandes {
		data = append(data, commandeHeaderJSON(cmd))
	}
	c.JSON(http.StatusOK, gin.H{"data": data})
}

type creerCommandeBody struct {
	ClientID string                `json:"client_id"`
	Items    []service.ItemRequest `json:"items"`
	// legacy alias still sent by older frontends
	Produits []service.ItemRequest `json:"produits"`
}

func (h *Handler) createCommande(c *gin.Context) {
	var body creerCommandeBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	items := body.Items
	if len(items) == 0 {
		items = body.Produits
	}

	result, err := h.commandes.CreerCommande(c.Request.Context(), &service.CreerCommandeRequest{
		ClientID: body.ClientID,
		Items:    items,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":  "Commande créée (statut: En cours).",
		"commande": commandeJSON(&result.Commande, result.Total),
		"lignes":   result.Lignes,
	})
}

func (h *Handler) getCommande(c *gin.Context) {
	result, err := h.commandes.GetCommande(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"commande": commandeJSON(&result.Commande, result.Total),
		"lignes":   result.Lignes,
	})
}

func (h *Handler) changeStatut(c *gin.Context) {
	var body struct {
		Statut string `json:"statut"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	result, err := h.commandes.ChangerStatut(c.Request.Context(), c.Param("id"), body.Statut)
	if err != nil {
		respondError(c, err)
		return
	}

	if result.NoChange {
		c.JSON(http.StatusOK, gin.H{
			"message": "Aucun changement.",
			"data":    gin.H{"id": result.CommandeID, "statut": result.NouveauStatut},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Statut mis à jour.",
		"data": gin.H{
			"id":            result.CommandeID,
			"ancienStatut":  result.AncienStatut,
			"nouveauStatut": result.NouveauStatut,
		},
	})
}

func (h *Handler) deleteCommande(c *gin.Context) {
	deleted, err := h.commandes.SupprimerCommande(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Commande supprimée.",
		"data":    commandeHeaderJSON(*deleted),
	})
}

func (h *Handler) replaceLignes(c *gin.Context) {
	var body struct {
		Items []service.ItemRequest `json:"items"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Items == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "items doit être un tableau."})
		return
	}

	result, err := h.commandes.RemplacerLignes(c.Request.Context(), c.Param("id"), body.Items)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Commande mise à jour.",
		"commande": gin.H{
			"id":     result.Commande.ID,
			"statut": result.Commande.Statut,
			"total":  result.Total,
		},
		"lignes": result.Lignes,
	})
}

// --- produits ---

func (h *Handler) listProduits(c *gin.Context) {
	produits, err := h.produits.ListProduits(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": produits})
}

func (h *Handler) createProduit(c *gin.Context) {
	var body service.CreerProduitRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	produit, err := h.produits.CreerProduit(c.Request.Context(), &body)
	if err != nil {
		var confErr *service.ConflictError
		if errors.As(err, &confErr) {
			c.JSON(http.StatusConflict, gin.H{"message": confErr.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": produit})
}

func (h *Handler) updateProduit(c *gin.Context) {
	var mask models.ProduitUpdate
	if err := c.ShouldBindJSON(&mask); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	produit, err := h.produits.ModifierProduit(c.Request.Context(), c.Param("id"), mask)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Produit modifié.", "data": produit})
}

func (h *Handler) deleteProduit(c *gin.Context) {
	produit, err := h.produits.SupprimerProduit(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Produit supprimé.", "data": produit})
}

// --- clients ---

func (h *Handler) listClients(c *gin.Context) {
	clients, err := h.clients.ListClients(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}

// --- auth ---

func (h *Handler) login(c *gin.Context) {
	var body struct {
		Email string `json:"email"`
		MDP   string `json:"mdp"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	result, err := h.auth.Login(c.Request.Context(), body.Email, body.MDP)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *Handler) seedAdmin(c *gin.Context) {
	var body struct {
		Nom      string `json:"nom"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	result, err := h.auth.SeedAdmin(c.Request.Context(), body.Nom, body.Email, body.Password)
	if err != nil {
		var confErr *service.ConflictError
		if errors.As(err, &confErr) {
			c.JSON(http.StatusConflict, gin.H{"message": confErr.Error()})
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// --- factures ---

func (h *Handler) generateFacture(c *gin.Context) {
	var body service.FactureRequest
	// an empty body is allowed: the service fills in demo defaults
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Corps de requête invalide."})
		return
	}

	pdfBytes, err := h.factures.GenerateFacture(&body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Erreur de génération PDF"})
		return
	}

	c.Header("Content-Disposition", `inline; filename="facture.pdf"`)
	c.Data(http.StatusOK, "application/pdf", pdfBytes)
}
