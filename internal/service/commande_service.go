package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"inventaire-service/internal/models"
	"inventaire-service/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const produitLockTTL = 5 * time.Second

// CommandeService is the stock reconciliation engine: it keeps product
// stock consistent with order line changes across create, line
// replacement, deletion and status transitions.
type CommandeService struct {
	commandes CommandeStore
	produits  ProduitStore
	clients   ClientStore
	locks     Locker
	publisher Publisher
	cache     ProduitCache
	logger    *zap.Logger

	// restoreOnCancel re-credits stock when an order moves to "Annulée".
	restoreOnCancel bool
}

// NewCommandeService creates a new reconciliation engine. locks,
// publisher and cache may be nil; the engine then runs without them.
func NewCommandeService(
	commandes CommandeStore,
	produits ProduitStore,
	clients ClientStore,
	locks Locker,
	publisher Publisher,
	cache ProduitCache,
	restoreOnCancel bool,
) *CommandeService {
	return &CommandeService{
		commandes:       commandes,
		produits:        produits,
		clients:         clients,
		locks:           locks,
		publisher:       publisher,
		cache:           cache,
		logger:          util.GetLogger(),
		restoreOnCancel: restoreOnCancel,
	}
}

// ItemRequest is one desired order line.
type ItemRequest struct {
	ProduitID string `json:"produit_id"`
	Quantite  int    `json:"quantite"`
}

// CreerCommandeRequest carries the payload of POST /api/commandes.
type CreerCommandeRequest struct {
	ClientID string
	Items    []ItemRequest
}

// CommandeResult is the assembled view of an order: header, lines and
// the total recomputed from the lines.
type CommandeResult struct {
	Commande models.Commande
	Lignes   []models.LigneCommande
	Total    decimal.Decimal
}

// StatutChangeResult reports a status transition. NoChange marks the
// idempotent case where the new status equals the current one.
type StatutChangeResult struct {
	CommandeID    string
	AncienStatut  string
	NouveauStatut string
	NoChange      bool
}

func estUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

// CreerCommande validates the request, persists the order header and its
// lines, then decrements stock per item. Validation failures reject the
// whole request before any write. A stock decrement failing after the
// order is durable yields a PartialFailureError carrying what succeeded.
func (s *CommandeService) CreerCommande(ctx context.Context, req *CreerCommandeRequest) (*CommandeResult, error) {
	ctx, span := util.StartSpan(ctx, "CommandeService.CreerCommande")
	defer span.End()
	defer s.observe("create")()

	if !estUUID(req.ClientID) {
		return nil, &ValidationError{Msg: "client_id invalide."}
	}
	if len(req.Items) == 0 {
		return nil, &ValidationError{Msg: "items/produits doit être un tableau non vide."}
	}
	for _, it := range req.Items {
		if !estUUID(it.ProduitID) || it.Quantite <= 0 {
			util.CommandesFailedTotal.WithLabelValues("invalid_items").Inc()
			return nil, &ValidationError{Msg: "Un ou plusieurs items sont invalides."}
		}
	}

	client, err := s.clients.GetClientByID(ctx, req.ClientID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client: %w", err)
	}
	if client == nil {
		util.CommandesFailedTotal.WithLabelValues("client_not_found").Inc()
		return nil, &NotFoundError{Msg: "Client introuvable."}
	}

	byID, err := s.loadProduits(ctx, itemIDs(req.Items))
	if err != nil {
		return nil, err
	}

	for _, it := range req.Items {
		p, ok := byID[it.ProduitID]
		if !ok {
			util.CommandesFailedTotal.WithLabelValues("produit_not_found").Inc()
			return nil, &NotFoundError{Msg: fmt.Sprintf("Produit introuvable: %s", it.ProduitID)}
		}
		if p.Quantite < it.Quantite {
			util.StockInsufficientTotal.Inc()
			return nil, &InsufficientStockError{
				ProduitID: p.ID,
				Nom:       p.Nom,
				Stock:     p.Quantite,
				Demande:   it.Quantite,
			}
		}
	}

	unlock := s.lockProduits(ctx, itemIDs(req.Items))
	defer unlock()

	commande := &models.Commande{ClientID: req.ClientID, Statut: models.StatutEnCours}
	if err := s.commandes.CreateCommande(ctx, commande); err != nil {
		util.CommandesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to create commande: %w", err)
	}

	total := decimal.Zero
	lignes := make([]models.LigneCommande, 0, len(req.Items))
	for _, it := range req.Items {
		p := byID[it.ProduitID]
		lignes = append(lignes, models.LigneCommande{
			CommandeID:   commande.ID,
			ProduitID:    it.ProduitID,
			Quantite:     it.Quantite,
			PrixUnitaire: p.Prix,
		})
		total = total.Add(p.Prix.Mul(decimal.NewFromInt(int64(it.Quantite))))
	}

	if err := s.commandes.InsertLignes(ctx, lignes); err != nil {
		// The order must not exist without its lines.
		if _, delErr := s.commandes.DeleteCommande(ctx, commande.ID); delErr != nil {
			s.logger.Error("Failed to roll back commande header",
				zap.String("commande_id", commande.ID),
				zap.Error(delErr))
		}
		util.CommandesFailedTotal.WithLabelValues("db_error").Inc()
		return nil, fmt.Errorf("failed to insert lignes: %w", err)
	}

	for _, it := range req.Items {
		newQty, applied, err := s.produits.DecrementStock(ctx, it.ProduitID, it.Quantite)
		if err == nil && !applied {
			err = fmt.Errorf("stock décrément refusé pour %s", it.ProduitID)
		}
		if err != nil {
			// Header and lines stay durable; some stock counters are stale.
			util.CommandesPartialTotal.Inc()
			s.logger.Warn("Stock update failed after commande was persisted",
				zap.String("commande_id", commande.ID),
				zap.String("produit_id", it.ProduitID),
				zap.Error(err))
			return nil, &PartialFailureError{Commande: commande, Lignes: lignes, Err: err}
		}
		util.StockAdjustmentsTotal.WithLabelValues("decrement").Inc()
		s.publishStockAjuste(ctx, it.ProduitID, -it.Quantite, newQty)
	}
	s.invalidateProduits(ctx)

	util.CommandesCreatedTotal.Inc()
	s.logger.Info("Commande créée",
		zap.String("commande_id", commande.ID),
		zap.String("client_id", req.ClientID),
		zap.Int("lignes", len(lignes)))

	if s.publisher != nil {
		event := &models.CommandeCreeeEvent{
			BaseEvent:  newBaseEvent(models.EventTypeCommandeCreee),
			CommandeID: commande.ID,
			ClientID:   commande.ClientID,
			Total:      total.String(),
			Lignes:     lignesData(lignes),
		}
		if err := s.publisher.PublishCommandeCreee(ctx, event); err != nil {
			s.logger.Error("Failed to publish CommandeCreee event", zap.Error(err))
		}
	}

	return &CommandeResult{Commande: *commande, Lignes: lignes, Total: total}, nil
}

// GetCommande loads the header and its lines and recomputes the total.
func (s *CommandeService) GetCommande(ctx context.Context, id string) (*CommandeResult, error) {
	if !estUUID(id) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}

	commande, err := s.commandes.GetCommandeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commande: %w", err)
	}
	if commande == nil {
		return nil, &NotFoundError{Msg: "Commande introuvable."}
	}

	lignes, err := s.commandes.GetLignesByCommandeID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lignes: %w", err)
	}

	return &CommandeResult{
		Commande: *commande,
		Lignes:   lignes,
		Total:    models.TotalLignes(lignes),
	}, nil
}

// ListCommandes returns all order headers, most recent first.
func (s *CommandeService) ListCommandes(ctx context.Context) ([]models.Commande, error) {
	return s.commandes.ListCommandes(ctx)
}

// ChangerStatut moves an order to one of the three allowed statuses.
// Setting the current status again is a reported no-op with no store
// mutation. Moving to "Annulée" restores stock only when the engine was
// configured to do so.
func (s *CommandeService) ChangerStatut(ctx context.Context, id, statut string) (*StatutChangeResult, error) {
	ctx, span := util.StartSpan(ctx, "CommandeService.ChangerStatut")
	defer span.End()

	if !estUUID(id) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}
	if !models.StatutValide(statut) {
		return nil, &ValidationError{Msg: "Statut invalide. Valeurs permises: En cours, Livrée, Annulée."}
	}

	commande, err := s.commandes.GetCommandeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commande: %w", err)
	}
	if commande == nil {
		return nil, &NotFoundError{Msg: "Commande introuvable."}
	}

	if commande.Statut == statut {
		return &StatutChangeResult{
			CommandeID:    id,
			AncienStatut:  commande.Statut,
			NouveauStatut: statut,
			NoChange:      true,
		}, nil
	}

	if statut == models.StatutAnnulee && s.restoreOnCancel {
		s.restaurerStockLignes(ctx, id)
	}

	if err := s.commandes.UpdateCommandeStatut(ctx, id, statut); err != nil {
		return nil, fmt.Errorf("failed to update statut: %w", err)
	}

	util.StatutChangesTotal.WithLabelValues(statut).Inc()
	s.logger.Info("Statut de commande mis à jour",
		zap.String("commande_id", id),
		zap.String("ancien", commande.Statut),
		zap.String("nouveau", statut))

	if s.publisher != nil {
		event := &models.CommandeStatutEvent{
			BaseEvent:     newBaseEvent(models.EventTypeCommandeStatut),
			CommandeID:    id,
			AncienStatut:  commande.Statut,
			NouveauStatut: statut,
		}
		if err := s.publisher.PublishCommandeStatut(ctx, event); err != nil {
			s.logger.Error("Failed to publish CommandeStatut event", zap.Error(err))
		}
	}

	return &StatutChangeResult{
		CommandeID:    id,
		AncienStatut:  commande.Statut,
		NouveauStatut: statut,
	}, nil
}

// SupprimerCommande deletes an order that is still "En cours", restoring
// each line's quantity to stock first. Restoration is best effort per
// line: one product failing does not block the others or the deletion.
func (s *CommandeService) SupprimerCommande(ctx context.Context, id string) (*models.Commande, error) {
	ctx, span := util.StartSpan(ctx, "CommandeService.SupprimerCommande")
	defer span.End()
	defer s.observe("delete")()

	if !estUUID(id) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}

	commande, err := s.commandes.GetCommandeByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load commande: %w", err)
	}
	if commande == nil {
		return nil, &NotFoundError{Msg: "Commande introuvable."}
	}
	if commande.Finalisee() {
		util.CommandesFailedTotal.WithLabelValues("finalisee").Inc()
		return nil, &ConflictError{Msg: "Impossible de supprimer: commande finalisée."}
	}

	lignes, err := s.commandes.GetLignesByCommandeID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load lignes: %w", err)
	}

	unlock := s.lockProduits(ctx, ligneIDs(lignes))
	defer unlock()

	for _, l := range lignes {
		if l.Quantite <= 0 {
			continue
		}
		newQty, err := s.produits.RestoreStock(ctx, l.ProduitID, l.Quantite)
		if err != nil {
			util.StockRestoreFailedTotal.Inc()
			s.logger.Error("Failed to restore stock on delete",
				zap.String("commande_id", id),
				zap.String("produit_id", l.ProduitID),
				zap.Error(err))
			continue
		}
		util.StockAdjustmentsTotal.WithLabelValues("increment").Inc()
		s.publishStockAjuste(ctx, l.ProduitID, l.Quantite, newQty)
	}

	if err := s.commandes.DeleteLignesByCommandeID(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete lignes: %w", err)
	}
	deleted, err := s.commandes.DeleteCommande(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to delete commande: %w", err)
	}
	if deleted == nil {
		return nil, &NotFoundError{Msg: "Commande introuvable."}
	}
	s.invalidateProduits(ctx)

	util.CommandesDeletedTotal.Inc()
	s.logger.Info("Commande supprimée", zap.String("commande_id", id))

	if s.publisher != nil {
		event := &models.CommandeSupprimeeEvent{
			BaseEvent:  newBaseEvent(models.EventTypeCommandeSupprimee),
			CommandeID: id,
			Statut:     deleted.Statut,
		}
		if err := s.publisher.PublishCommandeSupprimee(ctx, event); err != nil {
			s.logger.Error("Failed to publish CommandeSupprimee event", zap.Error(err))
		}
	}

	return deleted, nil
}

// RemplacerLignes reconciles the order's persisted lines against the
// desired set, keyed by product id. Removals run before additions and
// updates so stock freed by dropped lines is visible to the availability
// checks later in the same request. A desired quantity of 0 removes the
// line. Unit prices of surviving lines are preserved, never re-derived.
func (s *CommandeService) RemplacerLignes(ctx context.Context, commandeID string, items []ItemRequest) (*CommandeResult, error) {
	ctx, span := util.StartSpan(ctx, "CommandeService.RemplacerLignes")
	defer span.End()
	defer s.observe("replace")()

	if !estUUID(commandeID) {
		return nil, &ValidationError{Msg: "Paramètre id invalide."}
	}
	for _, it := range items {
		if !estUUID(it.ProduitID) || it.Quantite < 0 {
			util.CommandesFailedTotal.WithLabelValues("invalid_items").Inc()
			return nil, &ValidationError{Msg: "Un ou plusieurs items sont invalides."}
		}
	}

	commande, err := s.commandes.GetCommandeByID(ctx, commandeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load commande: %w", err)
	}
	if commande == nil {
		return nil, &NotFoundError{Msg: "Commande introuvable."}
	}
	if commande.Finalisee() {
		util.CommandesFailedTotal.WithLabelValues("finalisee").Inc()
		return nil, &ConflictError{Msg: "Commande finalisée: modification interdite."}
	}

	actuelles, err := s.commandes.GetLignesByCommandeID(ctx, commandeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lignes: %w", err)
	}

	actMap := make(map[string]models.LigneCommande, len(actuelles))
	for _, l := range actuelles {
		actMap[l.ProduitID] = l
	}
	newMap := make(map[string]ItemRequest, len(items))
	for _, it := range items {
		newMap[it.ProduitID] = it
	}

	allIDs := make([]string, 0, len(actMap)+len(newMap))
	for pid := range actMap {
		allIDs = append(allIDs, pid)
	}
	for pid := range newMap {
		if _, ok := actMap[pid]; !ok {
			allIDs = append(allIDs, pid)
		}
	}
	sort.Strings(allIDs)

	byID, err := s.loadProduits(ctx, allIDs)
	if err != nil {
		return nil, err
	}

	unlock := s.lockProduits(ctx, allIDs)
	defer unlock()

	// Removals first: stock they free must be visible to the checks below.
	for _, pid := range allIDs {
		l, ok := actMap[pid]
		if !ok {
			continue
		}
		if _, desired := newMap[pid]; desired {
			continue
		}
		if l.Quantite > 0 {
			if err := s.restaurer(ctx, pid, l.Quantite); err != nil {
				return nil, err
			}
		}
		if err := s.commandes.DeleteLigne(ctx, commandeID, pid); err != nil {
			return nil, fmt.Errorf("failed to delete ligne: %w", err)
		}
	}

	for _, pid := range allIDs {
		n, ok := newMap[pid]
		if !ok {
			continue
		}
		p, ok := byID[pid]
		if !ok {
			util.CommandesFailedTotal.WithLabelValues("produit_not_found").Inc()
			return nil, &NotFoundError{Msg: fmt.Sprintf("Produit introuvable: %s", pid)}
		}

		existante, exists := actMap[pid]
		qOld := 0
		if exists {
			qOld = existante.Quantite
		}

		switch {
		case n.Quantite == 0:
			if !exists {
				continue
			}
			if qOld > 0 {
				if err := s.restaurer(ctx, pid, qOld); err != nil {
					return nil, err
				}
			}
			if err := s.commandes.DeleteLigne(ctx, commandeID, pid); err != nil {
				return nil, fmt.Errorf("failed to delete ligne: %w", err)
			}

		case !exists:
			if err := s.decrementer(ctx, p, n.Quantite, n.Quantite); err != nil {
				return nil, err
			}
			ligne := models.LigneCommande{
				CommandeID:   commandeID,
				ProduitID:    pid,
				Quantite:     n.Quantite,
				PrixUnitaire: p.Prix,
			}
			if err := s.commandes.InsertLignes(ctx, []models.LigneCommande{ligne}); err != nil {
				return nil, fmt.Errorf("failed to insert ligne: %w", err)
			}

		default:
			delta := n.Quantite - qOld
			if delta > 0 {
				if err := s.decrementer(ctx, p, delta, n.Quantite); err != nil {
					return nil, err
				}
			} else if delta < 0 {
				if err := s.restaurer(ctx, pid, -delta); err != nil {
					return nil, err
				}
			}
			if err := s.commandes.UpdateLigneQuantite(ctx, commandeID, pid, n.Quantite); err != nil {
				return nil, fmt.Errorf("failed to update ligne: %w", err)
			}
		}
	}
	s.invalidateProduits(ctx)

	finales, err := s.commandes.GetLignesByCommandeID(ctx, commandeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lignes: %w", err)
	}

	s.logger.Info("Lignes de commande remplacées",
		zap.String("commande_id", commandeID),
		zap.Int("lignes", len(finales)))

	return &CommandeResult{
		Commande: *commande,
		Lignes:   finales,
		Total:    models.TotalLignes(finales),
	}, nil
}

// decrementer applies one stock decrement with the availability check
// folded into the conditional write. available is pre-checked against
// the loaded product so the error names the quantities the caller saw.
func (s *CommandeService) decrementer(ctx context.Context, p *models.Produit, delta, demande int) error {
	if p.Quantite < delta {
		util.StockInsufficientTotal.Inc()
		return &InsufficientStockError{ProduitID: p.ID, Nom: p.Nom, Stock: p.Quantite, Demande: demande}
	}

	newQty, applied, err := s.produits.DecrementStock(ctx, p.ID, delta)
	if err != nil {
		return fmt.Errorf("failed to decrement stock: %w", err)
	}
	if !applied {
		// Lost the race since the read; re-read for an accurate message.
		stock := p.Quantite
		if cur, rerr := s.produits.GetProduitByID(ctx, p.ID); rerr == nil && cur != nil {
			stock = cur.Quantite
		}
		util.StockInsufficientTotal.Inc()
		return &InsufficientStockError{ProduitID: p.ID, Nom: p.Nom, Stock: stock, Demande: demande}
	}

	p.Quantite = newQty
	util.StockAdjustmentsTotal.WithLabelValues("decrement").Inc()
	s.publishStockAjuste(ctx, p.ID, -delta, newQty)
	return nil
}

func (s *CommandeService) restaurer(ctx context.Context, produitID string, qty int) error {
	newQty, err := s.produits.RestoreStock(ctx, produitID, qty)
	if err != nil {
		return fmt.Errorf("failed to restore stock: %w", err)
	}
	util.StockAdjustmentsTotal.WithLabelValues("increment").Inc()
	s.publishStockAjuste(ctx, produitID, qty, newQty)
	return nil
}

// restaurerStockLignes re-credits every line of an order, best effort.
func (s *CommandeService) restaurerStockLignes(ctx context.Context, commandeID string) {
	lignes, err := s.commandes.GetLignesByCommandeID(ctx, commandeID)
	if err != nil {
		s.logger.Error("Failed to load lignes for stock restore",
			zap.String("commande_id", commandeID), zap.Error(err))
		return
	}
	for _, l := range lignes {
		if l.Quantite <= 0 {
			continue
		}
		if err := s.restaurer(ctx, l.ProduitID, l.Quantite); err != nil {
			util.StockRestoreFailedTotal.Inc()
			s.logger.Error("Failed to restore stock on cancel",
				zap.String("commande_id", commandeID),
				zap.String("produit_id", l.ProduitID),
				zap.Error(err))
		}
	}
	s.invalidateProduits(ctx)
}

func (s *CommandeService) loadProduits(ctx context.Context, ids []string) (map[string]*models.Produit, error) {
	produits, err := s.produits.GetProduitsByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load produits: %w", err)
	}
	byID := make(map[string]*models.Produit, len(produits))
	for i := range produits {
		byID[produits[i].ID] = &produits[i]
	}
	return byID, nil
}

// lockProduits takes per-product locks in sorted order and returns the
// release function. Unavailable locks are skipped: serialization is an
// optimization on top of the conditional stock writes, not a correctness
// requirement.
func (s *CommandeService) lockProduits(ctx context.Context, ids []string) func() {
	if s.locks == nil {
		return func() {}
	}

	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)

	acquired := make([]string, 0, len(sorted))
	for _, id := range sorted {
		ok, err := s.locks.AcquireLock(ctx, "produit:"+id, produitLockTTL)
		if err != nil || !ok {
			s.logger.Warn("Produit lock unavailable, continuing without",
				zap.String("produit_id", id), zap.Error(err))
			continue
		}
		acquired = append(acquired, id)
	}

	return func() {
		for _, id := range acquired {
			if err := s.locks.ReleaseLock(context.Background(), "produit:"+id); err != nil {
				s.logger.Warn("Failed to release produit lock",
					zap.String("produit_id", id), zap.Error(err))
			}
		}
	}
}

func (s *CommandeService) publishStockAjuste(ctx context.Context, produitID string, delta, newQty int) {
	if s.publisher == nil {
		return
	}
	event := &models.StockAjusteEvent{
		BaseEvent:        newBaseEvent(models.EventTypeStockAjuste),
		ProduitID:        produitID,
		Delta:            delta,
		NouvelleQuantite: newQty,
	}
	if err := s.publisher.PublishStockAjuste(ctx, event); err != nil {
		s.logger.Error("Failed to publish StockAjuste event",
			zap.String("produit_id", produitID), zap.Error(err))
	}
}

func (s *CommandeService) invalidateProduits(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateProduits(ctx); err != nil {
		s.logger.Warn("Failed to invalidate produits cache", zap.Error(err))
	}
}

func (s *CommandeService) observe(operation string) func() {
	start := time.Now()
	return func() {
		util.ReconcileLatency.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	}
}

func newBaseEvent(eventType string) models.BaseEvent {
	return models.BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now(),
	}
}

func itemIDs(items []ItemRequest) []string {
	seen := make(map[string]struct{}, len(items))
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it.ProduitID]; ok {
			continue
		}
		seen[it.ProduitID] = struct{}{}
		ids = append(ids, it.ProduitID)
	}
	return ids
}

func ligneIDs(lignes []models.LigneCommande) []string {
	ids := make([]string, 0, len(lignes))
	for _, l := range lignes {
		ids = append(ids, l.ProduitID)
	}
	return ids
}

func lignesData(lignes []models.LigneCommande) []models.LigneData {
	data := make([]models.LigneData, 0, len(lignes))
	for _, l := range lignes {
		data = append(data, models.LigneData{
			ProduitID:    l.ProduitID,
			Quantite:     l.Quantite,
			PrixUnitaire: l.PrixUnitaire.String(),
		})
	}
	return data
}
