package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"taxoffice/internal/deadline"
	"taxoffice/internal/lock"
	"taxoffice/internal/model"
	"taxoffice/internal/repository"
	"taxoffice/internal/websocket"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type GrantExtensionRequest struct {
	ClientID         string `json:"client_id" binding:"required,uuid"`
	TaxType          string `json:"tax_type" binding:"required,oneof=GST PAYE CIT WHT FBT"`
	OriginalDeadline string `json:"original_deadline" binding:"required"` // YYYY-MM-DD
	ExtendedDeadline string `json:"extended_deadline" binding:"required"` // YYYY-MM-DD
	Reason           string `json:"reason"`
}

type ExtensionResponse struct {
	ID               string  `json:"id"`
	ClientID         string  `json:"client_id"`
	TaxType          string  `json:"tax_type"`
	OriginalDeadline string  `json:"original_deadline"`
	ExtendedDeadline string  `json:"extended_deadline"`
	Reason           string  `json:"reason"`
	GrantedBy        *string `json:"granted_by"`
	GranterName      string  `json:"granter_name,omitempty"`
	GrantedAt        string  `json:"granted_at"`
	RevokedAt        *string `json:"revoked_at"`
}

// --- Interface ---

type ExtensionService interface {
	Grant(ctx context.Context, req GrantExtensionRequest, userID string) (ExtensionResponse, error)
	Revoke(ctx context.Context, id string, userID string) (ExtensionResponse, error)
	ListByClient(ctx context.Context, clientID string, page, limit int) ([]ExtensionResponse, int64, error)

	// ActiveExtension implements deadline.ExtensionSource for the calculator
	ActiveExtension(ctx context.Context, clientID uuid.UUID, taxType string, deadlineDate time.Time) (*model.ClientExtension, error)
}

type extensionService struct {
	extensions repository.ExtensionRepository
	audit      repository.AuditRepository
	tx         repository.TransactionManager
	locks      *lock.Keyed // one slot per (client, taxType, originalDeadline)
	hub        *websocket.Hub
}

func NewExtensionService(extensions repository.ExtensionRepository, audit repository.AuditRepository, tx repository.TransactionManager, hub *websocket.Hub) ExtensionService {
	return &extensionService{
		extensions: extensions,
		audit:      audit,
		tx:         tx,
		locks:      lock.NewKeyed(),
		hub:        hub,
	}
}

// --- Implementation ---

// Grant creates a new extension for the obligation instance, revoking any
// prior active one in the same transaction (supersession, not stacking).
func (s *extensionService) Grant(ctx context.Context, req GrantExtensionRequest, userID string) (ExtensionResponse, error) {
	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		return ExtensionResponse{}, fmt.Errorf("%w: invalid client_id: %v", deadline.ErrValidation, err)
	}

	original, err := time.Parse("2006-01-02", req.OriginalDeadline)
	if err != nil {
		return ExtensionResponse{}, fmt.Errorf("%w: invalid original_deadline date format (expected YYYY-MM-DD)", deadline.ErrValidation)
	}
	extended, err := time.Parse("2006-01-02", req.ExtendedDeadline)
	if err != nil {
		return ExtensionResponse{}, fmt.Errorf("%w: invalid extended_deadline date format (expected YYYY-MM-DD)", deadline.ErrValidation)
	}
	if !extended.After(original) {
		// Extensions never shorten deadlines
		return ExtensionResponse{}, fmt.Errorf("%w: extended_deadline must be later than original_deadline", deadline.ErrValidation)
	}

	ext := model.ClientExtension{
		ClientID:         clientID,
		TaxType:          req.TaxType,
		OriginalDeadline: original,
		ExtendedDeadline: extended,
		Reason:           req.Reason,
	}
	if userID != "" {
		if granter, parseErr := uuid.Parse(userID); parseErr == nil {
			ext.GrantedBy = &granter
		}
	}

	key := extensionKey(clientID, req.TaxType, original)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		prior, err := s.extensions.FindActive(txCtx, clientID, req.TaxType, original)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check for prior extension: %w", err)
		}
		if prior != nil {
			now := time.Now().UTC()
			prior.RevokedAt = &now
			if err := s.extensions.Update(txCtx, prior); err != nil {
				return fmt.Errorf("failed to supersede prior extension: %w", err)
			}
			s.writeAuditLog(txCtx, userID, model.ActionRevokeExtension, prior.ID.String(), req.TaxType,
				map[string]string{"superseded_by": "pending", "client_id": req.ClientID})
		}

		if err := s.extensions.Create(txCtx, &ext); err != nil {
			return fmt.Errorf("failed to grant extension: %w", err)
		}
		s.writeAuditLog(txCtx, userID, model.ActionGrantExtension, ext.ID.String(), req.TaxType, req)
		return nil
	})
	if err != nil {
		return ExtensionResponse{}, err
	}

	s.broadcast("extension_granted", ext)
	return toExtensionResponse(ext), nil
}

// Revoke terminates the extension. Revoking an already-revoked extension is
// a no-op returning the existing record, keeping the operation idempotent.
func (s *extensionService) Revoke(ctx context.Context, id string, userID string) (ExtensionResponse, error) {
	extID, err := uuid.Parse(id)
	if err != nil {
		return ExtensionResponse{}, fmt.Errorf("%w: invalid extension id: %v", deadline.ErrValidation, err)
	}

	ext, err := s.extensions.FindByID(ctx, extID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ExtensionResponse{}, fmt.Errorf("%w: extension %s", deadline.ErrNotFound, id)
		}
		return ExtensionResponse{}, fmt.Errorf("failed to fetch extension: %w", err)
	}

	if !ext.Active() {
		return toExtensionResponse(*ext), nil
	}

	key := extensionKey(ext.ClientID, ext.TaxType, ext.OriginalDeadline)
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	// Re-read under the lock; a concurrent Grant may have superseded it
	ext, err = s.extensions.FindByID(ctx, extID)
	if err != nil {
		return ExtensionResponse{}, fmt.Errorf("failed to fetch extension: %w", err)
	}
	if ext.Active() {
		now := time.Now().UTC()
		ext.RevokedAt = &now
		if err := s.extensions.Update(ctx, ext); err != nil {
			return ExtensionResponse{}, fmt.Errorf("failed to revoke extension: %w", err)
		}
		s.writeAuditLog(ctx, userID, model.ActionRevokeExtension, ext.ID.String(), ext.TaxType,
			map[string]string{"client_id": ext.ClientID.String()})
		s.broadcast("extension_revoked", *ext)
	}

	return toExtensionResponse(*ext), nil
}

func (s *extensionService) ListByClient(ctx context.Context, clientID string, page, limit int) ([]ExtensionResponse, int64, error) {
	id, err := uuid.Parse(clientID)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: invalid client_id: %v", deadline.ErrValidation, err)
	}

	exts, total, err := s.extensions.ListByClient(ctx, id, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list extensions: %w", err)
	}

	res := make([]ExtensionResponse, 0, len(exts))
	for _, e := range exts {
		res = append(res, toExtensionResponse(e))
	}
	return res, total, nil
}

// ActiveExtension returns the single non-revoked extension for the key, or
// nil when the client has none — absence is not an error here.
func (s *extensionService) ActiveExtension(ctx context.Context, clientID uuid.UUID, taxType string, deadlineDate time.Time) (*model.ClientExtension, error) {
	ext, err := s.extensions.FindActive(ctx, clientID, taxType, deadline.DateOnly(deadlineDate))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return ext, nil
}

// --- Helpers ---

func extensionKey(clientID uuid.UUID, taxType string, original time.Time) string {
	return clientID.String() + "|" + taxType + "|" + original.Format("2006-01-02")
}

func toExtensionResponse(e model.ClientExtension) ExtensionResponse {
	resp := ExtensionResponse{
		ID:               e.ID.String(),
		ClientID:         e.ClientID.String(),
		TaxType:          e.TaxType,
		OriginalDeadline: e.OriginalDeadline.Format("2006-01-02"),
		ExtendedDeadline: e.ExtendedDeadline.Format("2006-01-02"),
		Reason:           e.Reason,
		GrantedAt:        e.GrantedAt.Format(time.RFC3339),
	}
	if e.GrantedBy != nil {
		s := e.GrantedBy.String()
		resp.GrantedBy = &s
	}
	if e.Granter != nil {
		resp.GranterName = e.Granter.Username
	}
	if e.RevokedAt != nil {
		s := e.RevokedAt.Format(time.RFC3339)
		resp.RevokedAt = &s
	}
	return resp
}

func (s *extensionService) writeAuditLog(ctx context.Context, userID, action, entityID, entityName string, details interface{}) {
	detailsJSON, _ := json.Marshal(details)

	entry := model.AuditLog{
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(detailsJSON),
	}
	if userID != "" {
		if parsed, err := uuid.Parse(userID); err == nil {
			entry.UserID = &parsed
		}
	}

	_ = s.audit.Log(ctx, &entry)
}

func (s *extensionService) broadcast(event string, payload interface{}) {
	if s.hub == nil {
		return
	}
	msg, err := json.Marshal(map[string]interface{}{"event": event, "data": payload})
	if err != nil {
		return
	}
	s.hub.Publish(msg)
}
