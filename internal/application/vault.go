package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
	"github.com/ericfisherdev/missioncontrol/internal/domain/port/driven"
)

// VaultService stores secrets encrypted at rest and only ever returns
// metadata unless decryption is explicitly requested.
type VaultService struct {
	credentials collection[model.StoredCredential]
	cipher      driven.Cipher
	clock       driven.Clock
	locks       keyedMutex
	logger      *slog.Logger
}

// NewVaultService creates a new VaultService with the required dependencies.
func NewVaultService(store driven.DocumentStore, cipher driven.Cipher, clock driven.Clock, logger *slog.Logger) *VaultService {
	return &VaultService{
		credentials: newCollection[model.StoredCredential](store, driven.CollectionCredentials),
		cipher:      cipher,
		clock:       clock,
		logger:      logger,
	}
}

// Encrypt seals a plaintext value with the vault key.
func (s *VaultService) Encrypt(plaintext string) (model.EncryptedValue, error) {
	return s.cipher.Encrypt(plaintext)
}

// Decrypt opens a sealed value. Tampered or foreign ciphertext yields
// model.ErrAuthentication.
func (s *VaultService) Decrypt(value model.EncryptedValue) (string, error) {
	return s.cipher.Decrypt(value)
}

// Store encrypts the credential value and persists it. The returned view
// carries neither ciphertext nor plaintext.
func (s *VaultService) Store(ctx context.Context, in model.NewCredential) (model.Credential, error) {
	if err := validateInput(in); err != nil {
		return model.Credential{}, err
	}
	for _, p := range in.Permissions {
		if !p.Valid() {
			return model.Credential{}, model.NewValidationError("permissions", fmt.Sprintf("contains unknown permission %q", p))
		}
	}

	encrypted, err := s.cipher.Encrypt(in.Value)
	if err != nil {
		return model.Credential{}, fmt.Errorf("encrypt credential: %w", err)
	}

	now := s.clock.Now()
	stored := model.StoredCredential{
		ID:          in.ID,
		Name:        in.Name,
		Type:        in.Type,
		Service:     in.Service,
		Description: in.Description,
		Owner:       in.Owner,
		Encrypted:   encrypted,
		Permissions: in.Permissions,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if stored.ID == "" {
		stored.ID = newID("cred")
	}
	if stored.Type == "" {
		stored.Type = model.CredentialTypeAPIKey
	}
	if stored.Owner == "" {
		stored.Owner = "system"
	}
	if len(stored.Permissions) == 0 {
		stored.Permissions = []model.Permission{model.PermissionRead}
	}

	if err := s.credentials.put(ctx, stored.ID, stored); err != nil {
		return model.Credential{}, fmt.Errorf("store credential %q: %w", stored.ID, err)
	}

	s.logger.Info("credential stored", "credential_id", stored.ID, "service", stored.Service, "type", stored.Type)
	return stored.View(), nil
}

// Get returns a credential's metadata. When includeValue is true the value is
// decrypted and the credential's last_used and usage_count are updated; the
// read-modify-write is serialized per credential so no increment is lost.
func (s *VaultService) Get(ctx context.Context, id string, includeValue bool) (model.Credential, error) {
	if !includeValue {
		stored, err := s.credentials.get(ctx, id)
		if err != nil {
			return model.Credential{}, err
		}
		return stored.View(), nil
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	stored, err := s.credentials.get(ctx, id)
	if err != nil {
		return model.Credential{}, err
	}

	plaintext, err := s.cipher.Decrypt(stored.Encrypted)
	if err != nil {
		s.logger.Error("credential decryption failed", "credential_id", id, "error", err)
		return model.Credential{}, fmt.Errorf("decrypt credential %q: %w", id, err)
	}

	now := s.clock.Now()
	stored.LastUsed = &now
	stored.UsageCount++
	if err := s.credentials.put(ctx, id, stored); err != nil {
		return model.Credential{}, fmt.Errorf("record credential usage %q: %w", id, err)
	}

	view := stored.View()
	view.Value = &plaintext
	return view, nil
}

// List returns metadata for every stored credential ordered by name.
func (s *VaultService) List(ctx context.Context) ([]model.Credential, error) {
	stored, err := s.credentials.list(ctx)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}

	views := make([]model.Credential, 0, len(stored))
	for _, c := range stored {
		views = append(views, c.View())
	}
	sort.Slice(views, func(i, j int) bool {
		if views[i].Name != views[j].Name {
			return views[i].Name < views[j].Name
		}
		return views[i].ID < views[j].ID
	})
	return views, nil
}

// Delete removes a credential. Returns model.ErrNotFound for unknown ids.
func (s *VaultService) Delete(ctx context.Context, id string) error {
	unlock := s.locks.Lock(id)
	defer unlock()

	if err := s.credentials.delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("credential deleted", "credential_id", id)
	return nil
}
