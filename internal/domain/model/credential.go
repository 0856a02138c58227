package model

import "time"

// EncryptedValue is an AES-256-GCM sealed secret. All fields are hex encoded.
type EncryptedValue struct {
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
	AuthTag    string `json:"authTag"`
}

// StoredCredential is the persisted form of a credential. It never carries the
// plaintext value and never leaves the vault.
type StoredCredential struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Type        CredentialType `json:"type"`
	Service     string         `json:"service"`
	Description string         `json:"description"`
	Owner       string         `json:"owner"`
	Encrypted   EncryptedValue `json:"encrypted"`
	Permissions []Permission   `json:"permissions"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	LastUsed    *time.Time     `json:"last_used"`
	UsageCount  int            `json:"usage_count"`
}

// Credential is the metadata view of a stored secret. Value is populated only
// when the caller explicitly asked for decryption.
type Credential struct {
	ID          string
	Name        string
	Type        CredentialType
	Service     string
	Description string
	Owner       string
	Permissions []Permission
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastUsed    *time.Time
	UsageCount  int
	Value       *string
}

// View strips the encrypted payload from a stored credential.
func (c StoredCredential) View() Credential {
	perms := make([]Permission, len(c.Permissions))
	copy(perms, c.Permissions)
	return Credential{
		ID:          c.ID,
		Name:        c.Name,
		Type:        c.Type,
		Service:     c.Service,
		Description: c.Description,
		Owner:       c.Owner,
		Permissions: perms,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
		LastUsed:    c.LastUsed,
		UsageCount:  c.UsageCount,
	}
}

// NewCredential is the input for storing a secret.
type NewCredential struct {
	ID          string
	Name        string `validate:"required"`
	Type        CredentialType
	Service     string `validate:"required"`
	Description string
	Owner       string
	Value       string
	Permissions []Permission
}
