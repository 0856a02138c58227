package driven

import "github.com/ericfisherdev/missioncontrol/internal/domain/model"

// Cipher defines the driven port for authenticated symmetric encryption of
// credential values.
type Cipher interface {
	// Encrypt seals plaintext under a fresh random IV.
	Encrypt(plaintext string) (model.EncryptedValue, error)

	// Decrypt opens a sealed value. Returns an error matching
	// model.ErrAuthentication if the tag does not verify; no plaintext is
	// returned in that case.
	Decrypt(value model.EncryptedValue) (string, error)
}
