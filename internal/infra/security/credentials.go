package security

import (
	"crypto/rand"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/zaynrix/trustedvalley-backend/internal/core/domain"
	"github.com/zaynrix/trustedvalley-backend/internal/core/port"
)

const placeholderSecretLength = 32

// CredentialIssuer implements port.CredentialIssuer. Placeholders hash a random secret
// that is discarded immediately, so the account can only be entered through a reset.
type CredentialIssuer struct {
	hasher *Argon2Hasher
}

var _ port.CredentialIssuer = (*CredentialIssuer)(nil)

func NewCredentialIssuer(hasher *Argon2Hasher) *CredentialIssuer {
	return &CredentialIssuer{hasher: hasher}
}

func (c *CredentialIssuer) Placeholder() (port.Credential, error) {
	secret := make([]byte, placeholderSecretLength)
	if _, err := rand.Read(secret); err != nil {
		return port.Credential{}, fmt.Errorf("generate placeholder secret: %w", err)
	}

	hash, err := c.hasher.Hash(secret)
	if err != nil {
		return port.Credential{}, fmt.Errorf("hash placeholder secret: %w", err)
	}

	return port.Credential{
		Hash:      hash,
		Algo:      domain.PasswordAlgoArgon2id,
		MustReset: true,
	}, nil
}

// Adopt keeps bcrypt and argon2id hashes whose encoding parses. Anything else is rejected.
func (c *CredentialIssuer) Adopt(legacyHash string) (port.Credential, bool) {
	legacyHash = strings.TrimSpace(legacyHash)
	if legacyHash == "" {
		return port.Credential{}, false
	}

	if _, err := bcrypt.Cost([]byte(legacyHash)); err == nil {
		return port.Credential{Hash: legacyHash, Algo: domain.PasswordAlgoBcrypt}, true
	}

	if _, _, _, err := decodeArgon2Hash(legacyHash); err == nil {
		return port.Credential{Hash: legacyHash, Algo: domain.PasswordAlgoArgon2id}, true
	}

	return port.Credential{}, false
}
