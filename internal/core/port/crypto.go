package port

// Argon2Params captures tunable parameters for the Argon2id hashing algorithm.
type Argon2Params struct {
	Memory      uint32
	Iterations  uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
}

// Credential is an opaque password hash plus the algorithm that produced it.
type Credential struct {
	Hash      string
	Algo      string
	MustReset bool
}

// CredentialIssuer produces credentials for users created by the migration.
type CredentialIssuer interface {
	// Placeholder returns a credential for a random secret nobody knows; MustReset is always true.
	Placeholder() (Credential, error)
	// Adopt accepts a legacy hash when it can be verified later, reporting false otherwise.
	Adopt(legacyHash string) (Credential, bool)
}
