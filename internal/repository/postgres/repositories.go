package postgres

import "github.com/jackc/pgx/v5/pgxpool"

// Repositories groups concrete PostgreSQL repository implementations.
type Repositories struct {
	Users     *UserRepository
	Documents *DocumentRepository
}

// NewRepositories wires all repositories backed by the provided pool.
func NewRepositories(pool *pgxpool.Pool) *Repositories {
	return newRepositories(pool)
}

func newRepositories(exec pgExecutor) *Repositories {
	return &Repositories{
		Users:     NewUserRepository(exec),
		Documents: NewDocumentRepository(exec),
	}
}
