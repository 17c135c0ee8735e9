package port

import (
	"github.com/oocloud/oocloud/internal/domain/repository"
)

// FileRepository is an alias to the domain repository interface
type FileRepository = repository.FileRepository

// UserRepository is an alias to the domain repository interface
type UserRepository = repository.UserRepository

// Store is an alias to the domain repository interface
type Store = repository.Store
