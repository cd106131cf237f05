package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

// seedUser is one entry of the development seed file.
type seedUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

// SeedUsers loads users from a YAML file and inserts any that do not
// exist yet. Intended for development environments only; callers must
// not invoke it when no seed path is configured.
func SeedUsers(ctx context.Context, users UserRepository, hasher *PasswordHasher, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}

	var entries []seedUser
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return fmt.Errorf("parse seed file %s: %w", path, err)
	}

	created := 0
	for i, e := range entries {
		role := Role(e.Role)
		if e.Role == "" {
			role = RoleUser
		}
		if !role.Valid() {
			return fmt.Errorf("seed entry %d: unknown role %q", i, e.Role)
		}
		if ferrs := ValidateStruct(SignupInput{Username: e.Username, Email: e.Email, Password: e.Password}); ferrs != nil {
			return fmt.Errorf("seed entry %d: %w", i, ferrs)
		}

		hash, err := hasher.Hash(e.Password)
		if err != nil {
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
		if _, err := users.Create(ctx, e.Username, e.Email, hash, role); err != nil {
			if errors.Is(err, ErrUserExists) {
				continue
			}
			return fmt.Errorf("seed entry %d: %w", i, err)
		}
		created++
	}

	log.Printf("dev seed: created %d of %d users from %s", created, len(entries), path)
	return nil
}
