package core

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"os"
)

// BootstrapAdmin creates an initial admin user when none exists. Roles
// are otherwise only changed by an existing admin, so this is how the
// first admin comes to be. It is idempotent: if an admin already exists,
// it does nothing.
func BootstrapAdmin(ctx context.Context, users UserRepository, hasher *PasswordHasher, cfg Config) error {
	if !cfg.BootstrapAdminEnabled {
		return nil
	}

	has, err := users.HasAdmin(ctx)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	const username = "admin"
	password, err := generatePassword(32)
	if err != nil {
		return err
	}
	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}

	if _, err := users.Create(ctx, username, "admin@localhost", hash, RoleAdmin); err != nil {
		if errors.Is(err, ErrUserExists) {
			// Lost the race with another process bootstrapping; fine.
			return nil
		}
		return fmt.Errorf("create initial admin: %w", err)
	}

	if cfg.InitialAdminPasswordPath != "" {
		if err := os.WriteFile(cfg.InitialAdminPasswordPath, []byte(password+"\n"), 0o600); err != nil {
			return err
		}
		log.Printf("initial admin created; credentials written to %s", cfg.InitialAdminPasswordPath)
	} else {
		log.Printf("initial admin created username=%s password=%s", username, password)
	}

	return nil
}

func generatePassword(length int) (string, error) {
	if length <= 0 {
		return "", errors.New("password length must be positive")
	}
	raw := make([]byte, length)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw)[:length], nil
}
