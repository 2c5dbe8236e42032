package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/godilite/service-audit/internal/repository/models"
)

// UserStore is the slice of the repository the seeder needs.
type UserStore interface {
	GetUser(ctx context.Context, id int64) (models.User, error)
	CreateUser(ctx context.Context, u models.User) (int64, error)
}

type seedFile struct {
	Users []models.User `yaml:"users"`
}

var validRoles = map[string]bool{
	models.RoleAdministrator: true,
	models.RoleManager:       true,
	models.RoleAnalyst:       true,
}

// SeedUsersFromFile loads the user directory from a YAML file. See SeedUsers.
func SeedUsersFromFile(ctx context.Context, store UserStore, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()
	return SeedUsers(ctx, store, f)
}

// SeedUsers creates the users listed in r. Users whose id already exists are
// left untouched, so reseeding on every start is safe. Returns how many were created.
func SeedUsers(ctx context.Context, store UserStore, r io.Reader) (int, error) {
	var doc seedFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return 0, fmt.Errorf("decode seed: %w", err)
	}

	created := 0
	for i, u := range doc.Users {
		if u.ID <= 0 || u.Username == "" {
			return created, fmt.Errorf("seed user #%d: id and username are required", i+1)
		}
		if !validRoles[u.Role] {
			return created, fmt.Errorf("seed user %q: unknown role %q", u.Username, u.Role)
		}

		_, err := store.GetUser(ctx, u.ID)
		if err == nil {
			continue
		}
		if !errors.Is(err, models.ErrNotFound) {
			return created, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		if _, err := store.CreateUser(ctx, u); err != nil {
			return created, fmt.Errorf("seed user %q: %w", u.Username, err)
		}
		created++
	}
	return created, nil
}
