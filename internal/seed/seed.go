// Package seed creates accounts listed in a YAML file at startup so a fresh
// store, in particular the in-memory fallback, has facilities to show.
package seed

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/tailaid/tailaid-api/internal/domain"
	"github.com/tailaid/tailaid-api/internal/service"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Account is one entry of the seed file
type Account struct {
	Name      string   `yaml:"name"`
	Email     string   `yaml:"email"`
	Password  string   `yaml:"password"`
	Phone     string   `yaml:"phone"`
	Role      string   `yaml:"role"`
	Address   string   `yaml:"address"`
	Latitude  *float64 `yaml:"lat"`
	Longitude *float64 `yaml:"lng"`
}

// File is the seed document
type File struct {
	Accounts []Account `yaml:"accounts"`
}

// Signer creates accounts. Implemented by service.UserService.
type Signer interface {
	Signup(ctx context.Context, req *domain.SignupRequest) (*domain.AuthResponse, error)
}

// Result counts what a seed run did
type Result struct {
	Created int
	Skipped int
}

// Parse decodes a seed document. Unknown keys are rejected so typos surface.
func Parse(data []byte) (*File, error) {
	var f File
	if len(bytes.TrimSpace(data)) == 0 {
		return &f, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("seed: decode: %w", err)
	}
	return &f, nil
}

// LoadFile reads and parses the seed file at path
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("seed: read %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("seed: %s: %w", path, err)
	}
	return f, nil
}

// Seeder creates seed accounts through the user service
type Seeder struct {
	users    Signer
	validate *validator.Validate
	logger   *zap.Logger
}

func NewSeeder(users Signer, logger *zap.Logger) *Seeder {
	return &Seeder{
		users:    users,
		validate: validator.New(),
		logger:   logger,
	}
}

// Apply creates every account whose email is not taken yet. Accounts that
// fail validation are skipped with a warning; store errors abort the run.
func (s *Seeder) Apply(ctx context.Context, f *File) (Result, error) {
	var res Result

	for i, acc := range f.Accounts {
		req := &domain.SignupRequest{
			Name:      acc.Name,
			Email:     acc.Email,
			Password:  acc.Password,
			Phone:     acc.Phone,
			Role:      acc.Role,
			Address:   acc.Address,
			Latitude:  acc.Latitude,
			Longitude: acc.Longitude,
		}

		if err := s.validate.Struct(req); err != nil {
			s.logger.Warn("skipping invalid seed account",
				zap.Int("index", i),
				zap.String("email", acc.Email),
				zap.Error(err))
			res.Skipped++
			continue
		}

		_, err := s.users.Signup(ctx, req)
		switch {
		case err == nil:
			res.Created++
		case errors.Is(err, service.ErrEmailTaken):
			res.Skipped++
		case errors.Is(err, service.ErrInvalidRole):
			s.logger.Warn("skipping seed account with unknown role",
				zap.String("email", acc.Email),
				zap.String("role", acc.Role))
			res.Skipped++
		default:
			return res, fmt.Errorf("seed: create %s: %w", acc.Email, err)
		}
	}

	s.logger.Info("seed applied",
		zap.Int("created", res.Created),
		zap.Int("skipped", res.Skipped))

	return res, nil
}

// ApplyFile loads path and applies it. An empty path is a no-op.
func (s *Seeder) ApplyFile(ctx context.Context, path string) (Result, error) {
	if path == "" {
		return Result{}, nil
	}
	f, err := LoadFile(path)
	if err != nil {
		return Result{}, err
	}
	return s.Apply(ctx, f)
}
