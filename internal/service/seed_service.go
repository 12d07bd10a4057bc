package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
)

type seedUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type demoAccount struct {
	email       string
	password    string
	displayName string
	role        models.UserRole
	department  string
}

var demoAccounts = []demoAccount{
	{"admin@example.com", "Admin123!", "Admin User", models.RoleAdmin, "Management"},
	{"manager@example.com", "Manager123!", "Manager User", models.RoleManager, "Human Resources"},
	{"employee@example.com", "Employee123!", "Employee User", models.RoleEmployee, "Engineering"},
}

// SeedService provisions the fixed demo accounts. Seeding is idempotent:
// accounts that already exist are left untouched.
type SeedService struct {
	repo   seedUserRepository
	logger *zap.Logger
}

// NewSeedService constructs a SeedService instance.
func NewSeedService(repo seedUserRepository, logger *zap.Logger) *SeedService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SeedService{repo: repo, logger: logger}
}

// SeedDemoAccounts creates any missing demo accounts and reports how many
// were created.
func (s *SeedService) SeedDemoAccounts(ctx context.Context) (int, error) {
	created := 0
	for _, account := range demoAccounts {
		if _, err := s.repo.FindByEmail(ctx, account.email); err == nil {
			s.logger.Info("demo account already exists", zap.String("email", account.email))
			continue
		} else if !errors.Is(err, sql.ErrNoRows) {
			return created, fmt.Errorf("check demo account %s: %w", account.email, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(account.password), bcrypt.DefaultCost)
		if err != nil {
			return created, fmt.Errorf("hash demo password for %s: %w", account.email, err)
		}

		department := account.department
		user := &models.User{
			Email:        account.email,
			PasswordHash: string(hash),
			DisplayName:  account.displayName,
			Role:         account.role,
			Department:   &department,
			Active:       true,
		}
		if err := s.repo.Create(ctx, user); err != nil {
			return created, fmt.Errorf("create demo account %s: %w", account.email, err)
		}
		s.logger.Info("demo account created", zap.String("email", account.email), zap.String("role", string(account.role)))
		created++
	}
	return created, nil
}
