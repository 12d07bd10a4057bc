package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/talent-pipeline-api/internal/models"
)

// SessionPhase tells how much of a session has been resolved.
type SessionPhase string

const (
	// SessionProvisional carries only what the access token proves.
	SessionProvisional SessionPhase = "provisional"
	// SessionEnriched additionally carries the stored profile.
	SessionEnriched SessionPhase = "enriched"
)

// Session is the caller's resolved identity for one request. It is built in
// two phases: the token claims always yield a provisional session, and a
// profile lookup upgrades it when the lookup succeeds. Enrichment failures
// are logged, never surfaced, so a degraded profile store cannot lock
// authenticated users out.
type Session struct {
	Phase       SessionPhase     `json:"phase"`
	UserID      string           `json:"user_id"`
	Email       string           `json:"email"`
	DisplayName string           `json:"display_name"`
	Role        models.UserRole  `json:"role"`
	Department  *string          `json:"department,omitempty"`
	LastLogin   *time.Time       `json:"last_login,omitempty"`
	Navigation  []models.NavItem `json:"navigation"`
}

type identityUserRepository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// IdentityService resolves request sessions from verified token claims.
type IdentityService struct {
	repo   identityUserRepository
	logger *zap.Logger
}

// NewIdentityService constructs an IdentityService instance.
func NewIdentityService(repo identityUserRepository, logger *zap.Logger) *IdentityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityService{repo: repo, logger: logger}
}

// Resolve builds a session for the given verified claims. It never returns
// an error: the claims alone are enough for a provisional session, and the
// profile lookup only upgrades it.
func (s *IdentityService) Resolve(ctx context.Context, claims *models.JWTClaims) *Session {
	session := &Session{
		Phase:       SessionProvisional,
		UserID:      claims.UserID,
		Email:       claims.Email,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}
	session.Navigation = models.NavigationForRole(session.Role)

	user, err := s.repo.FindByID(ctx, claims.UserID)
	if err != nil {
		s.logger.Warn("session enrichment failed, continuing provisional",
			zap.String("user_id", claims.UserID),
			zap.Error(err))
		return session
	}

	session.Phase = SessionEnriched
	session.Email = user.Email
	session.DisplayName = user.DisplayName
	session.Role = user.Role
	session.Department = user.Department
	session.LastLogin = user.LastLogin
	session.Navigation = models.NavigationForRole(user.Role)
	return session
}
