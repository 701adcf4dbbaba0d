// src/services/identity_service.go
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/username/folioledger/src/config"
	"github.com/username/folioledger/src/logger"
	"github.com/username/folioledger/src/models"
)

type identityServiceImpl struct {
	db *sql.DB
}

// NewIdentityService returns the sqlite-backed identity provider. It owns
// the accessible-portfolio list the aggregator fans out over.
func NewIdentityService(db *sql.DB) IdentityService {
	return &identityServiceImpl{db: db}
}

func (s *identityServiceImpl) AccessiblePortfolios(ctx context.Context, userID int64) ([]models.Portfolio, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, name, currency, is_default, created_at
		FROM portfolios
		WHERE user_id = ?
		ORDER BY is_default DESC, name ASC`, userID)
	if err != nil {
		return nil, fmt.Errorf("querying portfolios for user %d: %w", userID, err)
	}
	defer rows.Close()

	var portfolios []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(&p.ID, &p.UserID, &p.Name, &p.Currency, &p.IsDefault, &p.CreatedAt); err != nil {
			logger.L.Error("Portfolio row scan error", "userID", userID, "error", err)
			continue
		}
		portfolios = append(portfolios, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating portfolios for user %d: %w", userID, err)
	}
	if portfolios == nil {
		portfolios = []models.Portfolio{}
	}
	return portfolios, nil
}

func (s *identityServiceImpl) CreatePortfolio(ctx context.Context, userID int64, name, currency string, isDefault bool) (*models.Portfolio, error) {
	var currentCount int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM portfolios WHERE user_id = ?`, userID).Scan(&currentCount)
	if err != nil {
		return nil, fmt.Errorf("counting portfolios for user %d: %w", userID, err)
	}
	if currentCount >= config.Cfg.MaxPortfoliosPerUser {
		return nil, ErrPortfolioLimitReached
	}

	p := &models.Portfolio{
		ID:        uuid.New().String(),
		UserID:    userID,
		Name:      name,
		Currency:  currency,
		IsDefault: isDefault,
	}
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO portfolios (id, user_id, name, currency, is_default)
		VALUES (?, ?, ?, ?, ?)
		RETURNING created_at`,
		p.ID, p.UserID, p.Name, p.Currency, p.IsDefault,
	).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating portfolio for user %d: %w", userID, err)
	}
	return p, nil
}

func (s *identityServiceImpl) DeletePortfolio(ctx context.Context, userID int64, portfolioID string) error {
	var isDefault bool
	err := s.db.QueryRowContext(ctx,
		`SELECT is_default FROM portfolios WHERE id = ? AND user_id = ?`, portfolioID, userID,
	).Scan(&isDefault)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrPortfolioNotFound
	}
	if err != nil {
		return fmt.Errorf("looking up portfolio %s: %w", portfolioID, err)
	}
	if isDefault {
		return fmt.Errorf("cannot delete the default portfolio")
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM portfolios WHERE id = ? AND user_id = ?`, portfolioID, userID)
	if err != nil {
		return fmt.Errorf("deleting portfolio %s: %w", portfolioID, err)
	}
	return nil
}
