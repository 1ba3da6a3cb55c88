package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/moneywise-app/moneywise/internal/model"
)

// InsertSummary stores a generated financial summary.
func (s *Store) InsertSummary(ctx context.Context, summary *model.Summary) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if summary == nil {
		return errors.New("summary cannot be nil")
	}
	if err := validateString(summary.UserID, "summary.UserID"); err != nil {
		return err
	}

	if summary.ID == "" {
		summary.ID = uuid.New().String()
	}
	if summary.CreatedAt.IsZero() {
		summary.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (id, user_id, period, start_date, end_date, total_income, total_expenses, net_change, top_category, insights, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.ID, summary.UserID, summary.Period, summary.StartDate, summary.EndDate,
		storeDecimal(summary.TotalIncome), storeDecimal(summary.TotalExpenses),
		storeDecimal(summary.NetChange), summary.TopCategory, summary.Insights, summary.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert summary: %w", err)
	}
	return nil
}

// GetLatestSummary returns the user's most recent summary, or ErrNotFound.
func (s *Store) GetLatestSummary(ctx context.Context, userID string) (*model.Summary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}

	var (
		summary       model.Summary
		totalIncome   string
		totalExpenses string
		netChange     string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, period, start_date, end_date, total_income, total_expenses, net_change, top_category, insights, created_at
		 FROM summaries WHERE user_id = ? ORDER BY created_at DESC LIMIT 1`, userID).
		Scan(&summary.ID, &summary.UserID, &summary.Period, &summary.StartDate, &summary.EndDate,
			&totalIncome, &totalExpenses, &netChange, &summary.TopCategory, &summary.Insights, &summary.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan summary: %w", err)
	}

	if summary.TotalIncome, err = parseDecimal(totalIncome, "summaries.total_income"); err != nil {
		return nil, err
	}
	if summary.TotalExpenses, err = parseDecimal(totalExpenses, "summaries.total_expenses"); err != nil {
		return nil, err
	}
	if summary.NetChange, err = parseDecimal(netChange, "summaries.net_change"); err != nil {
		return nil, err
	}
	return &summary, nil
}
