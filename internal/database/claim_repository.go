package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// ClaimRepository persists claims, including the ones rule actions file
// automatically.
type ClaimRepository struct {
	db *sqlx.DB
}

// NewClaimRepository creates a claim repository.
func NewClaimRepository(db *sqlx.DB) *ClaimRepository {
	return &ClaimRepository{db: db}
}

// Create inserts a new claim.
func (r *ClaimRepository) Create(ctx context.Context, claim *governance.Claim) error {
	query := `
		INSERT INTO claims (id, listing_id, claimant_id, type, status, evidence, notes, created_at)
		VALUES (:id, :listing_id, :claimant_id, :type, :status, :evidence, :notes, NOW())`

	_, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":          claim.ID,
		"listing_id":  claim.ListingID,
		"claimant_id": claim.ClaimantID,
		"type":        string(claim.Type),
		"status":      string(claim.Status),
		"evidence":    claim.Evidence,
		"notes":       claim.Notes,
	})
	if err != nil {
		return fmt.Errorf("inserting claim %s: %w", claim.ID, err)
	}
	return nil
}
