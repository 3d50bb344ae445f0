package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/propertymesh/listing-governance/internal/governance"
)

// updatableColumns whitelists the listing columns an auto-correction may
// rewrite. Field names arrive from rule action details, never raw user
// input, but the whitelist keeps column names out of the SQL entirely.
var updatableColumns = map[string]string{
	"status":        "status",
	"price":         "price",
	"title":         "title",
	"description":   "description",
	"property_type": "property_type",
}

// ListingRepository is the postgres-backed listing store.
type ListingRepository struct {
	db *sqlx.DB
}

// NewListingRepository creates a listing repository.
func NewListingRepository(db *sqlx.DB) *ListingRepository {
	return &ListingRepository{db: db}
}

type listingRow struct {
	ID               string         `db:"id"`
	PropertyID       string         `db:"property_id"`
	BrokerID         sql.NullString `db:"broker_id"`
	Source           string         `db:"source"`
	SourceID         sql.NullString `db:"source_id"`
	Status           string         `db:"status"`
	Price            float64        `db:"price"`
	Title            string         `db:"title"`
	Description      string         `db:"description"`
	LegalDescription string         `db:"legal_description"`
	PropertyType     string         `db:"property_type"`
	Street           string         `db:"street"`
	City             string         `db:"city"`
	State            string         `db:"state"`
	PostalCode       string         `db:"postal_code"`
	Photos           pq.StringArray `db:"photos"`
	CreatedAt        time.Time      `db:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at"`
}

func (r listingRow) toListing() *governance.Listing {
	return &governance.Listing{
		ID:               r.ID,
		PropertyID:       r.PropertyID,
		BrokerID:         r.BrokerID.String,
		Source:           governance.Source(r.Source),
		SourceID:         r.SourceID.String,
		Status:           governance.ListingStatus(r.Status),
		Price:            r.Price,
		Title:            r.Title,
		Description:      r.Description,
		LegalDescription: r.LegalDescription,
		PropertyType:     r.PropertyType,
		Address: &governance.Address{
			Street:     r.Street,
			City:       r.City,
			State:      r.State,
			PostalCode: r.PostalCode,
		},
		Photos: r.Photos,
	}
}

// FindActiveByPropertyID returns the ID of the property's ACTIVE listing,
// or "" when none exists.
func (r *ListingRepository) FindActiveByPropertyID(ctx context.Context, propertyID string) (string, error) {
	var id string
	err := r.db.GetContext(ctx, &id,
		`SELECT id FROM listings WHERE property_id = $1 AND status = 'ACTIVE' LIMIT 1`,
		propertyID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("querying active listing for property %s: %w", propertyID, err)
	}
	return id, nil
}

// GetByID returns the listing, or nil when it does not exist.
func (r *ListingRepository) GetByID(ctx context.Context, id string) (*governance.Listing, error) {
	var row listingRow
	err := r.db.GetContext(ctx, &row, `SELECT * FROM listings WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying listing %s: %w", id, err)
	}
	return row.toListing(), nil
}

// UpdateField rewrites a single whitelisted column on a listing.
func (r *ListingRepository) UpdateField(ctx context.Context, id, field, value string) error {
	column, ok := updatableColumns[field]
	if !ok {
		return fmt.Errorf("field %q is not updatable", field)
	}

	query := fmt.Sprintf(`UPDATE listings SET %s = $1, updated_at = NOW() WHERE id = $2`, column)
	res, err := r.db.ExecContext(ctx, query, value, id)
	if err != nil {
		return fmt.Errorf("updating listing %s field %s: %w", id, field, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("listing %s not found", id)
	}
	return nil
}
