package models

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

type Tariff struct {
	ID                 string    `json:"id" db:"id"`
	Name               string    `json:"name" db:"name"`
	Price              float64   `json:"price" db:"price"`
	Currency           string    `json:"currency" db:"currency"`
	DurationDays       int       `json:"duration_days" db:"duration_days"`
	TrafficLimitBytes  *int64    `json:"traffic_limit_bytes" db:"traffic_limit_bytes"` // nil/0 = безлимит
	DeviceLimit        *int      `json:"device_limit" db:"device_limit"`               // nil/0 = безлимит
	InternalSquadUUIDs []string  `json:"internal_squad_uuids" db:"internal_squad_uuids"`
	IsActive           bool      `json:"is_active" db:"is_active"`
	SortOrder          int       `json:"sort_order" db:"sort_order"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

const tariffColumns = `id, name, price, currency, duration_days, traffic_limit_bytes, device_limit, internal_squad_uuids, is_active, sort_order, created_at`

func scanTariff(row pgx.Row) (*Tariff, error) {
	var t Tariff
	err := row.Scan(&t.ID, &t.Name, &t.Price, &t.Currency, &t.DurationDays,
		&t.TrafficLimitBytes, &t.DeviceLimit, &t.InternalSquadUUIDs, &t.IsActive, &t.SortOrder, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &t, nil
}

func GetTariff(ctx context.Context, id string) (*Tariff, error) {
	row := database.Pool.QueryRow(ctx, `SELECT `+tariffColumns+` FROM tariffs WHERE id = $1`, id)
	return scanTariff(row)
}

func ListActiveTariffs(ctx context.Context) ([]Tariff, error) {
	rows, err := database.Pool.Query(ctx, `
		SELECT `+tariffColumns+` FROM tariffs
		WHERE is_active
		ORDER BY sort_order, created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tariffs []Tariff
	for rows.Next() {
		var t Tariff
		err := rows.Scan(&t.ID, &t.Name, &t.Price, &t.Currency, &t.DurationDays,
			&t.TrafficLimitBytes, &t.DeviceLimit, &t.InternalSquadUUIDs, &t.IsActive, &t.SortOrder, &t.CreatedAt)
		if err != nil {
			return nil, err
		}
		tariffs = append(tariffs, t)
	}
	return tariffs, rows.Err()
}

func CreateTariff(ctx context.Context, t *Tariff) (*Tariff, error) {
	row := database.Pool.QueryRow(ctx, `
		INSERT INTO tariffs (name, price, currency, duration_days, traffic_limit_bytes, device_limit, internal_squad_uuids, is_active, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+tariffColumns,
		t.Name, t.Price, t.Currency, t.DurationDays, t.TrafficLimitBytes, t.DeviceLimit, t.InternalSquadUUIDs, t.IsActive, t.SortOrder)
	return scanTariff(row)
}
