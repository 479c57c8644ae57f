package models

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

type Admin struct {
	ID                 string    `json:"id" db:"id"`
	Email              string    `json:"email" db:"email"`
	PasswordHash       string    `json:"-" db:"password_hash"`
	Role               string    `json:"role" db:"role"`
	MustChangePassword bool      `json:"must_change_password" db:"must_change_password"`
	CreatedAt          time.Time `json:"created_at" db:"created_at"`
}

func FindAdminByEmail(ctx context.Context, email string) (*Admin, error) {
	var a Admin
	err := database.Pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, must_change_password, created_at
		FROM admins WHERE email = $1
	`, email).Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Role, &a.MustChangePassword, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func UpdateAdminPassword(ctx context.Context, adminID, passwordHash string) error {
	_, err := database.Pool.Exec(ctx, `
		UPDATE admins SET password_hash = $2, must_change_password = false WHERE id = $1
	`, adminID, passwordHash)
	return err
}
