package models

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

var ErrNotFound = errors.New("not found")

type Client struct {
	ID           string    `json:"id" db:"id"`
	Email        *string   `json:"email" db:"email"`
	TelegramID   *string   `json:"telegram_id" db:"telegram_id"`
	Balance      float64   `json:"balance" db:"balance"`
	RemnaUUID    *string   `json:"remna_uuid" db:"remna_uuid"`
	ReferralCode string    `json:"referral_code" db:"referral_code"`
	ReferrerID   *string   `json:"referrer_id" db:"referrer_id"`
	IsBlocked    bool      `json:"is_blocked" db:"is_blocked"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

const clientColumns = `id, email, telegram_id, balance, remna_uuid, referral_code, referrer_id, is_blocked, created_at, updated_at`

func scanClient(row pgx.Row) (*Client, error) {
	var c Client
	err := row.Scan(&c.ID, &c.Email, &c.TelegramID, &c.Balance, &c.RemnaUUID,
		&c.ReferralCode, &c.ReferrerID, &c.IsBlocked, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func GetClient(ctx context.Context, id string) (*Client, error) {
	row := database.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = $1`, id)
	return scanClient(row)
}

func FindClientByReferralCode(ctx context.Context, code string) (*Client, error) {
	row := database.Pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE referral_code = $1`, code)
	return scanClient(row)
}

// CreateClient регистрирует клиента. referrerID может быть nil —
// цепочка рефереров задаётся один раз при регистрации.
func CreateClient(ctx context.Context, email, telegramID *string, referrerID *string) (*Client, error) {
	row := database.Pool.QueryRow(ctx, `
		INSERT INTO clients (email, telegram_id, referral_code, referrer_id)
		VALUES ($1, $2, $3, $4)
		RETURNING `+clientColumns,
		email, telegramID, GenerateReferralCode(), referrerID)
	return scanClient(row)
}

// GenerateReferralCode — код вида REF-XXXXXXXX
func GenerateReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "REF-" + strings.ToUpper(hex.EncodeToString([]byte(time.Now().Format("0102"))))
	}
	return "REF-" + strings.ToUpper(hex.EncodeToString(buf))
}

// SetRemnaUUID сохраняет ссылку на аккаунт в панели после первой успешной активации
func SetRemnaUUID(ctx context.Context, clientID, remnaUUID string) error {
	_, err := database.Pool.Exec(ctx, `
		UPDATE clients SET remna_uuid = $2, updated_at = NOW() WHERE id = $1
	`, clientID, remnaUUID)
	return err
}

// DebitBalance атомарно списывает amount с баланса клиента.
// Возвращает false, если средств не хватает или клиент заблокирован.
// Принимает Querier: списание при покупке идёт в одной транзакции со
// вставкой платежа.
func DebitBalance(ctx context.Context, q Querier, clientID string, amount float64) (bool, error) {
	tag, err := q.Exec(ctx, `
		UPDATE clients SET balance = balance - $2, updated_at = NOW()
		WHERE id = $1 AND balance >= $2 AND NOT is_blocked
	`, clientID, amount)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ChainMember — звено реферальной цепочки (уровни 1..3)
type ChainMember struct {
	ID        string
	IsBlocked bool
}

// ReferrerChain возвращает до трёх рефереров клиента, от уровня 1 к уровню 3.
// Обход строго ограничен тремя переходами: циклы пресекаются при создании
// реферальной связи, но рекурсия здесь в любом случае не используется.
func ReferrerChain(ctx context.Context, q Querier, clientID string) ([]ChainMember, error) {
	var referrerID *string
	err := q.QueryRow(ctx, `SELECT referrer_id FROM clients WHERE id = $1`, clientID).Scan(&referrerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	chain := make([]ChainMember, 0, 3)
	for level := 1; level <= 3 && referrerID != nil; level++ {
		var m ChainMember
		var next *string
		err := q.QueryRow(ctx, `SELECT id, is_blocked, referrer_id FROM clients WHERE id = $1`, *referrerID).
			Scan(&m.ID, &m.IsBlocked, &next)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}
			return nil, err
		}
		chain = append(chain, m)
		referrerID = next
	}
	return chain, nil
}
