package database

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/config"
)

var Pool *pgxpool.Pool

func InitDB(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode)

	var err error
	Pool, err = pgxpool.New(context.Background(), dsn)
	if err != nil {
		return fmt.Errorf("unable to connect to database: %w", err)
	}

	if err := Pool.Ping(context.Background()); err != nil {
		return fmt.Errorf("unable to ping database: %w", err)
	}

	log.Println("✅ Подключение к PostgreSQL установлено")
	if err := createClientsTable(); err != nil {
		return fmt.Errorf("failed to create clients table: %w", err)
	}
	if err := createTariffsTable(); err != nil {
		return fmt.Errorf("failed to create tariffs table: %w", err)
	}
	if err := createPaymentsTable(); err != nil {
		return fmt.Errorf("failed to create payments table: %w", err)
	}
	if err := createReferralCreditsTable(); err != nil {
		return fmt.Errorf("failed to create referral_credits table: %w", err)
	}
	if err := createSystemSettingsTable(); err != nil {
		return fmt.Errorf("failed to create system_settings table: %w", err)
	}
	if err := createAdminsTable(); err != nil {
		return fmt.Errorf("failed to create admins table: %w", err)
	}
	if err := seedFirstAdmin(cfg); err != nil {
		return err
	}
	return nil
}

func CloseDB() {
	if Pool != nil {
		Pool.Close()
		log.Println("🛑 Соединение с PostgreSQL закрыто")
	}
}

func createClientsTable() error {
	// pgcrypto для gen_random_uuid()
	_, err := Pool.Exec(context.Background(), `CREATE EXTENSION IF NOT EXISTS "pgcrypto";`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS clients (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE,
			telegram_id VARCHAR(64) UNIQUE,
			balance NUMERIC(12,2) NOT NULL DEFAULT 0,
			remna_uuid VARCHAR(64),
			referral_code VARCHAR(20) UNIQUE NOT NULL,
			referrer_id UUID REFERENCES clients(id) ON DELETE SET NULL,
			is_blocked BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_clients_referrer_id ON clients(referrer_id);
		CREATE INDEX IF NOT EXISTS idx_clients_referral_code ON clients(referral_code);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица clients готова")
	return nil
}

func createTariffsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS tariffs (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			name VARCHAR(100) NOT NULL,
			price NUMERIC(12,2) NOT NULL,
			currency VARCHAR(8) NOT NULL DEFAULT 'RUB',
			duration_days INTEGER NOT NULL CHECK (duration_days > 0),
			traffic_limit_bytes BIGINT,
			device_limit INTEGER,
			internal_squad_uuids TEXT[] NOT NULL DEFAULT '{}',
			is_active BOOLEAN NOT NULL DEFAULT true,
			sort_order INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица tariffs готова")
	return nil
}

func createPaymentsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS payments (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			client_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			order_id VARCHAR(64) UNIQUE NOT NULL,
			amount NUMERIC(12,2) NOT NULL,
			currency VARCHAR(8) NOT NULL DEFAULT 'RUB',
			status VARCHAR(16) NOT NULL DEFAULT 'PENDING',
			provider VARCHAR(32) NOT NULL,
			external_id VARCHAR(128),
			tariff_id UUID REFERENCES tariffs(id),
			paid_at TIMESTAMPTZ,
			referral_distributed_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_payments_client_id ON payments(client_id);
		CREATE INDEX IF NOT EXISTS idx_payments_external_id ON payments(external_id, provider);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица payments готова")
	return nil
}

func createReferralCreditsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS referral_credits (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			referrer_id UUID NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
			payment_id UUID NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
			amount NUMERIC(12,2) NOT NULL,
			level INTEGER NOT NULL CHECK (level BETWEEN 1 AND 3),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(referrer_id, payment_id)
		);
	`)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		CREATE INDEX IF NOT EXISTS idx_referral_credits_referrer_id ON referral_credits(referrer_id);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица referral_credits готова")
	return nil
}

func createSystemSettingsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS system_settings (
			key VARCHAR(64) PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	// Дефолтные проценты реферальной программы и прочие настройки
	_, err = Pool.Exec(context.Background(), `
		INSERT INTO system_settings (key, value) VALUES
			('default_referral_percent', '30'),
			('referral_percent_level_2', '10'),
			('referral_percent_level_3', '10'),
			('trial_days', '3'),
			('service_name', 'STEALTHNET')
		ON CONFLICT (key) DO NOTHING;
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица system_settings готова")
	return nil
}

func createAdminsTable() error {
	_, err := Pool.Exec(context.Background(), `
		CREATE TABLE IF NOT EXISTS admins (
			id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			email VARCHAR(255) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) NOT NULL DEFAULT 'ADMIN',
			must_change_password BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}

	log.Println("✅ Таблица admins готова")
	return nil
}

// seedFirstAdmin создаёт первого администратора, если таблица admins пуста.
// Повторный запуск ничего не делает (проверка по количеству строк).
func seedFirstAdmin(cfg *config.Config) error {
	var count int
	err := Pool.QueryRow(context.Background(), `SELECT COUNT(*) FROM admins`).Scan(&count)
	if err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := cfg.InitAdminPassword
	generated := false
	if password == "" {
		password = generateRandomPassword()
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return err
	}

	_, err = Pool.Exec(context.Background(), `
		INSERT INTO admins (email, password_hash, must_change_password)
		VALUES ($1, $2, true)
	`, cfg.InitAdminEmail, string(hash))
	if err != nil {
		return err
	}

	if generated {
		log.Println("========================================")
		log.Println("STEALTHNET — первый админ создан")
		log.Printf("Email: %s", cfg.InitAdminEmail)
		log.Printf("Пароль (сохраните и смените в админке): %s", password)
		log.Println("========================================")
	} else {
		log.Printf("✅ Создан администратор %s", cfg.InitAdminEmail)
	}
	return nil
}

func generateRandomPassword() string {
	const chars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghjkmnpqrstuvwxyz23456789"
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "ChangeMe123!"
	}
	for i := range buf {
		buf[i] = chars[int(buf[i])%len(chars)]
	}
	return string(buf)
}
