package models

import (
	"context"
	"strconv"

	"github.com/Vinton777/remnawave-STEALTHNET-Bot/database"
)

// SystemConfig — системные настройки из key/value таблицы. Читаются заново
// при каждом обращении (не кэшируются): смена процентов применяется к
// следующему платежу без рестарта.
type SystemConfig struct {
	DefaultReferralPercent float64 // уровень 1
	ReferralPercentLevel2  float64
	ReferralPercentLevel3  float64
	TrialDays              int
	TrialSquadUUID         string
	TrialDeviceLimit       *int
	TrialTrafficLimitBytes *int64
	ServiceName            string
	RemnaClientURL         string
}

var systemConfigKeys = []string{
	"default_referral_percent", "referral_percent_level_2", "referral_percent_level_3",
	"trial_days", "trial_squad_uuid", "trial_device_limit", "trial_traffic_limit",
	"service_name", "remna_client_url",
}

func GetSystemConfig(ctx context.Context) (*SystemConfig, error) {
	rows, err := database.Pool.Query(ctx, `
		SELECT key, value FROM system_settings WHERE key = ANY($1)
	`, systemConfigKeys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	m := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		m[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	cfg := &SystemConfig{
		DefaultReferralPercent: parseFloat(m["default_referral_percent"], 30),
		ReferralPercentLevel2:  parseFloat(m["referral_percent_level_2"], 10),
		ReferralPercentLevel3:  parseFloat(m["referral_percent_level_3"], 10),
		TrialDays:              parseInt(m["trial_days"], 3),
		TrialSquadUUID:         m["trial_squad_uuid"],
		ServiceName:            defaultString(m["service_name"], "STEALTHNET"),
		RemnaClientURL:         m["remna_client_url"],
	}
	if v := m["trial_device_limit"]; v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.TrialDeviceLimit = &n
		}
	}
	if v := m["trial_traffic_limit"]; v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.TrialTrafficLimitBytes = &n
		}
	}
	return cfg, nil
}

func GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := database.Pool.QueryRow(ctx, `SELECT value FROM system_settings WHERE key = $1`, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

func SetSetting(ctx context.Context, key, value string) error {
	_, err := database.Pool.Exec(ctx, `
		INSERT INTO system_settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`, key, value)
	return err
}

func parseFloat(s string, def float64) float64 {
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return def
}

func parseInt(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func defaultString(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
