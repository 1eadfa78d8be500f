package rdb

import (
	"encoding/json"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// OpenFromURL opens a GORM DB based on a simple db-url string.
// Supported:
//   - sqlite:<dsn>   e.g., sqlite:./stackmint.db or sqlite::memory:
//   - sqlite3:<dsn>  alias of sqlite
func OpenFromURL(dbURL string) (*gorm.DB, error) {
	switch {
	case strings.HasPrefix(dbURL, "sqlite:"):
		return openSQLite(strings.TrimPrefix(dbURL, "sqlite:"))
	case strings.HasPrefix(dbURL, "sqlite3:"):
		return openSQLite(strings.TrimPrefix(dbURL, "sqlite3:"))
	default:
		return nil, fmt.Errorf("unsupported db scheme: %s", dbURL)
	}
}

func openSQLite(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		dsn = "./stackmint.db"
	}
	return gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
}

// AutoMigrate applies schema migrations for all RDB models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&ClusterTemplateRecord{},
		&ClusterRecord{},
		&NodeGroupRecord{},
		&X509KeyPairRecord{},
		&QuotaRecord{},
		&FederationRecord{},
		&ServiceHeartbeatRecord{},
	)
}

// encodeJSON marshals v into the text column form; nil maps and slices encode
// as the empty string so zero values round-trip.
func encodeJSON(v interface{}) string {
	switch t := v.(type) {
	case map[string]string:
		if len(t) == 0 {
			return ""
		}
	case []string:
		if len(t) == 0 {
			return ""
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// normalizeUpdates copies the update map, converting map and slice values to
// their JSON text column form. Callers can pass model-typed values directly
// and keep reusing their map afterwards.
func normalizeUpdates(updates map[string]interface{}) map[string]interface{} {
	cols := make(map[string]interface{}, len(updates)+1)
	for k, v := range updates {
		switch t := v.(type) {
		case map[string]string:
			cols[k] = encodeJSON(t)
		case []string:
			cols[k] = encodeJSON(t)
		default:
			cols[k] = v
		}
	}
	return cols
}

func decodeMap(s string) map[string]string {
	if s == "" {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	return m
}

func decodeStrings(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}
