package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Settings holds every runtime knob, loaded once at process start and
// read-only afterwards. It is passed explicitly; there is no package-level
// instance.
type Settings struct {
	AppName string
	AppEnv  string // development, staging, production
	Debug   bool
	Port    string

	// Shared secret for service-to-service calls (X-API-Key).
	APIKey string

	// PostgreSQL: the audit store plus read-only ERP replica databases.
	PGHost     string
	PGPort     int
	PGUser     string
	PGPassword string
	PGAuditDB  string
	PGSSLMode  string

	// ERP XML-RPC. Two server generations; each database is bound to a
	// host and protocol version at configuration time.
	ErpHosts    map[string]string
	ErpPort     int
	ErpUser     string
	ErpPassword string
	AllowedDBs  []string

	// ClickHouse analytics warehouse (native protocol).
	CHHost     string
	CHPort     int
	CHUser     string
	CHPassword string

	// Identity provider (OAuth2/OIDC) for user bearer tokens.
	IdpIssuer       string
	IdpJWKSURI      string
	IdpClientID     string
	IdpClientSecret string

	// Chat platform.
	SlashToken string
	ChatAPIURL string

	// Document platform (Frappe-style REST).
	FrappeSite      string
	FrappeAPIKey    string
	FrappeAPISecret string

	// BI tool (Metabase-style).
	MBDomain          string
	MBEmbeddingSecret string
	MBSessionToken    string
}

const hrisDB = "hris_db"

// Load reads configs/.env (if present) and the environment.
func Load() (*Settings, error) {
	// Missing .env is fine in containerized deployments.
	_ = godotenv.Load("configs/.env")

	s := &Settings{
		AppName: getEnv("APP_NAME", "mm-core"),
		AppEnv:  getEnv("APP_ENV", "development"),
		Debug:   getEnvBool("DEBUG", false),
		Port:    getEnv("PORT", "8080"),

		APIKey: os.Getenv("API_KEY"),

		PGHost:     getEnv("PG_HOST", "localhost"),
		PGPort:     getEnvInt("PG_PORT", 5432),
		PGUser:     getEnv("PG_USER", "postgres"),
		PGPassword: os.Getenv("PG_PASSWORD"),
		PGAuditDB:  getEnv("PG_AUDIT_DB", "mm_audit"),
		PGSSLMode:  getEnv("PG_SSLMODE", "disable"),

		ErpHosts: map[string]string{
			"tln_db": getEnv("ERP_HOST_TLN", "erp-16-dev.internal"),
			"ieg_db": getEnv("ERP_HOST_IEG", "erp-16-dev.internal"),
			"tmi_db": getEnv("ERP_HOST_TMI", "erp-16-dev.internal"),
			hrisDB:   getEnv("ERP_HOST_HRIS", "erp-13-dev.internal"),
		},
		ErpPort:     getEnvInt("ERP_PORT", 8069),
		ErpUser:     getEnv("ERP_USER", "service_account"),
		ErpPassword: os.Getenv("ERP_PASSWORD"),
		AllowedDBs:  splitCSV(getEnv("ALLOWED_ERP_DBS", "tln_db,ieg_db,tmi_db,hris_db")),

		CHHost:     getEnv("CH_HOST", "localhost"),
		CHPort:     getEnvInt("CH_PORT", 9000),
		CHUser:     getEnv("CH_USER", "clickhouse"),
		CHPassword: os.Getenv("CH_PASSWORD"),

		IdpIssuer:       getEnv("IDP_ISSUER", "https://auth.example.com"),
		IdpJWKSURI:      os.Getenv("IDP_JWKS_URI"),
		IdpClientID:     os.Getenv("IDP_CLIENT_ID"),
		IdpClientSecret: os.Getenv("IDP_CLIENT_SECRET"),

		SlashToken: os.Getenv("SLASH_TOKEN"),
		ChatAPIURL: getEnv("CHAT_API_URL", "https://chat.example.com/api/v4"),

		FrappeSite:      getEnv("FRAPPE_SITE", "erp.example.com"),
		FrappeAPIKey:    os.Getenv("FRAPPE_API_KEY"),
		FrappeAPISecret: os.Getenv("FRAPPE_API_SECRET"),

		MBDomain:          getEnv("MB_DOMAIN", "mb.example.com"),
		MBEmbeddingSecret: os.Getenv("MB_EMBEDDING_SECRET"),
		MBSessionToken:    os.Getenv("MB_SESSION_TOKEN"),
	}

	if s.APIKey == "" {
		return nil, fmt.Errorf("API_KEY is required")
	}
	return s, nil
}

// IsAllowedDB reports whether name is a configured ERP database.
func (s *Settings) IsAllowedDB(name string) bool {
	for _, db := range s.AllowedDBs {
		if db == name {
			return true
		}
	}
	return false
}

// ErpHost returns the XML-RPC host for the given database.
func (s *Settings) ErpHost(dbName string) string {
	if host, ok := s.ErpHosts[dbName]; ok {
		return host
	}
	return s.ErpHosts["tln_db"]
}

// ErpVersion returns the ERP generation serving the given database.
// The HRIS database still runs the older generation; schema visible to
// this system is identical.
func (s *Settings) ErpVersion(dbName string) int {
	if dbName == hrisDB {
		return 13
	}
	return 16
}

// ErpURL returns the XML-RPC base URL for the given database.
func (s *Settings) ErpURL(dbName string) string {
	return fmt.Sprintf("http://%s:%d", s.ErpHost(dbName), s.ErpPort)
}

// AuditDSN returns the connection string for the audit store.
func (s *Settings) AuditDSN() string {
	return s.pgDSN(s.PGAuditDB)
}

// ErpReplicaDSN returns the connection string for a read-only ERP database.
func (s *Settings) ErpReplicaDSN(dbName string) (string, error) {
	if !s.IsAllowedDB(dbName) {
		return "", fmt.Errorf("database %s not in allowed list", dbName)
	}
	return s.pgDSN(dbName), nil
}

func (s *Settings) pgDSN(dbName string) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		s.PGUser, s.PGPassword, s.PGHost, s.PGPort, dbName, s.PGSSLMode)
}

// JWKSURL returns the key-set endpoint, defaulting to the issuer's
// well-known application path when not set explicitly.
func (s *Settings) JWKSURL() string {
	if s.IdpJWKSURI != "" {
		return s.IdpJWKSURI
	}
	return s.IdpIssuer + "/application/o/mm-core/jwks/"
}

// IsDevelopment reports whether this process runs in development mode.
func (s *Settings) IsDevelopment() bool {
	return s.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
