package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// BlockPolicy decides what happens to a multi-location run when one
// location hits an unresolved defensive challenge.
type BlockPolicy string

const (
	// BlockContinue moves on to the next location — a block is usually
	// session/location scoped, not systemic.
	BlockContinue BlockPolicy = "continue"
	// BlockAbort ends the whole run after the first blocked location.
	BlockAbort BlockPolicy = "abort"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	Locations        []string
	Transaction      string
	PagesPerLocation int
	MaxRecords       int
	MinDelayMs       int
	MaxDelayMs       int
	LocationDelayMs  int
	NavTimeoutSec    int
	MaxRetries       int
	BlockPolicy      BlockPolicy

	CSVOutputPath string
	ChromeBin     string
	Verbose       bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "scraper"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "scraper123"),
		PostgresDB:       getEnv("POSTGRES_DB", "listings_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		Locations:        splitList(getEnv("LOCATIONS", "lisboa")),
		Transaction:      getEnv("TRANSACTION", "sale"),
		PagesPerLocation: getEnvInt("PAGES_PER_LOCATION", 3),
		MaxRecords:       getEnvInt("MAX_RECORDS", 0),
		MinDelayMs:       getEnvInt("MIN_DELAY_MS", 3000),
		MaxDelayMs:       getEnvInt("MAX_DELAY_MS", 8000),
		LocationDelayMs:  getEnvInt("LOCATION_DELAY_MS", 15000),
		NavTimeoutSec:    getEnvInt("NAV_TIMEOUT_SEC", 90),
		MaxRetries:       getEnvInt("MAX_RETRIES", 2),
		BlockPolicy:      BlockPolicy(getEnv("BLOCK_POLICY", string(BlockContinue))),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/listings.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		Verbose:       getEnv("DEBUG", "") != "",
	}
}

// Validate rejects bounds that would make the crawl misbehave. It runs
// before any browser or database resource is acquired.
func (c *Config) Validate() error {
	if len(c.Locations) == 0 {
		return fmt.Errorf("config: LOCATIONS is empty")
	}
	if c.PagesPerLocation < 1 {
		return fmt.Errorf("config: PAGES_PER_LOCATION must be >= 1, got %d", c.PagesPerLocation)
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("config: MAX_RECORDS must be >= 0, got %d", c.MaxRecords)
	}
	if c.MinDelayMs < 0 || c.MaxDelayMs < c.MinDelayMs {
		return fmt.Errorf("config: delay bounds [%d, %d] are invalid", c.MinDelayMs, c.MaxDelayMs)
	}
	if c.Transaction != "sale" && c.Transaction != "rent" {
		return fmt.Errorf("config: TRANSACTION must be \"sale\" or \"rent\", got %q", c.Transaction)
	}
	if c.BlockPolicy != BlockContinue && c.BlockPolicy != BlockAbort {
		return fmt.Errorf("config: BLOCK_POLICY must be %q or %q, got %q",
			BlockContinue, BlockAbort, c.BlockPolicy)
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}
