// Package config handles XDG configuration directory, file paths and settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	// AppName is the application directory name.
	AppName = "taskmaster"

	// ConfigFile is the settings filename inside the config directory.
	ConfigFile = "config.yaml"

	// EnvFile is the dotenv filename looked up in the config and working directories.
	EnvFile = ".env"

	// SessionFile is the stored Supabase session filename.
	SessionFile = "session.json"

	// OAuthClientFile is the OAuth client credentials filename (Google Tasks backend).
	OAuthClientFile = "oauth_client.json"

	// TokenFile is the stored OAuth token filename (Google Tasks backend).
	TokenFile = "token.json"

	// EnvPrefix prefixes environment overrides, e.g. TASKMASTER_SUPABASE_URL.
	EnvPrefix = "TASKMASTER"
)

// Backend names accepted by the backend setting.
const (
	BackendSupabase    = "supabase"
	BackendPostgres    = "postgres"
	BackendMongo       = "mongo"
	BackendNeo4j       = "neo4j"
	BackendCassandra   = "cassandra"
	BackendSQLite      = "sqlite"
	BackendGoogleTasks = "googletasks"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string `mapstructure:"-"`

	// Debug enables debug logging.
	Debug bool `mapstructure:"-"`

	// Quiet suppresses informational output.
	Quiet bool `mapstructure:"-"`

	Backend   string          `mapstructure:"backend"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Mongo     MongoConfig     `mapstructure:"mongo"`
	Neo4j     Neo4jConfig     `mapstructure:"neo4j"`
	Cassandra CassandraConfig `mapstructure:"cassandra"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	User      UserConfig      `mapstructure:"user"`
	Web       WebConfig       `mapstructure:"web"`
	Log       LogConfig       `mapstructure:"log"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
}

// SupabaseConfig locates the hosted project.
type SupabaseConfig struct {
	URL     string `mapstructure:"url"`
	AnonKey string `mapstructure:"anon_key"`
}

// PostgresConfig holds the connection string for the postgres backend.
type PostgresConfig struct {
	DSN string `mapstructure:"dsn"`
}

// MongoConfig holds the connection settings for the mongo backend.
type MongoConfig struct {
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// Neo4jConfig holds the connection settings for the neo4j backend.
// An empty username connects without authentication.
type Neo4jConfig struct {
	URI      string `mapstructure:"uri"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	Database string `mapstructure:"database"`
}

// CassandraConfig holds the contact points and keyspace for the cassandra backend.
type CassandraConfig struct {
	Hosts    []string `mapstructure:"hosts"`
	Keyspace string   `mapstructure:"keyspace"`
}

// SQLiteConfig locates the database file of the sqlite backend.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// UserConfig is the identity used by backends that have no sign-in of their own.
type UserConfig struct {
	ID    string `mapstructure:"id"`
	Email string `mapstructure:"email"`
}

// WebConfig configures the serve command.
type WebConfig struct {
	Addr string `mapstructure:"addr"`
}

// LogConfig configures the log file.
type LogConfig struct {
	File string `mapstructure:"file"`
}

// BreakerConfig configures the circuit breaker around the task store.
type BreakerConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	MaxFailures uint32        `mapstructure:"max_failures"`
	Timeout     time.Duration `mapstructure:"timeout"`
}

// New creates a new Config with the default or specified config directory.
// If configDir is empty, uses XDG_CONFIG_HOME/taskmaster or $HOME/.config/taskmaster.
// Settings hold their defaults until Load is called.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	c.Backend = BackendSupabase
	c.Mongo.Database = AppName
	c.Mongo.Collection = "tasks"
	c.Cassandra.Keyspace = AppName
	c.Web.Addr = "127.0.0.1:8080"
	c.Breaker = BreakerConfig{Enabled: true, MaxFailures: 3, Timeout: 5 * time.Second}
}

// Load reads .env files and config.yaml, then applies TASKMASTER_* overrides.
// A missing config.yaml is not an error.
func (c *Config) Load() error {
	// godotenv.Load never overrides variables already set in the environment.
	for _, path := range []string{filepath.Join(c.Dir, EnvFile), EnvFile} {
		if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("backend", c.Backend)
	v.SetDefault("supabase.url", c.Supabase.URL)
	v.SetDefault("supabase.anon_key", c.Supabase.AnonKey)
	v.SetDefault("postgres.dsn", c.Postgres.DSN)
	v.SetDefault("mongo.uri", c.Mongo.URI)
	v.SetDefault("mongo.database", c.Mongo.Database)
	v.SetDefault("mongo.collection", c.Mongo.Collection)
	v.SetDefault("neo4j.uri", c.Neo4j.URI)
	v.SetDefault("neo4j.username", c.Neo4j.Username)
	v.SetDefault("neo4j.password", c.Neo4j.Password)
	v.SetDefault("neo4j.database", c.Neo4j.Database)
	v.SetDefault("cassandra.hosts", c.Cassandra.Hosts)
	v.SetDefault("cassandra.keyspace", c.Cassandra.Keyspace)
	v.SetDefault("sqlite.path", c.SQLite.Path)
	v.SetDefault("user.id", c.User.ID)
	v.SetDefault("user.email", c.User.Email)
	v.SetDefault("web.addr", c.Web.Addr)
	v.SetDefault("log.file", c.Log.File)
	v.SetDefault("breaker.enabled", c.Breaker.Enabled)
	v.SetDefault("breaker.max_failures", c.Breaker.MaxFailures)
	v.SetDefault("breaker.timeout", c.Breaker.Timeout)

	if c.HasConfigFile() {
		v.SetConfigFile(c.ConfigPath())
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("invalid %s: %w", ConfigFile, err)
		}
	}

	if err := v.Unmarshal(c); err != nil {
		return fmt.Errorf("invalid %s: %w", ConfigFile, err)
	}

	c.Backend = strings.ToLower(strings.TrimSpace(c.Backend))
	switch c.Backend {
	case BackendSupabase, BackendPostgres, BackendMongo, BackendNeo4j, BackendCassandra, BackendSQLite, BackendGoogleTasks:
	default:
		return fmt.Errorf("unknown backend: %s", c.Backend)
	}
	return nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home can't be determined
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// ConfigPath returns the path to config.yaml.
func (c *Config) ConfigPath() string {
	return filepath.Join(c.Dir, ConfigFile)
}

// SessionPath returns the path to the stored Supabase session.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// OAuthClientPath returns the path to the OAuth client credentials file.
func (c *Config) OAuthClientPath() string {
	return filepath.Join(c.Dir, OAuthClientFile)
}

// TokenPath returns the path to the stored OAuth token file.
func (c *Config) TokenPath() string {
	return filepath.Join(c.Dir, TokenFile)
}

// SQLitePath returns the sqlite database path, defaulting to tasks.db in the config dir.
func (c *Config) SQLitePath() string {
	if c.SQLite.Path != "" {
		return c.SQLite.Path
	}
	return filepath.Join(c.Dir, "tasks.db")
}

// LogPath returns the log file path, defaulting to logs/taskmaster.log in the config dir.
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.Dir, "logs", AppName+".log")
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// HasConfigFile checks if config.yaml exists.
func (c *Config) HasConfigFile() bool {
	return fileExists(c.ConfigPath())
}

// HasSession checks if a Supabase session file exists.
func (c *Config) HasSession() bool {
	return fileExists(c.SessionPath())
}

// HasOAuthClient checks if the OAuth client credentials file exists.
func (c *Config) HasOAuthClient() bool {
	return fileExists(c.OAuthClientPath())
}

// HasToken checks if the token file exists.
func (c *Config) HasToken() bool {
	return fileExists(c.TokenPath())
}

// HasCredentials reports whether the selected backend has what it needs to sign in.
// Backends without their own sign-in only need a configured user id.
func (c *Config) HasCredentials() bool {
	switch c.Backend {
	case BackendSupabase:
		return c.HasSession()
	case BackendGoogleTasks:
		return c.HasToken()
	default:
		return c.User.ID != ""
	}
}

// RemoveSession deletes the session file.
func (c *Config) RemoveSession() error {
	return os.Remove(c.SessionPath())
}

// RemoveToken deletes the token file.
func (c *Config) RemoveToken() error {
	return os.Remove(c.TokenPath())
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
