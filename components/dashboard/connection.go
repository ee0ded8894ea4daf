package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

var ErrInvalidConnection = errors.New("dashboard: invalid connection settings")

// ConnectionConfig is a tagged union of per-source-type settings. Exactly the
// variant named by Type is populated.
type ConnectionConfig struct {
	Type     DataSourceType
	Postgres *PostgresSettings
	MySQL    *MySQLSettings
	SQLite   *SQLiteSettings
	File     *FileSettings
	REST     *RESTSettings
	Mongo    *MongoSettings
	Sample   *SampleSettings
}

// PostgresSettings connects through pgx. Query selects the rows of the source.
type PostgresSettings struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Query string `json:"query" yaml:"query"`
}

// MySQLSettings connects through go-sql-driver/mysql.
type MySQLSettings struct {
	DSN   string `json:"dsn" yaml:"dsn"`
	Query string `json:"query" yaml:"query"`
}

// SQLiteSettings opens a local SQLite file.
type SQLiteSettings struct {
	Path  string `json:"path" yaml:"path"`
	Query string `json:"query" yaml:"query"`
}

// FileSettings points at a CSV or JSON file.
type FileSettings struct {
	Path string `json:"path" yaml:"path"`
}

// RESTSettings fetches a JSON array of objects over HTTP.
type RESTSettings struct {
	URL     string            `json:"url" yaml:"url"`
	APIKey  string            `json:"api_key,omitempty" yaml:"api_key,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`
}

// MongoSettings reads documents from a collection.
type MongoSettings struct {
	URI        string `json:"uri" yaml:"uri"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
	Limit      int64  `json:"limit,omitempty" yaml:"limit,omitempty"`
}

// SampleSettings selects one of the built-in demo datasets.
type SampleSettings struct {
	Dataset string `json:"dataset" yaml:"dataset"`
}

// NewConnection wraps settings into a ConnectionConfig, deriving the tag from
// the settings type. FileSettings needs the explicit CSV/JSON tag.
func NewConnection(kind DataSourceType, settings any) (ConnectionConfig, error) {
	cfg := ConnectionConfig{Type: kind}
	switch s := settings.(type) {
	case PostgresSettings:
		cfg.Postgres = &s
	case MySQLSettings:
		cfg.MySQL = &s
	case SQLiteSettings:
		cfg.SQLite = &s
	case FileSettings:
		cfg.File = &s
	case RESTSettings:
		cfg.REST = &s
	case MongoSettings:
		cfg.Mongo = &s
	case SampleSettings:
		cfg.Sample = &s
	default:
		return ConnectionConfig{}, fmt.Errorf("%w: unsupported settings %T", ErrInvalidConnection, settings)
	}
	return cfg, cfg.Validate()
}

// Settings returns the populated variant.
func (c ConnectionConfig) Settings() any {
	switch c.Type {
	case SourcePostgres:
		return c.Postgres
	case SourceMySQL:
		return c.MySQL
	case SourceSQLite:
		return c.SQLite
	case SourceCSV, SourceJSON:
		return c.File
	case SourceREST:
		return c.REST
	case SourceMongo:
		return c.Mongo
	case SourceSample:
		return c.Sample
	}
	return nil
}

// Validate ensures the variant matches the tag and its required fields are set.
func (c ConnectionConfig) Validate() error {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s requires %s", ErrInvalidConnection, c.Type, field)
	}
	switch c.Type {
	case SourcePostgres:
		if c.Postgres == nil || c.Postgres.DSN == "" {
			return missing("dsn")
		}
	case SourceMySQL:
		if c.MySQL == nil || c.MySQL.DSN == "" {
			return missing("dsn")
		}
	case SourceSQLite:
		if c.SQLite == nil || c.SQLite.Path == "" {
			return missing("path")
		}
	case SourceCSV, SourceJSON:
		if c.File == nil || c.File.Path == "" {
			return missing("path")
		}
	case SourceREST:
		if c.REST == nil || c.REST.URL == "" {
			return missing("url")
		}
	case SourceMongo:
		if c.Mongo == nil || c.Mongo.URI == "" || c.Mongo.Collection == "" {
			return missing("uri and collection")
		}
	case SourceSample:
		if c.Sample == nil {
			return missing("dataset")
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidConnection, c.Type)
	}
	return nil
}

type connectionEnvelope struct {
	Type     DataSourceType  `json:"type"`
	Settings json.RawMessage `json:"settings,omitempty"`
}

// MarshalJSON encodes {"type": ..., "settings": {...}}.
func (c ConnectionConfig) MarshalJSON() ([]byte, error) {
	env := connectionEnvelope{Type: c.Type}
	if settings := c.Settings(); settings != nil && !isNilPointer(settings) {
		raw, err := json.Marshal(settings)
		if err != nil {
			return nil, err
		}
		env.Settings = raw
	}
	return json.Marshal(env)
}

// UnmarshalJSON decodes the settings into the variant named by type.
func (c *ConnectionConfig) UnmarshalJSON(data []byte) error {
	var env connectionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*c = ConnectionConfig{Type: env.Type}
	if len(env.Settings) == 0 {
		return nil
	}
	return c.decodeSettings(func(target any) error {
		return json.Unmarshal(env.Settings, target)
	})
}

// MarshalYAML mirrors the JSON envelope.
func (c ConnectionConfig) MarshalYAML() (any, error) {
	out := map[string]any{"type": string(c.Type)}
	if settings := c.Settings(); settings != nil && !isNilPointer(settings) {
		out["settings"] = settings
	}
	return out, nil
}

// UnmarshalYAML decodes the settings node into the variant named by type.
func (c *ConnectionConfig) UnmarshalYAML(node *yaml.Node) error {
	var env struct {
		Type     DataSourceType `yaml:"type"`
		Settings yaml.Node      `yaml:"settings"`
	}
	if err := node.Decode(&env); err != nil {
		return err
	}
	*c = ConnectionConfig{Type: env.Type}
	if env.Settings.Kind == 0 {
		return nil
	}
	return c.decodeSettings(env.Settings.Decode)
}

func (c *ConnectionConfig) decodeSettings(decode func(any) error) error {
	switch c.Type {
	case SourcePostgres:
		c.Postgres = &PostgresSettings{}
		return decode(c.Postgres)
	case SourceMySQL:
		c.MySQL = &MySQLSettings{}
		return decode(c.MySQL)
	case SourceSQLite:
		c.SQLite = &SQLiteSettings{}
		return decode(c.SQLite)
	case SourceCSV, SourceJSON:
		c.File = &FileSettings{}
		return decode(c.File)
	case SourceREST:
		c.REST = &RESTSettings{}
		return decode(c.REST)
	case SourceMongo:
		c.Mongo = &MongoSettings{}
		return decode(c.Mongo)
	case SourceSample:
		c.Sample = &SampleSettings{}
		return decode(c.Sample)
	}
	return fmt.Errorf("%w: unknown type %q", ErrInvalidConnection, c.Type)
}

func isNilPointer(v any) bool {
	switch p := v.(type) {
	case *PostgresSettings:
		return p == nil
	case *MySQLSettings:
		return p == nil
	case *SQLiteSettings:
		return p == nil
	case *FileSettings:
		return p == nil
	case *RESTSettings:
		return p == nil
	case *MongoSettings:
		return p == nil
	case *SampleSettings:
		return p == nil
	}
	return v == nil
}
