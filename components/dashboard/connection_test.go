package dashboard

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestConnectionJSONEnvelope(t *testing.T) {
	conn, err := NewConnection(SourceREST, RESTSettings{URL: "https://api.example.com/rows", APIKey: "k"})
	require.NoError(t, err)

	raw, err := json.Marshal(conn)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"REST_API","settings":{"url":"https://api.example.com/rows","api_key":"k"}}`, string(raw))

	var decoded ConnectionConfig
	require.NoError(t, json.Unmarshal(raw, &decoded))
	require.NotNil(t, decoded.REST)
	assert.Equal(t, "https://api.example.com/rows", decoded.REST.URL)
	assert.Nil(t, decoded.Postgres)
}

func TestConnectionYAMLEnvelope(t *testing.T) {
	doc := `
type: CSV
settings:
  path: ./data/sales.csv
`
	var conn ConnectionConfig
	require.NoError(t, yaml.Unmarshal([]byte(doc), &conn))
	assert.Equal(t, SourceCSV, conn.Type)
	require.NotNil(t, conn.File)
	assert.Equal(t, "./data/sales.csv", conn.File.Path)
	assert.NoError(t, conn.Validate())

	out, err := yaml.Marshal(conn)
	require.NoError(t, err)
	assert.Contains(t, string(out), "path: ./data/sales.csv")
}

func TestConnectionValidate(t *testing.T) {
	_, err := NewConnection(SourceMongo, MongoSettings{URI: "mongodb://localhost"})
	assert.ErrorIs(t, err, ErrInvalidConnection)

	_, err = NewConnection(SourcePostgres, 42)
	assert.ErrorIs(t, err, ErrInvalidConnection)

	assert.ErrorIs(t, ConnectionConfig{Type: "FTP"}.Validate(), ErrInvalidConnection)
	assert.ErrorIs(t, ConnectionConfig{Type: SourceMySQL}.Validate(), ErrInvalidConnection)

	var conn ConnectionConfig
	err = json.Unmarshal([]byte(`{"type":"FTP","settings":{}}`), &conn)
	assert.ErrorIs(t, err, ErrInvalidConnection)
}

func TestConnectionWithoutSettings(t *testing.T) {
	raw, err := json.Marshal(ConnectionConfig{Type: SourceSQLite})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"SQLITE"}`, string(raw))
}
