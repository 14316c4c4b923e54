package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scoreparse/internal/config"
	"scoreparse/internal/domain"
	"scoreparse/internal/mapping"
	"scoreparse/internal/repository/sqlstore"
	"scoreparse/internal/testutil"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

const planYAML = `
excel:
  sheet: Scores
  header_row: 0
common:
  entity_name:
    column: Name
  items:
    mode: marker
    default_deduction: 2
`

func TestLoadPlan_YAMLAndJSON(t *testing.T) {
	dir := t.TempDir()

	plan, err := loadPlan(writeFile(t, dir, "plan.yaml", []byte(planYAML)))
	require.NoError(t, err)
	assert.Equal(t, "Scores", plan.Tabular().Sheet)
	assert.Equal(t, 2.0, plan.Common().Items.DefaultDeduction)

	plan, err = loadPlan(writeFile(t, dir, "plan.json", []byte(`{"common": {"items": {"mode": "explicit"}}}`)))
	require.NoError(t, err)
	assert.Equal(t, mapping.ModeExplicit, plan.Common().Items.Mode)

	_, err = loadPlan(writeFile(t, dir, "bad.yaml", []byte("excel: [unclosed")))
	assert.ErrorIs(t, err, domain.ErrMalformedMapping)
}

func TestRun_Execute(t *testing.T) {
	dir := t.TempDir()
	book := writeFile(t, dir, "scores.xlsx", testutil.Workbook(t, testutil.Sheet{Name: "Scores", Rows: [][]interface{}{
		{"Name", "Q1", "Q2"},
		{"Alice", "x", "x"},
		{"Bob", nil, nil},
	}}))
	plan := writeFile(t, dir, "plan.yaml", []byte(planYAML))

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"execute", "-mapping", plan, book}, &out))

	var records []domain.NormalizedRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "Alice", records[0].EntityName)
	assert.Equal(t, 96.0, records[0].Total)
	assert.Equal(t, 100.0, records[1].Total)

	out.Reset()
	require.NoError(t, run(context.Background(), []string{"execute", "-mapping", plan, "-format", "csv", book}, &out))
	rows, err := csv.NewReader(&out).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Alice", "96", "2", "4", "Q1 (2); Q2 (2)"}, rows[1])
}

func TestRun_Records(t *testing.T) {
	dir := t.TempDir()
	db, err := sqlstore.NewDB(&config.DBConfig{Driver: sqlstore.DriverSQLite, SQLitePath: filepath.Join(dir, "sessions.db")})
	require.NoError(t, err)
	require.NoError(t, sqlstore.Migrate(db))

	records, err := json.Marshal([]domain.NormalizedRecord{
		domain.NewRecord("Alice", nil, nil),
		domain.NewRecord("Bob", []domain.Item{domain.NewItem("Q1", 5, "Q1")}, nil),
	})
	require.NoError(t, err)
	now := time.Now().UTC()
	require.NoError(t, sqlstore.NewParseSessionRepo(db).Create(context.Background(), &domain.ParseSession{
		ID:          "sess-local",
		OwnerID:     "local",
		FileKey:     "parse/local/sess-local/scores.xlsx",
		FileName:    "scores.xlsx",
		FileType:    domain.FileTypeXLSX,
		Status:      domain.SessionStatusConfirmed,
		Mapping:     domain.JSONBlob(`{}`),
		Records:     records,
		CreatedAt:   now,
		ExpiresAt:   now.Add(10 * time.Minute),
		ConfirmedAt: &now,
	}))
	require.NoError(t, db.Close())

	var out bytes.Buffer
	require.NoError(t, run(context.Background(), []string{"records", "-data", dir, "-q", "BO", "sess-local"}, &out))
	var got []domain.NormalizedRecord
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "Bob", got[0].EntityName)
	assert.Equal(t, 95.0, got[0].Total)

	err = run(context.Background(), []string{"records", "-data", dir, "-entity", "Carol", "sess-local"}, &out)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRun_Errors(t *testing.T) {
	var out bytes.Buffer

	assert.Error(t, run(context.Background(), nil, &out))
	assert.Error(t, run(context.Background(), []string{"frobnicate"}, &out))
	assert.Error(t, run(context.Background(), []string{"execute", "missing.xlsx"}, &out))
	assert.NoError(t, run(context.Background(), []string{"help"}, &out))
	assert.Contains(t, out.String(), "Commands:")
}
