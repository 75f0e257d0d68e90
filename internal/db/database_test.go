package database

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"signage-cms/internal/models"
	"signage-cms/internal/scheduler"
)

// Helper to create a disposable in-memory DB
func setupTestDB(t *testing.T) *Client {
	t.Helper()
	d, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	// Every new connection to ":memory:" is a fresh database.
	sqlDB, err := d.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	c := Wrap(d, zap.NewNop())
	require.NoError(t, c.AutoMigrate())
	return c
}

func TestSeedTimeTags_Defaults(t *testing.T) {
	c := setupTestDB(t)

	require.NoError(t, c.SeedTimeTags(""))
	// Second run must not duplicate.
	require.NoError(t, c.SeedTimeTags(""))

	var defs []models.TimeTagDef
	require.NoError(t, c.DB.Order("name asc").Find(&defs).Error)
	require.Len(t, defs, 4)
	assert.Equal(t, "Late Night", defs[0].Name)

	var weekend models.TimeTagDef
	require.NoError(t, c.DB.Where("name = ?", "Weekend").First(&weekend).Error)
	assert.Equal(t, []scheduler.Condition{{Type: scheduler.Exclude, Days: []int{0, 6}}}, weekend.Conditions)
}

func TestSeedTimeTags_FromYAML(t *testing.T) {
	c := setupTestDB(t)

	path := filepath.Join(t.TempDir(), "timetags.yaml")
	content := `
convention: monday-first
timetags:
  - name: Weekend
    color: "#e53e3e"
    conditions:
      - type: exclude
        days: [5, 6]
  - name: Breakfast
    conditions:
      - type: include
        time: {start: "07:00", end: "09:30"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, c.SeedTimeTags(path))

	var weekend models.TimeTagDef
	require.NoError(t, c.DB.Where("name = ?", "Weekend").First(&weekend).Error)
	// Stored SundayFirst.
	assert.Equal(t, []int{6, 0}, weekend.Conditions[0].Days)

	var breakfast models.TimeTagDef
	require.NoError(t, c.DB.Where("name = ?", "Breakfast").First(&breakfast).Error)
	require.NotNil(t, breakfast.Conditions[0].Time)
	assert.Equal(t, scheduler.ClockTime("09:30"), breakfast.Conditions[0].Time.End)
}

func TestLoadTimeTagLibrary_Errors(t *testing.T) {
	_, err := LoadTimeTagLibrary("non_existent_file.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("this: is: invalid: yaml: ["), 0o644))
	_, err = LoadTimeTagLibrary(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("timetags:\n  - name: X\n    conditions:\n      - type: include\n        days: [9]\n"), 0o644))
	_, err = LoadTimeTagLibrary(invalid)
	assert.ErrorIs(t, err, scheduler.ErrDayOutOfRange)
}
