package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"github.com/kasuganosora/enemyai/model"
	"github.com/kasuganosora/enemyai/testutil"
)

func TestAutoMigrate_InsertAndQuery(t *testing.T) {
	db := testutil.SetupTestDB(t)

	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	row := &model.AIEventLog{
		EntityID:   3,
		Archetype:  "thwomp",
		Type:       "trap_triggered",
		X:          100,
		Y:          -20,
		Payload:    datatypes.JSON(`{"entity_id":3}`),
		OccurredAt: at,
	}
	require.NoError(t, db.Create(row).Error)
	assert.Greater(t, row.ID, int64(0))

	var found model.AIEventLog
	require.NoError(t, db.Where("type = ?", "trap_triggered").First(&found).Error)
	assert.Equal(t, uint64(3), found.EntityID)
	assert.Equal(t, "thwomp", found.Archetype)
	assert.True(t, at.Equal(found.OccurredAt))
	assert.JSONEq(t, `{"entity_id":3}`, string(found.Payload))
	assert.False(t, found.CreatedAt.IsZero())
}
