package mysql

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDSN(t *testing.T) {
	dsn, err := NormalizeDSN("user:pass@tcp(127.0.0.1:3306)/enemyai")
	require.NoError(t, err)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "/enemyai")
}

func TestNormalizeDSN_Invalid(t *testing.T) {
	_, err := NormalizeDSN("user:pass@tcp(127.0.0.1:3306)")
	assert.Error(t, err)
}

func TestPoolDefaults(t *testing.T) {
	p := Pool{}.withDefaults()
	assert.Equal(t, Pool{MaxOpen: 50, MaxIdle: 10, MaxLife: time.Hour}, p)

	p = Pool{MaxOpen: 4, MaxIdle: 8}.withDefaults()
	assert.Equal(t, 4, p.MaxIdle)
}
