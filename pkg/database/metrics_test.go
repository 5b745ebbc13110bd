package database

import (
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStater struct{ calls int }

func (f *fakeStater) Stat() *pgxpool.Stat {
	f.calls++
	return &pgxpool.Stat{}
}

func TestPoolStatsCollector_Describe(t *testing.T) {
	c := NewPoolStatsCollector(&fakeStater{}, "channelhub")

	ch := make(chan *prometheus.Desc, 16)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	require.Len(t, names, 8)
	assert.Contains(t, strings.Join(names, "\n"), `"db_pool_acquired_connections"`)
	assert.Contains(t, strings.Join(names, "\n"), `"db_pool_empty_acquire_count_total"`)
}

func TestPoolStatsCollector_CollectReadsPoolOncePerScrape(t *testing.T) {
	pool := &fakeStater{}
	c := NewPoolStatsCollector(pool, "channelhub")

	assert.Equal(t, 8, testutil.CollectAndCount(c))
	assert.Equal(t, 1, pool.calls)
}
