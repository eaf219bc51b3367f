//go:build integration

package integration

import (
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests run against a live server and consumer:
//
//	SURVEYSTACK_URL=http://localhost:8080 POSTGRES_URL=postgres://... go test -tags integration ./tests/integration/
func env(t *testing.T) (string, *sql.DB) {
	t.Helper()
	baseURL, dsn := os.Getenv("SURVEYSTACK_URL"), os.Getenv("POSTGRES_URL")
	if baseURL == "" || dsn == "" {
		t.Skip("SURVEYSTACK_URL and POSTGRES_URL must be set")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.Ping())
	return strings.TrimSuffix(baseURL, "/"), db
}

func get(t *testing.T, url, host string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	req.Host = host
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestConcurrentFirstRequestsCreateOneTenant(t *testing.T) {
	baseURL, db := env(t)
	host := fmt.Sprintf("it-%s-travel.com", uuid.NewString()[:8])

	const requests = 50
	var wg sync.WaitGroup
	codes := make(chan int, requests)
	for i := 0; i < requests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			codes <- get(t, baseURL+"/api/tenant", host)
		}()
	}
	wg.Wait()
	close(codes)

	for code := range codes {
		assert.Equal(t, http.StatusOK, code)
	}

	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM tenants WHERE hostname = $1", host).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestPageViewsReachAnalytics(t *testing.T) {
	baseURL, db := env(t)
	host := fmt.Sprintf("it-%s-coffee.com", uuid.NewString()[:8])

	require.Equal(t, http.StatusOK, get(t, baseURL+"/api/tenant", host))

	// The consumer moves events from the stream into Postgres in batches.
	var count int
	for i := 0; i < 15; i++ {
		require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM analytics WHERE hostname = $1 AND event = 'page_view'", host).Scan(&count))
		if count > 0 {
			break
		}
		time.Sleep(1 * time.Second)
	}
	assert.Equal(t, 1, count)
}

func TestRepeatSubscribeKeepsOneRow(t *testing.T) {
	baseURL, db := env(t)
	host := fmt.Sprintf("it-%s-garden.com", uuid.NewString()[:8])

	subscribe := func() int {
		req, err := http.NewRequest(http.MethodPost, baseURL+"/api/subscribe", strings.NewReader(`{"email":"Reader@Example.com","name":"R"}`))
		require.NoError(t, err)
		req.Host = host
		req.Header.Set("Content-Type", "application/json")
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusCreated, subscribe())
	assert.Equal(t, http.StatusOK, subscribe())

	var subscribers, total int
	require.NoError(t, db.QueryRow(`
		SELECT COUNT(s.id), t.total_subscribers
		FROM tenants t LEFT JOIN subscribers s ON s.tenant_id = t.id
		WHERE t.hostname = $1 GROUP BY t.total_subscribers`, host).Scan(&subscribers, &total))
	assert.Equal(t, 1, subscribers)
	assert.Equal(t, 1, total)
}
