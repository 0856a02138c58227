package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/missioncontrol/internal/adapter/driven/aesgcm"
	"github.com/ericfisherdev/missioncontrol/internal/adapter/driven/jsonfile"
	"github.com/ericfisherdev/missioncontrol/internal/app"
	"github.com/ericfisherdev/missioncontrol/internal/application"
	"github.com/ericfisherdev/missioncontrol/internal/domain/model"
)

func setOutput(t *testing.T, format string) {
	t.Helper()
	prev := outputFormat
	outputFormat = format
	t.Cleanup(func() { outputFormat = prev })
}

func newTestServices(t *testing.T) *app.Services {
	t.Helper()
	store, err := jsonfile.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cipher, err := aesgcm.New(bytes.Repeat([]byte{3}, aesgcm.KeySize))
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return app.NewServices(store, cipher, application.SystemClock{}, logger)
}

func TestKeygen(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		setOutput(t, formatText)
		var buf bytes.Buffer
		require.NoError(t, runKeygen(&buf))

		key, err := hex.DecodeString(strings.TrimSpace(buf.String()))
		require.NoError(t, err)
		assert.Len(t, key, aesgcm.KeySize)
	})

	t.Run("json", func(t *testing.T) {
		setOutput(t, formatJSON)
		var buf bytes.Buffer
		require.NoError(t, runKeygen(&buf))

		var out map[string]string
		require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
		assert.Len(t, out["key"], 2*aesgcm.KeySize)
	})
}

func TestRootCommand_RejectsUnknownOutputFormat(t *testing.T) {
	setOutput(t, formatText)
	rootCmd.SetArgs([]string{"keygen", "--output", "yaml"})
	rootCmd.SetOut(io.Discard)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown output format "yaml"`)
}

func TestSeedApply(t *testing.T) {
	setOutput(t, formatText)
	ctx := context.Background()
	svc := newTestServices(t)

	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
resources:
  - id: gpu-1
    name: A100
    type: gpu
quotas:
  - type: cost
    limit: 100
`), 0o600))

	var buf bytes.Buffer
	require.NoError(t, runSeedApply(ctx, &buf, svc, path))
	assert.Equal(t, "resources created: 1, skipped: 0; quotas applied: 1\n", buf.String())

	buf.Reset()
	require.NoError(t, runSeedApply(ctx, &buf, svc, path))
	assert.Equal(t, "resources created: 0, skipped: 1; quotas applied: 1\n", buf.String())
}

func TestQuotaList(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices(t)

	_, err := svc.Quotas.SetQuota(ctx, model.QuotaSpec{Type: model.QuotaTypeCost, Limit: 100})
	require.NoError(t, err)
	_, err = svc.Quotas.UpdateQuotaUsage(ctx, "global:cost", 90)
	require.NoError(t, err)

	t.Run("text", func(t *testing.T) {
		setOutput(t, formatText)
		var buf bytes.Buffer
		require.NoError(t, runQuotaList(ctx, &buf, svc, ""))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.True(t, strings.HasPrefix(lines[0], "ID"))
		assert.Contains(t, lines[1], "global:cost")
		assert.Contains(t, lines[1], "90.0%")
		assert.Contains(t, lines[1], "warning")
	})

	t.Run("json", func(t *testing.T) {
		setOutput(t, formatJSON)
		var buf bytes.Buffer
		require.NoError(t, runQuotaList(ctx, &buf, svc, ""))

		var quotas []model.Quota
		require.NoError(t, json.Unmarshal(buf.Bytes(), &quotas))
		require.Len(t, quotas, 1)
		assert.InDelta(t, 90.0, quotas[0].CurrentUsage, 1e-9)
	})
}

func TestQuotaReset(t *testing.T) {
	setOutput(t, formatText)
	ctx := context.Background()
	svc := newTestServices(t)

	_, err := svc.Quotas.SetQuota(ctx, model.QuotaSpec{Type: model.QuotaTypeTokens, Limit: 10})
	require.NoError(t, err)
	_, err = svc.Quotas.UpdateQuotaUsage(ctx, "global:tokens", 5)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runQuotaReset(ctx, &buf, svc, "global:tokens"))
	assert.True(t, strings.HasPrefix(buf.String(), "reset global:tokens, period ends "))

	quotas, err := svc.Quotas.GetQuotas(ctx, "")
	require.NoError(t, err)
	require.Len(t, quotas, 1)
	assert.Zero(t, quotas[0].CurrentUsage)

	err = runQuotaReset(ctx, &buf, svc, "missing:tokens")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestQuotaResetDue(t *testing.T) {
	setOutput(t, formatText)
	ctx := context.Background()
	svc := newTestServices(t)

	_, err := svc.Quotas.SetQuota(ctx, model.QuotaSpec{Type: model.QuotaTypeAPICalls, Limit: 10, Period: model.QuotaPeriodDaily})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runQuotaResetDue(ctx, &buf, svc, time.Now().UTC()))
	assert.Equal(t, "no quotas due for reset\n", buf.String())

	buf.Reset()
	require.NoError(t, runQuotaResetDue(ctx, &buf, svc, time.Now().UTC().Add(48*time.Hour)))
	assert.Equal(t, "reset global:api_calls\n", buf.String())
}

func TestBookingList(t *testing.T) {
	ctx := context.Background()
	svc := newTestServices(t)

	_, err := svc.Catalog.Create(ctx, model.NewResource{ID: "gpu-1", Name: "A100", Type: "gpu", CostPerHour: 2})
	require.NoError(t, err)
	start := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	_, err = svc.Scheduler.Book(ctx, model.NewBooking{
		ID:         "book-1",
		ResourceID: "gpu-1",
		BookedBy:   "alice",
		StartTime:  start,
		EndTime:    start.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	setOutput(t, formatText)
	var buf bytes.Buffer
	require.NoError(t, runBookingList(ctx, &buf, svc, model.BookingFilter{ResourceID: "gpu-1"}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "book-1")
	assert.Contains(t, lines[1], "confirmed")
	assert.Contains(t, lines[1], "4.00")
}

func TestBookingFilter_InvalidTime(t *testing.T) {
	bookingFrom = "yesterday"
	t.Cleanup(func() { bookingFrom = "" })

	_, err := bookingFilter()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --from")
}

func TestMetrics(t *testing.T) {
	setOutput(t, formatText)
	ctx := context.Background()
	svc := newTestServices(t)

	_, err := svc.Catalog.Create(ctx, model.NewResource{ID: "gpu-1", Name: "A100", Type: "gpu"})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, runMetrics(ctx, &buf, svc))
	assert.Contains(t, buf.String(), "resources:   1 total, 1 available")
	assert.Contains(t, buf.String(), "quotas:      0 total, 0 warning, 0 exceeded")
}
