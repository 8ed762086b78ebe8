package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mmynk/planner/internal/models"
	"github.com/mmynk/planner/internal/service"
)

// writeConfig writes a config using a temporary SQLite database.
func writeConfig(t *testing.T, backend string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "planner.yaml")
	cfg := "storage:\n" +
		"  backend: " + backend + "\n" +
		"  path: " + filepath.Join(dir, "planner.db") + "\n" +
		"locale: en\n" +
		"timezone: UTC\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, cfgPath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(append([]string{"--config", cfgPath, "--log-level", "error"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, args...)
	require.NoError(t, err, "planner %s", strings.Join(args, " "))
	return out
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "planner", cmd.Use)

	for _, name := range []string{"serve", "convert", "format", "rates", "habits", "budget", "clear"} {
		t.Run(name, func(t *testing.T) {
			sub, _, err := cmd.Find([]string{name})
			require.NoError(t, err)
			assert.Equal(t, name, sub.Name())
		})
	}

	output := cmd.PersistentFlags().Lookup("output")
	require.NotNil(t, output)
	assert.Equal(t, "o", output.Shorthand)
	assert.Equal(t, "text", output.DefValue)
}

func TestInvalidOutput(t *testing.T) {
	_, err := run(t, writeConfig(t, "memory"), "--output", "yaml", "format", "1", "EUR")
	assert.ErrorContains(t, err, "invalid output")
}

func TestConvert(t *testing.T) {
	cfg := writeConfig(t, "memory")

	out := mustRun(t, cfg, "convert", "10", "eur", "HUF", "-o", "json")
	var res ConversionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "EUR", res.From)
	assert.InDelta(t, 3850, res.Result, 1e-9)
	assert.Equal(t, "3,850 Ft", res.Formatted)

	out = mustRun(t, cfg, "convert", "10", "EUR", "HUF")
	assert.Equal(t, "10.00 € = 3,850 Ft\n", out)

	_, err := run(t, cfg, "convert", "ten", "EUR", "HUF")
	assert.ErrorContains(t, err, "invalid amount")
}

func TestFormat(t *testing.T) {
	out := mustRun(t, writeConfig(t, "memory"), "format", "1234.5", "usd")
	assert.Equal(t, "$1,234.50\n", out)
}

func TestRatesPersistAcrossRuns(t *testing.T) {
	cfg := writeConfig(t, "sqlite")

	mustRun(t, cfg, "rates", "set", "EUR", "400")
	out := mustRun(t, cfg, "convert", "1", "EUR", "HUF", "-o", "json")
	var res ConversionResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 400, res.Result, 1e-9)

	_, err := run(t, cfg, "rates", "set", "EUR", "-5")
	assert.Error(t, err)

	ratesFile := filepath.Join(t.TempDir(), "rates.json")
	require.NoError(t, os.WriteFile(ratesFile, []byte(`{"rates":{"USD":360,"XX":1}}`), 0644))
	out = mustRun(t, cfg, "rates", "apply", ratesFile)
	assert.Equal(t, "1 rate(s) applied\n", out)

	out = mustRun(t, cfg, "rates")
	assert.Contains(t, out, "RATE (HUF)")
	assert.Contains(t, out, "USD")
	assert.Contains(t, out, "360")

	mustRun(t, cfg, "rates", "base", "EUR")
	out = mustRun(t, cfg, "convert", "1", "EUR", "HUF", "-o", "json")
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.InDelta(t, 400, res.Result, 1e-9)
}

func TestHabitsCommands(t *testing.T) {
	cfg := writeConfig(t, "sqlite")

	out := mustRun(t, cfg, "habits", "add", "Read", "-o", "json")
	var h models.Habit
	require.NoError(t, json.Unmarshal([]byte(out), &h))
	require.NotEmpty(t, h.ID)

	mustRun(t, cfg, "habits", "checkin", h.ID)
	mustRun(t, cfg, "habits", "mastery", h.ID, "90")

	out = mustRun(t, cfg, "habits", "-o", "json")
	var o struct {
		Computed []struct {
			ID      string `json:"id"`
			Streak  int    `json:"streak"`
			Mastery int    `json:"mastery"`
		} `json:"computed"`
		MasteredCount int `json:"masteredCount"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &o))
	require.Len(t, o.Computed, 1)
	assert.Equal(t, 1, o.Computed[0].Streak)
	assert.Equal(t, 90, o.Computed[0].Mastery)
	assert.Equal(t, 1, o.MasteredCount)

	out = mustRun(t, cfg, "habits")
	assert.Contains(t, out, "Read")
	assert.Contains(t, out, "1 mastered")

	_, err := run(t, cfg, "habits", "checkin", "ghost")
	assert.ErrorContains(t, err, "not found")

	mustRun(t, cfg, "habits", "remove", h.ID)
	_, err = run(t, cfg, "habits", "remove", h.ID)
	assert.Error(t, err)
}

func TestBudgetCommands(t *testing.T) {
	cfg := writeConfig(t, "sqlite")

	mustRun(t, cfg, "budget", "set", "--monthly", "250000", "--threshold", "75")
	out := mustRun(t, cfg, "budget", "-o", "json")

	var b BudgetOutput
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, 250000.0, b.Settings.MonthlyBudget)
	assert.Equal(t, 75.0, b.Settings.WarningThreshold)
	assert.Equal(t, "HUF", b.Settings.Currency)
	assert.True(t, b.Settings.Notifications)
	assert.Equal(t, 0.0, b.Report.Spent)
	assert.Empty(t, b.Upcoming)

	out = mustRun(t, cfg, "budget")
	assert.Contains(t, out, "spent 0 Ft of 250,000 Ft")
}

func TestClear(t *testing.T) {
	cfg := writeConfig(t, "sqlite")
	mustRun(t, cfg, "budget", "set", "--monthly", "1000")

	_, err := run(t, cfg, "clear")
	assert.ErrorContains(t, err, "--yes")

	out := mustRun(t, cfg, "clear", "--yes")
	assert.Equal(t, "Store cleared\n", out)

	out = mustRun(t, cfg, "budget", "-o", "json")
	var b BudgetOutput
	require.NoError(t, json.Unmarshal([]byte(out), &b))
	assert.Equal(t, models.DefaultBudgetSettings(), b.Settings)
}

func openTestApp(t *testing.T) *app {
	t.Helper()
	a, err := openApp(context.Background(), &RootOptions{ConfigPath: writeConfig(t, "memory")})
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })
	a.now = func() time.Time { return time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC) }
	return a
}

func TestCheckBudget(t *testing.T) {
	ctx := context.Background()
	a := openTestApp(t)
	a.store.UpdateBudget(ctx, func(b *models.BudgetSettings) { b.MonthlyBudget = 10000 })
	a.store.Transactions().Add(ctx, models.Transaction{
		Type: models.TransactionExpense, Date: time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), Amount: 50, Currency: "EUR",
	})
	a.store.Subscriptions().Add(ctx, models.Subscription{
		Name: "Music", Amount: 5, Currency: "EUR", Active: true, NextPayment: time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
	})

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	report, upcoming := checkBudget(logger, a, a.clock())

	assert.True(t, report.Exceeded)
	assert.InDelta(t, 19250, report.Spent, 0.01)
	require.Len(t, upcoming, 1)
	assert.Contains(t, buf.String(), "Monthly budget exceeded")
	assert.Contains(t, buf.String(), "Subscription payment due")
	assert.Contains(t, buf.String(), "name=Music")

	buf.Reset()
	a.store.UpdateBudget(ctx, func(b *models.BudgetSettings) { b.Notifications = false })
	checkBudget(logger, a, a.clock())
	assert.Empty(t, buf.String())
}

func TestServerHandler(t *testing.T) {
	a := openTestApp(t)
	server := httptest.NewServer(newServerHandler(a))
	defer server.Close()

	resp, err := http.Get(server.URL + "/healthz")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err := structpb.NewStruct(map[string]any{"amount": 2, "from": "EUR", "to": "HUF"})
	require.NoError(t, err)
	res, err := service.NewClient(server.Client(), server.URL, service.CurrencyServiceName, "Convert").
		CallUnary(context.Background(), connect.NewRequest(req))
	require.NoError(t, err)
	assert.InDelta(t, 770, res.Msg.AsMap()["amount"], 1e-9)

	resp, err = http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "planner_store_collection_entities")
}

func TestScheduledJobPanicIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	job := cron.NewChain(jobWrappers(logger)...).Then(cron.FuncJob(func() {
		panic("budget check failed")
	}))

	assert.NotPanics(t, job.Run)
	assert.Contains(t, buf.String(), "panic")
	assert.Contains(t, buf.String(), "budget check failed")
}
