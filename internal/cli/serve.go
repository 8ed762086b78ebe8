package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/mmynk/planner/internal/budget"
	"github.com/mmynk/planner/internal/metrics"
	"github.com/mmynk/planner/internal/middleware"
	"github.com/mmynk/planner/internal/models"
	"github.com/mmynk/planner/internal/service"
)

const shutdownTimeout = 5 * time.Second

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planner over Connect RPC",
		Long: `Serve the store, currency and habit services over Connect RPC
(HTTP/1.1 and h2c), expose Prometheus metrics on /metrics and run the
scheduled budget check.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts, listen)
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address, overrides server.listen")
	return cmd
}

func runServe(ctx context.Context, opts *RootOptions, listen string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()

	if listen == "" {
		listen = a.cfg.Server.Listen
	}

	scheduler := cron.New(cron.WithLocation(a.loc), cron.WithChain(jobWrappers(slog.Default())...))
	if a.cfg.Budget.Schedule != "" {
		_, err := scheduler.AddFunc(a.cfg.Budget.Schedule, func() {
			checkBudget(slog.Default(), a, a.clock())
		})
		if err != nil {
			return fmt.Errorf("failed to schedule budget check: %w", err)
		}
		scheduler.Start()
		defer scheduler.Stop()
		slog.Info("Budget check scheduled", "schedule", a.cfg.Budget.Schedule)
	}

	srv := &http.Server{
		Addr:              listen,
		Handler:           h2c.NewHandler(newServerHandler(a), &http2.Server{}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Connect server starting", "address", listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		slog.Info("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// cronLogger adapts slog to the cron.Logger interface.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}

// jobWrappers recovers panics in scheduled jobs so a failing check does
// not take the server down.
func jobWrappers(logger *slog.Logger) []cron.JobWrapper {
	return []cron.JobWrapper{cron.Recover(cronLogger{logger: logger})}
}

// newServerHandler mounts every service, the metrics endpoint and a
// health check.
func newServerHandler(a *app) http.Handler {
	interceptors := connect.WithInterceptors(middleware.LoggingInterceptor(nil))

	mux := http.NewServeMux()
	mux.Handle(service.NewStoreServiceHandler(
		service.NewStoreService(a.store, a.currency, service.WithClock(a.clock)),
		interceptors,
	))
	mux.Handle(service.NewCurrencyServiceHandler(service.NewCurrencyService(a.currency, nil), interceptors))
	mux.Handle(service.NewHabitServiceHandler(service.NewHabitService(a.habits, nil), interceptors))
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !a.store.Loaded() {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		fmt.Fprintln(w, "ok")
	})

	return middleware.RequestLogger(nil, middleware.CORS(mux))
}

// checkBudget logs the monthly budget state and due subscriptions. It
// stays silent when notifications are off.
func checkBudget(logger *slog.Logger, a *app, asOf time.Time) (budget.Report, []models.Subscription) {
	settings := a.store.Budget()
	report := budget.Status(settings, a.store.Transactions().List(), a.currency, asOf)
	upcoming := budget.Upcoming(a.store.Subscriptions().List(), asOf, a.cfg.Budget.UpcomingWithin)
	if !settings.Notifications {
		return report, upcoming
	}

	switch {
	case report.Exceeded:
		logger.Warn("Monthly budget exceeded", "month", report.Month, "spent", report.Spent, "budget", report.Budget, "currency", report.Currency)
	case report.Warning:
		logger.Warn("Monthly budget warning", "month", report.Month, "percent", report.Percent, "threshold", settings.WarningThreshold)
	default:
		logger.Info("Monthly budget checked", "month", report.Month, "percent", report.Percent)
	}
	for _, s := range upcoming {
		logger.Info("Subscription payment due",
			"name", s.Name,
			"amount", a.currency.Format(s.Amount, s.Currency),
			"date", s.NextPayment.In(asOf.Location()).Format("2006-01-02"),
		)
	}
	return report, upcoming
}
