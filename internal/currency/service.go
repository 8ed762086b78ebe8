// Package currency converts and formats monetary amounts.
//
// All conversions go through the base currency: an amount is first turned
// into base units with the source rate and then divided by the target
// rate. Only rates to the base are configured, so n currencies need n-1
// entries rather than a full pair matrix.
package currency

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/mmynk/planner/internal/metrics"
	"github.com/mmynk/planner/internal/storage"
)

var (
	ErrInvalidRate     = errors.New("invalid exchange rate")
	ErrUnknownCurrency = errors.New("invalid currency code")
	ErrInvalidPayload  = errors.New("rate payload is not a JSON object")
)

var codePattern = regexp.MustCompile(`^[A-Z]{3}$`)

// Options configures a Service.
type Options struct {
	// Locale drives digit grouping and decimal separators (BCP 47).
	// Defaults to "hu-HU".
	Locale string

	// OnWriteError is called when the configuration could not be saved.
	OnWriteError func(error)

	Logger *slog.Logger
}

// Service holds the base currency and the rate table.
// The process is expected to hold a single instance.
type Service struct {
	mu      sync.RWMutex
	kv      storage.KV
	cfg     Config
	printer *message.Printer
	opts    Options
}

// New loads the saved configuration from kv, with defaults merged under
// it: saved rates win, and defaults fill in currencies the saved
// configuration does not know yet.
func New(ctx context.Context, kv storage.KV, opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Locale == "" {
		opts.Locale = "hu-HU"
	}
	tag, err := language.Parse(opts.Locale)
	if err != nil {
		opts.Logger.Warn("Unknown locale, using default", "locale", opts.Locale, "error", err)
		tag = language.Hungarian
	}

	s := &Service{
		kv:      kv,
		cfg:     load(ctx, kv, opts.Logger),
		printer: message.NewPrinter(tag),
		opts:    opts,
	}
	opts.Logger.Debug("Currency config loaded", "base", s.cfg.BaseCurrency, "rates", len(s.cfg.Rates))
	return s
}

func load(ctx context.Context, kv storage.KV, logger *slog.Logger) Config {
	cfg := DefaultConfig()

	raw, ok, err := kv.Get(ctx, ConfigKey)
	if err != nil {
		metrics.RecordLoadFailure(ConfigKey)
		logger.Warn("Currency config load failed, using defaults", "error", err)
		return cfg
	}
	if !ok {
		return cfg
	}

	var saved Config
	if err := json.Unmarshal(raw, &saved); err != nil {
		metrics.RecordLoadFailure(ConfigKey)
		logger.Warn("Currency config is malformed, using defaults", "error", err)
		return cfg
	}

	if saved.BaseCurrency != "" && !codePattern.MatchString(saved.BaseCurrency) {
		metrics.RecordLoadFailure(ConfigKey)
		logger.Warn("Currency config has an invalid base, using defaults", "base", saved.BaseCurrency)
		return cfg
	}
	if saved.BaseCurrency != "" && saved.BaseCurrency != cfg.BaseCurrency {
		cfg.Rates = rebase(cfg.Rates, cfg.BaseCurrency, saved.BaseCurrency)
		cfg.BaseCurrency = saved.BaseCurrency
	}
	for code, rate := range saved.Rates {
		if !validRate(rate) || !codePattern.MatchString(code) {
			metrics.RecordLoadFailure(ConfigKey)
			logger.Warn("Skipping invalid saved rate", "currency", code, "rate", rate)
			continue
		}
		cfg.Rates[code] = rate
	}
	delete(cfg.Rates, cfg.BaseCurrency)
	return cfg
}

// BaseCurrency returns the pivot currency.
func (s *Service) BaseCurrency() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.BaseCurrency
}

// SetBaseCurrency switches the pivot currency and re-expresses every rate
// against it, so conversions between configured currencies are unchanged.
func (s *Service) SetBaseCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}

	s.mu.Lock()
	s.cfg.Rates = rebase(s.cfg.Rates, s.cfg.BaseCurrency, code)
	s.cfg.BaseCurrency = code
	err := s.persist(ctx)
	s.mu.Unlock()

	s.reportWrite(err)
	return nil
}

// Rate returns how much base currency one unit of code is worth.
// The base currency and unknown currencies are worth 1.
func (s *Service) Rate(code string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rate(code)
}

func (s *Service) rate(code string) float64 {
	if code == s.cfg.BaseCurrency {
		return 1
	}
	if r, ok := s.cfg.Rates[code]; ok {
		return r
	}
	return 1
}

// Rates returns a copy of the stored rate table (without the base).
func (s *Service) Rates() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.cfg.Rates)
}

// Config returns a copy of the configuration.
func (s *Service) Config() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Currencies lists the base currency followed by the configured ones.
func (s *Service) Currencies() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	codes := make([]string, 0, len(s.cfg.Rates))
	for code := range s.cfg.Rates {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	return append([]string{s.cfg.BaseCurrency}, codes...)
}

// SetRate stores the rate of code to the base currency.
func (s *Service) SetRate(ctx context.Context, code string, rate float64) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !codePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	if !validRate(rate) {
		return fmt.Errorf("%w: %v for %s", ErrInvalidRate, rate, code)
	}

	s.mu.Lock()
	if code == s.cfg.BaseCurrency {
		s.mu.Unlock()
		return fmt.Errorf("%w: the base currency is fixed at 1", ErrInvalidRate)
	}
	s.cfg.Rates[code] = rate
	err := s.persist(ctx)
	s.mu.Unlock()

	s.reportWrite(err)
	return nil
}

// Convert converts amount from one currency to another via the base.
// Unknown currencies are treated as already in base units.
func (s *Service) Convert(amount float64, from, to string) float64 {
	if from == to {
		return amount
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	inBase := amount
	if from != s.cfg.BaseCurrency {
		inBase = amount * s.rate(from)
	}
	if to == s.cfg.BaseCurrency {
		return inBase
	}
	return inBase / s.rate(to)
}

// Format renders amount with the locale's digit grouping and the
// currency's symbol. HUF and JPY have no fraction digits; everything else
// has two. Infinite and NaN amounts are rendered as "+Inf", "-Inf" or
// "NaN" followed by the currency code.
func (s *Service) Format(amount float64, code string) string {
	if math.IsInf(amount, 0) || math.IsNaN(amount) {
		return strconv.FormatFloat(amount, 'f', -1, 64) + " " + code
	}
	digits := FractionDigits(code)
	rounded := decimal.NewFromFloat(amount).Round(int32(digits))
	abs := rounded.Abs().InexactFloat64()

	s.mu.RLock()
	num := s.printer.Sprint(number.Decimal(abs,
		number.MinFractionDigits(digits),
		number.MaxFractionDigits(digits),
	))
	s.mu.RUnlock()

	sign := ""
	if rounded.IsNegative() {
		sign = "-"
	}
	sym := Symbol(code)
	if symbolFirst[code] {
		return sign + sym + num
	}
	return sign + num + " " + sym
}

// FractionDigits returns the number of decimals displayed for code.
func FractionDigits(code string) int {
	if zeroDecimal[code] {
		return 0
	}
	return 2
}

// Symbol returns the display symbol of code, falling back to the ISO
// table and then to the code itself.
func Symbol(code string) string {
	if sym, ok := symbols[code]; ok {
		return sym
	}
	if c := money.GetCurrency(code); c != nil && c.Grapheme != "" {
		return c.Grapheme
	}
	return code
}

// ApplyRates merges externally suggested rates into the table. payload is
// a JSON object mapping codes to rates, optionally wrapped in {"rates": …}.
// Entries that are not positive numbers are skipped; the number of applied
// entries is returned.
func (s *Service) ApplyRates(ctx context.Context, payload []byte) (int, error) {
	if !gjson.ValidBytes(payload) {
		return 0, ErrInvalidPayload
	}
	root := gjson.ParseBytes(payload)
	if inner := root.Get("rates"); inner.IsObject() {
		root = inner
	}
	if !root.IsObject() {
		return 0, ErrInvalidPayload
	}

	s.mu.Lock()
	applied := 0
	root.ForEach(func(key, value gjson.Result) bool {
		code := strings.ToUpper(strings.TrimSpace(key.String()))
		if value.Type != gjson.Number || !codePattern.MatchString(code) || code == s.cfg.BaseCurrency {
			s.opts.Logger.Debug("Skipping suggested rate", "currency", key.String(), "value", value.Raw)
			return true
		}
		rate := value.Float()
		if !validRate(rate) {
			return true
		}
		s.cfg.Rates[code] = rate
		applied++
		return true
	})
	var err error
	if applied > 0 {
		err = s.persist(ctx)
	}
	s.mu.Unlock()

	s.reportWrite(err)
	s.opts.Logger.Info("Suggested rates applied", "applied", applied)
	return applied, nil
}

// RateSource suggests rates to the base currency for the given codes.
// The payload format is the one accepted by ApplyRates.
type RateSource interface {
	SuggestRates(ctx context.Context, base string, codes []string) ([]byte, error)
}

// RefreshRates asks src for fresh rates and applies the usable ones.
func (s *Service) RefreshRates(ctx context.Context, src RateSource) (int, error) {
	codes := s.Currencies()
	payload, err := src.SuggestRates(ctx, codes[0], codes[1:])
	if err != nil {
		return 0, fmt.Errorf("failed to fetch rates: %w", err)
	}
	return s.ApplyRates(ctx, payload)
}

// persist writes the configuration. Callers hold s.mu.
func (s *Service) persist(ctx context.Context) error {
	data, err := json.Marshal(s.cfg)
	if err != nil {
		return fmt.Errorf("failed to encode currency config: %w", err)
	}
	if err := s.kv.Set(ctx, ConfigKey, data); err != nil {
		return err
	}
	metrics.RecordWrite(ConfigKey, "ok")
	return nil
}

func (s *Service) reportWrite(err error) {
	if err == nil {
		return
	}
	kind := storage.Classify(err)
	metrics.RecordWrite(ConfigKey, string(kind))
	s.opts.Logger.Error("Currency config write failed", "kind", kind, "error", err)
	if s.opts.OnWriteError != nil {
		s.opts.OnWriteError(err)
	}
}

func validRate(r float64) bool {
	return r > 0 && !math.IsInf(r, 0) && !math.IsNaN(r)
}
