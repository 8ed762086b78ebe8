package currency

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/planner/internal/storage/memory"
)

func newTestService(t *testing.T, kv *memory.Store) *Service {
	t.Helper()
	return New(context.Background(), kv, Options{Locale: "en"})
}

func TestConvertScenario(t *testing.T) {
	s := newTestService(t, memory.New(0))
	require.NoError(t, s.SetRate(context.Background(), "EUR", 385))

	assert.Equal(t, 3850.0, s.Convert(10, "EUR", "HUF"))
	assert.Equal(t, 10.0, s.Convert(3850, "HUF", "EUR"))
}

func TestConvertIdentity(t *testing.T) {
	s := newTestService(t, memory.New(0))
	for _, code := range []string{"HUF", "EUR", "XXX", ""} {
		for _, amount := range []float64{0, -12.5, 1e9, math.SmallestNonzeroFloat64} {
			assert.Equal(t, amount, s.Convert(amount, code, code))
		}
	}
}

func TestConvertPathInvariant(t *testing.T) {
	s := newTestService(t, memory.New(0))
	codes := s.Currencies()
	for _, x := range codes {
		for _, y := range codes {
			back := s.Convert(s.Convert(123.45, x, y), y, x)
			assert.InDelta(t, 123.45, back, 1e-9, "%s -> %s -> %s", x, y, x)
		}
	}
}

func TestConvertViaBase(t *testing.T) {
	s := newTestService(t, memory.New(0))
	// EUR -> USD goes through HUF: 10 * 385 / 355
	assert.InDelta(t, 10.8451, s.Convert(10, "EUR", "USD"), 1e-4)
	// Unknown currencies count as base units.
	assert.Equal(t, 770.0, s.Convert(2, "EUR", "ZZZ"))
	assert.Equal(t, 2.0, s.Convert(770, "ZZZ", "EUR"))
}

func TestRate(t *testing.T) {
	s := newTestService(t, memory.New(0))
	assert.Equal(t, 1.0, s.Rate("HUF"))
	assert.Equal(t, 385.0, s.Rate("EUR"))
	assert.Equal(t, 1.0, s.Rate("ABC"))
	_, stored := s.Rates()["HUF"]
	assert.False(t, stored, "the base rate is never stored")
}

func TestSetRateValidation(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, memory.New(0))

	assert.ErrorIs(t, s.SetRate(ctx, "EUR", 0), ErrInvalidRate)
	assert.ErrorIs(t, s.SetRate(ctx, "EUR", -1), ErrInvalidRate)
	assert.ErrorIs(t, s.SetRate(ctx, "EUR", math.NaN()), ErrInvalidRate)
	assert.ErrorIs(t, s.SetRate(ctx, "HUF", 2), ErrInvalidRate)
	assert.ErrorIs(t, s.SetRate(ctx, "euro", 2), ErrUnknownCurrency)

	require.NoError(t, s.SetRate(ctx, " sek ", 34))
	assert.Equal(t, 34.0, s.Rate("SEK"))
}

func TestSetBaseCurrencyRebases(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	s := newTestService(t, kv)
	before := s.Convert(10, "GBP", "USD")

	require.NoError(t, s.SetBaseCurrency(ctx, "eur"))

	assert.Equal(t, "EUR", s.BaseCurrency())
	assert.InDelta(t, 1.0/385, s.Rate("HUF"), 1e-12)
	assert.InDelta(t, before, s.Convert(10, "GBP", "USD"), 1e-9)
	assert.InDelta(t, 3850.0, s.Convert(10, "EUR", "HUF"), 1e-9)
	_, stored := s.Rates()["EUR"]
	assert.False(t, stored)

	assert.ErrorIs(t, s.SetBaseCurrency(ctx, "E"), ErrUnknownCurrency)
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	s := newTestService(t, kv)
	require.NoError(t, s.SetRate(ctx, "EUR", 392))
	require.NoError(t, s.SetBaseCurrency(ctx, "EUR"))

	reloaded := newTestService(t, kv)
	assert.Equal(t, "EUR", reloaded.BaseCurrency())
	assert.InDelta(t, 1.0/392, reloaded.Rate("HUF"), 1e-12)
}

func TestLoadMergesDefaults(t *testing.T) {
	ctx := context.Background()

	t.Run("saved overrides win", func(t *testing.T) {
		kv := memory.New(0)
		require.NoError(t, kv.Set(ctx, ConfigKey, []byte(`{"baseCurrency":"HUF","rates":{"EUR":400,"SEK":34}}`)))
		s := newTestService(t, kv)

		assert.Equal(t, 400.0, s.Rate("EUR"))
		assert.Equal(t, 34.0, s.Rate("SEK"))
		assert.Equal(t, 355.0, s.Rate("USD"), "new defaults appear for old configs")
	})

	t.Run("defaults follow a saved base", func(t *testing.T) {
		kv := memory.New(0)
		require.NoError(t, kv.Set(ctx, ConfigKey, []byte(`{"baseCurrency":"EUR","rates":{"USD":0.92}}`)))
		s := newTestService(t, kv)

		assert.Equal(t, "EUR", s.BaseCurrency())
		assert.Equal(t, 0.92, s.Rate("USD"))
		assert.InDelta(t, 450.0/385, s.Rate("GBP"), 1e-12)
		assert.InDelta(t, 1.0/385, s.Rate("HUF"), 1e-12)
	})

	t.Run("invalid saved rates are dropped", func(t *testing.T) {
		kv := memory.New(0)
		require.NoError(t, kv.Set(ctx, ConfigKey, []byte(`{"baseCurrency":"HUF","rates":{"EUR":0,"GBP":-3,"eur":5,"SEK":34}}`)))
		s := newTestService(t, kv)

		assert.Equal(t, 385.0, s.Rate("EUR"), "default kept instead of a zero rate")
		assert.Equal(t, 450.0, s.Rate("GBP"))
		assert.Equal(t, 34.0, s.Rate("SEK"))
		assert.NotContains(t, s.Rates(), "eur")
		assert.False(t, math.IsInf(s.Convert(1000, "HUF", "EUR"), 0))
	})

	t.Run("invalid saved base falls back", func(t *testing.T) {
		kv := memory.New(0)
		require.NoError(t, kv.Set(ctx, ConfigKey, []byte(`{"baseCurrency":"euro","rates":{"USD":1}}`)))
		s := newTestService(t, kv)

		assert.Equal(t, DefaultConfig(), s.Config())
	})

	t.Run("malformed config falls back", func(t *testing.T) {
		kv := memory.New(0)
		require.NoError(t, kv.Set(ctx, ConfigKey, []byte(`{"rates":[1,2]}`)))
		s := newTestService(t, kv)

		assert.Equal(t, DefaultConfig(), s.Config())
	})
}

func TestWriteFailureKeepsRate(t *testing.T) {
	kv := memory.New(0)
	kv.FailWrites = errors.New("read-only filesystem")

	var reported []error
	s := New(context.Background(), kv, Options{Locale: "en", OnWriteError: func(err error) { reported = append(reported, err) }})

	require.NoError(t, s.SetRate(context.Background(), "EUR", 380))
	assert.Equal(t, 380.0, s.Rate("EUR"))
	assert.Len(t, reported, 1)
}

func TestFormat(t *testing.T) {
	s := newTestService(t, memory.New(0))

	tests := []struct {
		amount float64
		code   string
		want   string
	}{
		{1234.5, "EUR", "1,234.50 €"},
		{1234.5, "USD", "$1,234.50"},
		{3850, "HUF", "3,850 Ft"},
		{3849.6, "HUF", "3,850 Ft"},
		{1234.567, "JPY", "¥1,235"},
		{-5, "GBP", "-£5.00"},
		{0.004, "CHF", "0.00 CHF"},
		{42, "ZZZ", "42.00 ZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Format(tt.amount, tt.code))
		})
	}
}

func TestFormatNonFinite(t *testing.T) {
	s := newTestService(t, memory.New(0))

	assert.Equal(t, "+Inf HUF", s.Format(math.Inf(1), "HUF"))
	assert.Equal(t, "-Inf EUR", s.Format(math.Inf(-1), "EUR"))
	assert.Equal(t, "NaN USD", s.Format(math.NaN(), "USD"))

	overflow := s.Convert(1e308, "GBP", "HUF")
	require.True(t, math.IsInf(overflow, 1))
	assert.Equal(t, "+Inf HUF", s.Format(overflow, "HUF"))
}

func TestFormatLocale(t *testing.T) {
	s := New(context.Background(), memory.New(0), Options{Locale: "hu-HU"})
	got := s.Format(1234.5, "EUR")

	assert.True(t, strings.HasSuffix(got, " €"), got)
	assert.Contains(t, got, ",50", "Hungarian uses a decimal comma")
}

func TestApplyRates(t *testing.T) {
	ctx := context.Background()
	kv := memory.New(0)
	s := newTestService(t, kv)

	n, err := s.ApplyRates(ctx, []byte(`{"EUR": 390, "USD": "360", "GBP": null, "huf": 1, "xx": 5, "CHF": -3, "pln": 91.5}`))
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 390.0, s.Rate("EUR"))
	assert.Equal(t, 91.5, s.Rate("PLN"))
	assert.Equal(t, 355.0, s.Rate("USD"))
	assert.Equal(t, 450.0, s.Rate("GBP"))

	n, err = s.ApplyRates(ctx, []byte(`{"rates": {"USD": 361}}`))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 361.0, newTestService(t, kv).Rate("USD"), "applied rates are persisted")

	_, err = s.ApplyRates(ctx, []byte(`[1, 2]`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	_, err = s.ApplyRates(ctx, []byte(`{nope`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
}

type fakeSource struct {
	payload string
	err     error
	base    string
	codes   []string
}

func (f *fakeSource) SuggestRates(_ context.Context, base string, codes []string) ([]byte, error) {
	f.base, f.codes = base, codes
	return []byte(f.payload), f.err
}

func TestRefreshRates(t *testing.T) {
	ctx := context.Background()
	s := newTestService(t, memory.New(0))

	src := &fakeSource{payload: `{"EUR": 388.2}`}
	n, err := s.RefreshRates(ctx, src)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "HUF", src.base)
	assert.Contains(t, src.codes, "EUR")
	assert.NotContains(t, src.codes, "HUF")

	_, err = s.RefreshRates(ctx, &fakeSource{err: errors.New("timeout")})
	assert.Error(t, err)
	assert.Equal(t, 388.2, s.Rate("EUR"))
}
