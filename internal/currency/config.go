package currency

// ConfigKey is the storage key of the currency configuration.
const ConfigKey = "contentplanner_currency_config"

// Config is the persisted currency configuration.
//
// Rates maps a currency code to how much base currency one unit of it is
// worth. The base currency itself is never stored in Rates; its rate is 1.
type Config struct {
	BaseCurrency string             `json:"baseCurrency"`
	Rates        map[string]float64 `json:"rates"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		BaseCurrency: "HUF",
		Rates: map[string]float64{
			"EUR": 385,
			"USD": 355,
			"GBP": 450,
			"CHF": 405,
			"JPY": 2.4,
			"PLN": 90,
			"CZK": 15.3,
			"RON": 77,
		},
	}
}

// zeroDecimal currencies are displayed without fraction digits.
var zeroDecimal = map[string]bool{
	"HUF": true,
	"JPY": true,
}

// symbolFirst currencies put their symbol before the amount.
var symbolFirst = map[string]bool{
	"USD": true,
	"GBP": true,
	"JPY": true,
}

// symbols overrides the ISO table for the default currencies.
var symbols = map[string]string{
	"HUF": "Ft",
	"EUR": "€",
	"USD": "$",
	"GBP": "£",
	"CHF": "CHF",
	"JPY": "¥",
	"PLN": "zł",
	"CZK": "Kč",
	"RON": "lei",
}

func (c Config) clone() Config {
	rates := make(map[string]float64, len(c.Rates))
	for k, v := range c.Rates {
		rates[k] = v
	}
	return Config{BaseCurrency: c.BaseCurrency, Rates: rates}
}

// rebase expresses rates relative to newBase. A currency without a rate
// is treated as already worth one unit of the old base.
func rebase(rates map[string]float64, oldBase, newBase string) map[string]float64 {
	if oldBase == newBase {
		return rates
	}
	pivot, ok := rates[newBase]
	if !ok {
		pivot = 1
	}
	out := make(map[string]float64, len(rates))
	for code, r := range rates {
		if code != newBase {
			out[code] = r / pivot
		}
	}
	out[oldBase] = 1 / pivot
	return out
}
