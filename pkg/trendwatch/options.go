package trendwatch

import (
	"io"
	"time"

	"go.uber.org/zap"
)

type options struct {
	annexPath     string
	annexCSV      io.Reader
	annexXLSX     io.Reader
	codeColumn    string
	manufacturer  []string // primary, secondary
	dateColumns   []string
	separator     string
	datePatterns  []string
	weekStart     time.Weekday
	topN          int
	workers       int
	suffixes      []string
	verifyLimit   int
	provider      string
	apiKey        string
	model         string
	endpoint      string
	extra         map[string]string
	minConfidence float64
	timeout       time.Duration
	logger        *zap.Logger
}

// Option configures a Trendwatch instance.
type Option func(*options)

// WithAnnexFile loads the classification annex from an .xlsx or .csv file.
func WithAnnexFile(path string) Option {
	return func(o *options) { o.annexPath = path }
}

// WithAnnexCSV reads the classification annex from CSV.
func WithAnnexCSV(r io.Reader) Option {
	return func(o *options) { o.annexCSV = r }
}

// WithAnnexXLSX reads the classification annex from an .xlsx workbook.
func WithAnnexXLSX(r io.Reader) Option {
	return func(o *options) { o.annexXLSX = r }
}

// WithColumns overrides the code, manufacturer and date column names.
// Empty values keep the defaults; the manufacturer secondary is optional.
func WithColumns(code, manufacturer, manufacturerSecondary string, date ...string) Option {
	return func(o *options) {
		o.codeColumn = code
		o.manufacturer = []string{manufacturer, manufacturerSecondary}
		o.dateColumns = date
	}
}

// WithSeparator sets the multi-code separator. Default: "|".
func WithSeparator(sep string) Option {
	return func(o *options) { o.separator = sep }
}

// WithDatePatterns sets the Go time layouts tried on date cells, in order.
// Default: "02-01-2006".
func WithDatePatterns(layouts ...string) Option {
	return func(o *options) { o.datePatterns = layouts }
}

// WithWeekStart sets the first day of weekly periods. Default: Monday.
func WithWeekStart(d time.Weekday) Option {
	return func(o *options) { o.weekStart = d }
}

// WithTopN sets how many manufacturers a query selects when it names none.
// Default: 5.
func WithTopN(n int) Option {
	return func(o *options) { o.topN = n }
}

// WithWorkers bounds concurrent resolution work. Default: 8.
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithSuffixes replaces the legal-form suffixes stripped from manufacturer
// names, such as "inc" or "gmbh".
func WithSuffixes(suffixes ...string) Option {
	return func(o *options) { o.suffixes = suffixes }
}

// WithVerifyLimit caps how many of the highest-volume manufacturers the
// capability compares pairwise. Default: 20.
func WithVerifyLimit(n int) Option {
	return func(o *options) { o.verifyLimit = n }
}

// WithCapability enables the external fallback. provider is "semantic" or
// "remote"; endpoint is required for remote.
func WithCapability(provider, apiKey, model, endpoint string) Option {
	return func(o *options) {
		o.provider = provider
		o.apiKey = apiKey
		o.model = model
		o.endpoint = endpoint
	}
}

// WithCapabilitySetting passes a provider-specific setting, such as
// "generate_model" for the semantic provider.
func WithCapabilitySetting(key, value string) Option {
	return func(o *options) {
		if o.extra == nil {
			o.extra = make(map[string]string)
		}
		o.extra[key] = value
	}
}

// WithMinConfidence sets the floor below which external guesses are
// rejected. Default: 0.6.
func WithMinConfidence(c float64) Option {
	return func(o *options) { o.minConfidence = c }
}

// WithTimeout bounds each external call. Default: 10s.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithLogger sets the logger. Default: no-op.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func defaultOptions() options {
	return options{
		weekStart:     time.Monday,
		topN:          5,
		workers:       8,
		minConfidence: 0.6,
		timeout:       10 * time.Second,
		logger:        zap.NewNop(),
	}
}
