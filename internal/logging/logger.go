// Package logging provides config-driven categorized logging for propsweep.
// Each category is a named zap logger. Until Initialize is called every
// category is a silent no-op, so library code can log unconditionally.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup, config resolution
	CategoryDiscovery Category = "discovery" // Aggregator runs, admission decisions
	CategoryFetch     Category = "fetch"     // Retrying fetcher, backoff
	CategoryTransport Category = "transport" // HTTP/GraphQL calls
	CategoryCatalog   Category = "catalog"   // Strategy generation
	CategoryNormalize Category = "normalize" // Response shape diagnostics
	CategoryReport    Category = "report"    // Reconciliation report
	CategoryExport    Category = "export"    // File export, run history
)

// Options mirrors config.LoggingConfig to avoid an import cycle.
type Options struct {
	DebugMode  bool
	Level      string // debug, info, warn, error
	Format     string // json, text
	File       string // empty = stderr
	Categories map[string]bool
}

// Logger is a category-scoped logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex
	base      *zap.Logger
	opts      Options
	optsMu    sync.RWMutex
)

// Initialize builds the shared zap logger from opts. Safe to call again; the
// previous logger is synced and replaced.
func Initialize(o Options) error {
	if !o.DebugMode {
		reset(nil, o)
		return nil
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(o.Level))
	cfg.Sampling = nil
	if strings.EqualFold(o.Format, "text") || strings.EqualFold(o.Format, "console") {
		cfg.Encoding = "console"
		cfg.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}
	if o.File != "" {
		if err := os.MkdirAll(filepath.Dir(o.File), 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		cfg.OutputPaths = []string{o.File}
		cfg.ErrorOutputPaths = []string{o.File}
	}

	l, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	reset(l, o)

	Get(CategoryBoot).Info("logging initialized level=%s format=%s", o.Level, o.Format)
	return nil
}

// UseLogger installs an existing zap logger as the backend. Tests use this
// with zaptest/observer to assert on diagnostics.
func UseLogger(l *zap.Logger, o Options) {
	o.DebugMode = l != nil
	reset(l, o)
}

func reset(l *zap.Logger, o Options) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	base = l
	loggers = make(map[Category]*Logger)

	optsMu.Lock()
	opts = o
	optsMu.Unlock()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()

	if !opts.DebugMode {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is off or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}
	if base == nil {
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		sugar:    base.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// StructuredLog writes a message with key-value fields at the given level.
func (l *Logger) StructuredLog(level string, msg string, fields map[string]interface{}) {
	if l.sugar == nil {
		return
	}
	kv := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		kv = append(kv, k, v)
	}
	switch parseLevel(level) {
	case zapcore.DebugLevel:
		l.sugar.Debugw(msg, kv...)
	case zapcore.WarnLevel:
		l.sugar.Warnw(msg, kv...)
	case zapcore.ErrorLevel:
		l.sugar.Errorw(msg, kv...)
	default:
		l.sugar.Infow(msg, kv...)
	}
}

// With returns a child logger carrying the given key-value pairs.
func (l *Logger) With(kv ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(kv...)}
}

// Sync flushes the backend (call at shutdown)
func Sync() {
	loggersMu.RLock()
	defer loggersMu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - no-ops if the category is disabled
// =============================================================================

func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

func BootWarn(format string, args ...interface{}) {
	Get(CategoryBoot).Warn(format, args...)
}

func Discovery(format string, args ...interface{}) {
	Get(CategoryDiscovery).Info(format, args...)
}

func DiscoveryDebug(format string, args ...interface{}) {
	Get(CategoryDiscovery).Debug(format, args...)
}

func DiscoveryWarn(format string, args ...interface{}) {
	Get(CategoryDiscovery).Warn(format, args...)
}

func Fetch(format string, args ...interface{}) {
	Get(CategoryFetch).Info(format, args...)
}

func FetchDebug(format string, args ...interface{}) {
	Get(CategoryFetch).Debug(format, args...)
}

func FetchWarn(format string, args ...interface{}) {
	Get(CategoryFetch).Warn(format, args...)
}

func Transport(format string, args ...interface{}) {
	Get(CategoryTransport).Info(format, args...)
}

func TransportDebug(format string, args ...interface{}) {
	Get(CategoryTransport).Debug(format, args...)
}

func Catalog(format string, args ...interface{}) {
	Get(CategoryCatalog).Info(format, args...)
}

func CatalogDebug(format string, args ...interface{}) {
	Get(CategoryCatalog).Debug(format, args...)
}

func NormalizeWarn(format string, args ...interface{}) {
	Get(CategoryNormalize).Warn(format, args...)
}

func NormalizeDebug(format string, args ...interface{}) {
	Get(CategoryNormalize).Debug(format, args...)
}

func Report(format string, args ...interface{}) {
	Get(CategoryReport).Info(format, args...)
}

func Export(format string, args ...interface{}) {
	Get(CategoryExport).Info(format, args...)
}

func ExportError(format string, args ...interface{}) {
	Get(CategoryExport).Error(format, args...)
}
