package logging

import (
	"go.uber.org/zap"
)

// NewLogger builds a production ready structured logger.
func NewLogger() (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "timestamp"
	return cfg.Build()
}

// WithOperation enriches the logger with operation and item identifiers.
func WithOperation(logger *zap.Logger, operation, itemID string) *zap.Logger {
	fields := []zap.Field{zap.String("operation", operation)}
	if itemID != "" {
		fields = append(fields, zap.String("item_id", itemID))
	}
	return logger.With(fields...)
}
