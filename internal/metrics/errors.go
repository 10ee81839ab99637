package metrics

import "codeberg.org/mutker/serialplot/internal/errors"

const (
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("metrics_invalid_db_path")

	ErrSchemaInitFailed      = errors.ErrorCode("metrics_schema_init_failed")
	ErrSchemaMigrationFailed = errors.ErrorCode("metrics_schema_migration_failed")
	ErrTransactionFailed     = errors.ErrorCode("metrics_transaction_failed")

	ErrStorageInit  = errors.ErrInitMetrics
	ErrStorageClose = errors.ErrCloseMetrics
	ErrStorageQuery = errors.ErrorCode("metrics_storage_query_failed")

	ErrServiceShutdown  = errors.ErrShutdownFailed
	ErrSampleCollection = errors.ErrCollectMetrics
	ErrInvalidSamples   = errors.ErrorCode("metrics_invalid_samples")
	ErrOperationTimeout = errors.ErrTimeout
)
