package telemetry

import "codeberg.org/mutker/serialplot/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")
	ErrInvalidDBPath = errors.ErrorCode("telemetry_invalid_db_path")

	// Collection Errors
	ErrSessionCollection = errors.ErrorCode("telemetry_session_collection_failed")
	ErrInvalidSession    = errors.ErrorCode("telemetry_invalid_session")
	ErrUnknownSession    = errors.ErrorCode("telemetry_unknown_session")

	// Storage Errors
	ErrStorageAccess    = errors.ErrorCode("telemetry_storage_access_failed")
	ErrStorageInit      = errors.ErrInitTelemetry
	ErrStorageClose     = errors.ErrorCode("telemetry_storage_close_failed")
	ErrSchemaInitFailed = errors.ErrorCode("telemetry_schema_init_failed")

	// Operation Errors
	ErrOperationTimeout = errors.ErrorCode("telemetry_operation_timeout")
	ErrServiceShutdown  = errors.ErrorCode("telemetry_service_shutdown_failed")
	ErrListen           = errors.ErrorCode("telemetry_listen_failed")
)
