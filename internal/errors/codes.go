package errors

const (
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"

	// Configuration
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrMissingConfig   ErrorCode = "missing_configuration"
	ErrBindFlags       ErrorCode = "bind_flags_failed"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidBaudRate ErrorCode = "invalid_baud_rate"
	ErrInvalidMode     ErrorCode = "invalid_mode"
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Process lifecycle
	ErrShutdownFailed ErrorCode = "shutdown_failed"
	ErrAlreadyRunning ErrorCode = "already_running"
	ErrResourceBusy   ErrorCode = "resource_busy"
	ErrTimeout        ErrorCode = "operation_timeout"

	// Serial stream
	ErrPortOpen      ErrorCode = "port_open_failed"
	ErrNoSignal      ErrorCode = "no_signal"
	ErrInvalidData   ErrorCode = "invalid_data"
	ErrInvalidValue  ErrorCode = "invalid_value"
	ErrListPorts     ErrorCode = "list_ports_failed"
	ErrSessionFailed ErrorCode = "session_failed"

	// Side storage
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
	ErrInitTelemetry  ErrorCode = "init_telemetry_failed"
	ErrReadSettings   ErrorCode = "read_settings_failed"
	ErrWriteSettings  ErrorCode = "write_settings_failed"
	ErrExport         ErrorCode = "export_failed"
)

type codeInfo struct {
	message  string
	severity Severity
}

// codes holds the user-facing text of each code. The serial stream messages
// are shown to the user as is. Codes without a severity are fatal.
var codes = map[ErrorCode]codeInfo{
	ErrInternal:        {message: "Internal error occurred"},
	ErrInvalidArgument: {message: "Invalid argument provided"},
	ErrInvalidConfig:   {message: "Invalid configuration"},
	ErrMissingConfig:   {message: "Missing configuration"},
	ErrBindFlags:       {message: "Failed to bind flags"},
	ErrReadConfig:      {message: "Failed to read configuration"},
	ErrInvalidInterval: {message: "Invalid interval value"},
	ErrInvalidBaudRate: {message: "Invalid baud rate"},
	ErrInvalidMode:     {message: "Invalid aggregation mode"},
	ErrInvalidLogLevel: {message: "Invalid log level"},
	ErrShutdownFailed:  {message: "Shutdown failed"},
	ErrAlreadyRunning:  {message: "Another instance is already reading this port"},
	ErrResourceBusy:    {message: "Resource is busy"},
	ErrTimeout:         {message: "Operation timed out"},
	ErrPortOpen:        {message: "Failed to open port"},
	ErrNoSignal:        {message: "No signal"},
	ErrInvalidData:     {message: "Incorrect received data"},
	ErrInvalidValue:    {message: "Warning! Incorrect received data", severity: SeverityWarning},
	ErrListPorts:       {message: "Failed to list serial ports"},
	ErrSessionFailed:   {message: "Read session failed"},
	ErrInitMetrics:     {message: "Failed to initialize metrics"},
	ErrCollectMetrics:  {message: "Failed to collect metrics data"},
	ErrCloseMetrics:    {message: "Failed to close metrics connection"},
	ErrInitTelemetry:   {message: "Failed to initialize telemetry"},
	ErrReadSettings:    {message: "Failed to read settings"},
	ErrWriteSettings:   {message: "Failed to write settings"},
	ErrExport:          {message: "Failed to export samples"},
}

// GetErrorMessage returns the message for code, or the code itself when it
// has none.
func GetErrorMessage(code ErrorCode) string {
	if info, ok := codes[code]; ok {
		return info.message
	}
	return string(code)
}

func severityOf(code ErrorCode) Severity {
	if info, ok := codes[code]; ok && info.severity != 0 {
		return info.severity
	}
	return SeverityFatal
}
