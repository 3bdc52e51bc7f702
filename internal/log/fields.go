package log

// Common field names for structured logging
const (
	FieldComponent  = "component"
	FieldRequestID  = "request_id"
	FieldClientIP   = "client_ip"
	FieldMethod     = "method"
	FieldPath       = "path"
	FieldStatusCode = "status_code"
	FieldDuration   = "duration_ms"
	FieldError      = "error"
	FieldOperation  = "operation"

	FieldContributionID   = "contribution_id"
	FieldScopeID          = "scope_id"
	FieldContributorID    = "contributor_id"
	FieldCurrency         = "currency"
	FieldAmount           = "amount"
	FieldNormalizedAmount = "normalized_amount"
	FieldPaymentMethod    = "payment_method"
	FieldExportFormat     = "export_format"
	FieldEventAction      = "event_action"
	FieldBatchSize        = "batch_size"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentRates   = "rates"
	ComponentStorage = "storage"
	ComponentAMQP    = "amqp"
	ComponentWorker  = "worker"
	ComponentSheets  = "sheets"
	ComponentBackend = "backend"
	ComponentExport  = "export"
)

// Operations defines standard operation names
const (
	OpCreate    = "create"
	OpRead      = "read"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpList      = "list"
	OpTotal     = "total"
	OpExport    = "export"
	OpNormalize = "normalize"
	OpMirror    = "mirror"
	OpShutdown  = "shutdown"
	OpStartup   = "startup"
)
