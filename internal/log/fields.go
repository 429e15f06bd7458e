package log

import "github.com/shopspring/decimal"

// Common field names for structured logging
const (
	FieldComponent     = "component"
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldQuery         = "query"
	FieldError         = "error"
	FieldErrorType     = "error_type"
	FieldOperation     = "operation"
	FieldMonth         = "month"
	FieldAccount       = "account"
	FieldTransactionID = "transaction_id"
	FieldAction        = "action"
	FieldAmount        = "amount"
	FieldDropped       = "dropped"
)

const (
	ComponentApp         = "app"
	ComponentHTTP        = "http"
	ComponentLedger      = "ledger"
	ComponentCoordinator = "coordinator"
	ComponentStorage     = "storage"
	ComponentWorker      = "worker"
)

const (
	OpCreate   = "create"
	OpUpdate   = "update"
	OpDelete   = "delete"
	OpAdjust   = "adjust"
	OpTransfer = "transfer"
	OpRefresh  = "refresh"
	OpExport   = "export"
)

const (
	ErrorTypeValidation = "validation_error"
	ErrorTypeTransport  = "transport_error"
	ErrorTypeDataShape  = "data_shape_error"
	ErrorTypeNotFound   = "not_found_error"
	ErrorTypeConflict   = "conflict_error"
	ErrorTypeInternal   = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithErrorType tags the record with one of the ErrorType values.
func (f LogFields) WithErrorType(errorType string) LogFields {
	if errorType != "" {
		f[FieldErrorType] = errorType
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithAccount adds the account name; blank names are left out.
func (f LogFields) WithAccount(name string) LogFields {
	if name != "" {
		f[FieldAccount] = name
	}
	return f
}

func (f LogFields) WithMonth(month string) LogFields {
	if month != "" {
		f[FieldMonth] = month
	}
	return f
}

func (f LogFields) WithTransactionID(id int64) LogFields {
	if id > 0 {
		f[FieldTransactionID] = id
	}
	return f
}

// WithAmount logs the amount as a fixed two-place string.
// WithDropped records how many malformed records a decode left out.
func (f LogFields) WithDropped(n int) LogFields {
	f[FieldDropped] = n
	return f
}

func (f LogFields) WithAmount(amount decimal.Decimal) LogFields {
	f[FieldAmount] = amount.StringFixed(2)
	return f
}

func (f LogFields) WithAction(action string) LogFields {
	f[FieldAction] = action
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	if query != "" {
		f[FieldQuery] = query
	}
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}
