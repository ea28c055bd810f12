package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldPeriod      = "period"
	FieldFile        = "file"
	FieldRow         = "row"
	FieldReason      = "reason"
	FieldCount       = "count"
	FieldDebtID      = "debt_id"
	FieldInvestment  = "investment_id"
	FieldAmount      = "amount"
	FieldTransaction = "transaction_id"
	FieldKey         = "key"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentStatement = "statement"
	ComponentLedger    = "ledger"
	ComponentPortfolio = "portfolio"
	ComponentStorage   = "storage"
	ComponentState     = "state"
	ComponentAMQP      = "amqp"
	ComponentEvents    = "events"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentBackend   = "backend"
	ComponentService   = "service"
)

// Operations defines standard operation names
const (
	OpCreate     = "create"
	OpUpdate     = "update"
	OpDelete     = "delete"
	OpImport     = "import"
	OpApprove    = "approve"
	OpPay        = "pay"
	OpCapitalize = "capitalize"
	OpLoad       = "load"
	OpSave       = "save"
	OpShutdown   = "shutdown"
	OpStartup    = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithDebt adds the debt id and the amount involved.
func (f LogFields) WithDebt(id string, amount any) LogFields {
	f[FieldDebtID] = id
	f[FieldAmount] = amount
	return f
}

func (f LogFields) WithPeriod(period string) LogFields {
	f[FieldPeriod] = period
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
