package audithook

// Action constants for audit events.
const (
	// Stream actions
	ActionStreamCreated   = "stream.created"
	ActionStreamToppedUp  = "stream.topped_up"
	ActionTokensWithdrawn = "stream.withdrawn"
	ActionStreamCancelled = "stream.cancelled"

	// Settlement actions
	ActionSettlementFailed = "settlement.failed"

	// Governance actions
	ActionEmergencyStopEnabled  = "emergency_stop.enabled"
	ActionEmergencyStopDisabled = "emergency_stop.disabled"
)

// Resource constants for audit events.
const (
	ResourceStream     = "stream"
	ResourceSettlement = "settlement"
	ResourceGovernance = "governance"
)

// Category constants for audit events.
const (
	CategoryStream     = "stream"
	CategoryPayment    = "payment"
	CategoryGovernance = "governance"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomePartial = "partial"
)
