package apperror

// Code represents a unique error code for the application
type Code string

// General error codes
const (
	CodeRequiredField   Code = "REQUIRED_FIELD"
	CodeInvalidInput    Code = "INVALID_INPUT"
	CodeInvalidState    Code = "INVALID_STATE"
	CodeNotFound        Code = "NOT_FOUND"
	CodeValidationError Code = "VALIDATION_ERROR"

	CodeConfigurationError Code = "CONFIGURATION_ERROR"

	CodeExternalServiceError Code = "EXTERNAL_SERVICE_ERROR"
	CodeServiceTimeout       Code = "SERVICE_TIMEOUT"
	CodeServiceUnavailable   Code = "SERVICE_UNAVAILABLE"
	CodeRateLimitExceeded    Code = "RATE_LIMIT_EXCEEDED"

	CodeInternalError Code = "INTERNAL_ERROR"
	CodeUnknownError  Code = "UNKNOWN_ERROR"
)

// Chain access error codes
const (
	CodeChainConnectionFailed Code = "CHAIN_CONNECTION_FAILED"
	CodeChainRPCError         Code = "CHAIN_RPC_ERROR"
	CodeContractCallFailed    Code = "CONTRACT_CALL_FAILED"
	CodeGasEstimationFailed   Code = "GAS_ESTIMATION_FAILED"
)

// Venue error codes
const (
	CodeQuoteUnavailable   Code = "QUOTE_UNAVAILABLE"
	CodeInvalidQuote       Code = "INVALID_QUOTE"
	CodeStaleQuote         Code = "STALE_QUOTE"
	CodePoolNotFound       Code = "POOL_NOT_FOUND"
	CodeVenueNotRegistered Code = "VENUE_NOT_REGISTERED"
	CodeSwapRejected       Code = "SWAP_REJECTED"
	CodeSwapTimeout        Code = "SWAP_TIMEOUT"
)

// Scanner error codes
const (
	CodeInsufficientVenues    Code = "INSUFFICIENT_VENUES"
	CodeSpreadComputation     Code = "SPREAD_COMPUTATION_ERROR"
	CodeExcessivePriceImpact  Code = "EXCESSIVE_PRICE_IMPACT"
	CodeInsufficientLiquidity Code = "INSUFFICIENT_LIQUIDITY"
	CodeInvalidTradeSize      Code = "INVALID_TRADE_SIZE"
)

// Execution error codes
const (
	CodePreconditionFailed    Code = "PRECONDITION_FAILED"
	CodeInsufficientBalance   Code = "INSUFFICIENT_BALANCE"
	CodeInsufficientAllowance Code = "INSUFFICIENT_ALLOWANCE"
	CodeBuyLegFailed          Code = "BUY_LEG_FAILED"
	CodeSellLegFailed         Code = "SELL_LEG_FAILED"
	CodePartialFill           Code = "PARTIAL_FILL"
	CodeExecutionLocked       Code = "EXECUTION_LOCKED"
)

// Bot loop error codes
const (
	CodeHealthCheckFailed  Code = "HEALTH_CHECK_FAILED"
	CodeBotSuspended       Code = "BOT_SUSPENDED"
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
)

// Circuit breaker error codes
const (
	CodeCircuitOpen Code = "CIRCUIT_OPEN"
)
