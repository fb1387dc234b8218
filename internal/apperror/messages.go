package apperror

// messages maps error codes to human-readable messages
var messages = map[Code]string{
	// General
	CodeRequiredField:   "Required field is missing",
	CodeInvalidInput:    "Invalid input provided",
	CodeInvalidState:    "Invalid state for this operation",
	CodeNotFound:        "Resource not found",
	CodeValidationError: "Validation error",

	CodeConfigurationError: "Configuration error",

	CodeExternalServiceError: "External service error",
	CodeServiceTimeout:       "Service request timeout",
	CodeServiceUnavailable:   "Service temporarily unavailable",
	CodeRateLimitExceeded:    "Rate limit exceeded",

	CodeInternalError: "Internal error",
	CodeUnknownError:  "An unknown error occurred",

	// Chain access
	CodeChainConnectionFailed: "Failed to connect to chain node",
	CodeChainRPCError:         "Chain RPC call failed",
	CodeContractCallFailed:    "Smart contract call failed",
	CodeGasEstimationFailed:   "Gas estimation failed",

	// Venues
	CodeQuoteUnavailable:   "Venue could not produce a quote",
	CodeInvalidQuote:       "Invalid quote data",
	CodeStaleQuote:         "Quote is too old to act on",
	CodePoolNotFound:       "No pool found for token pair",
	CodeVenueNotRegistered: "Venue is not registered",
	CodeSwapRejected:       "Swap submission rejected",
	CodeSwapTimeout:        "Swap confirmation timed out",

	// Scanner
	CodeInsufficientVenues:    "Fewer than two venues produced usable quotes",
	CodeSpreadComputation:     "Spread computation error",
	CodeExcessivePriceImpact:  "Price impact exceeds configured maximum",
	CodeInsufficientLiquidity: "Insufficient liquidity for trade size",
	CodeInvalidTradeSize:      "Invalid trade size",

	// Execution
	CodePreconditionFailed:    "Execution precondition failed",
	CodeInsufficientBalance:   "Insufficient balance",
	CodeInsufficientAllowance: "Insufficient token allowance",
	CodeBuyLegFailed:          "Buy leg failed, no position held",
	CodeSellLegFailed:         "Sell leg failed",
	CodePartialFill:           "Buy leg confirmed but sell leg failed, position held",
	CodeExecutionLocked:       "Execution slot unavailable",

	// Bot loop
	CodeHealthCheckFailed:  "Health check failed, scanning suspended",
	CodeBotSuspended:       "Bot is suspended pending a passing health check",
	CodeNotificationFailed: "Notification delivery failed",

	// Circuit breaker
	CodeCircuitOpen: "Circuit breaker is open",
}
