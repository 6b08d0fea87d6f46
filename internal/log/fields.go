package log

// Common field names for structured logging
const (
	FieldComponent = "component"
	FieldRequestID = "request_id"
	FieldError     = "error"
	FieldOperation = "operation"
	FieldWalletID  = "wallet_id"
	FieldPage      = "page"
	FieldLimit     = "limit"
	FieldCount     = "count"
	FieldCacheKey  = "cache_key"
	FieldCacheAge  = "cache_age"
	FieldStatus    = "status"
	FieldEndpoint  = "endpoint"
	FieldDuration  = "duration_ms"
	FieldAttempt   = "attempt"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentAPI       = "api"
	ComponentGateway   = "gateway"
	ComponentOffline   = "offline_cache"
	ComponentNormalize = "normalize"
	ComponentStorage   = "storage"
	ComponentBackend   = "backend"
	ComponentMock      = "mock_server"
)

// Operations defines standard operation names
const (
	OpFetch    = "fetch"
	OpSave     = "save"
	OpRead     = "read"
	OpClear    = "clear"
	OpSeed     = "seed"
	OpLogin    = "login"
	OpLogout   = "logout"
	OpFallback = "fallback"
	OpStartup  = "startup"
	OpShutdown = "shutdown"
)
