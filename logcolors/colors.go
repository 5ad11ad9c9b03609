package logcolors

// ANSI color codes for log prefixes
const (
	Reset  = "\033[0m"
	Green  = "\033[32m"
	Blue   = "\033[34m"
	Purple = "\033[35m"
	Cyan   = "\033[36m"
	Yellow = "\033[33m"
	Red    = "\033[31m"
)

// Cache-related log prefixes
const (
	LogCacheInit     = Blue + "[Cache:Init]" + Reset
	LogCache         = Blue + "[Cache]" + Reset
	LogCacheBackup   = Blue + "[Cache:Backup]" + Reset
	LogCacheClear    = Blue + "[Cache:Clear]" + Reset
	LogCacheBackups  = Blue + "[Cache:Backups]" + Reset
	LogCacheRestore  = Blue + "[Cache:Restore]" + Reset
	LogCacheMeta     = Green + "[Cache:Meta]" + Reset
	LogCacheNegative = Cyan + "[Cache:Negative]" + Reset
	LogCacheSweep    = Cyan + "[Cache:Sweep]" + Reset
)

// Upstream (Spotify) log prefixes
const (
	LogToken    = Yellow + "[Token]" + Reset
	LogHashes   = Yellow + "[Hashes]" + Reset
	LogGateway  = Green + "[Gateway]" + Reset
	LogUpstream = Green + "[Upstream]" + Reset
)

// Middleware log prefixes
const (
	LogRateLimit = Purple + "[RateLimit]" + Reset
	LogStats     = Purple + "[Stats]" + Reset
)

// CircuitBreakerPrefix returns a colored circuit breaker prefix with the given name
func CircuitBreakerPrefix(name string) string {
	return Purple + "[CircuitBreaker:" + name + "]" + Reset
}
