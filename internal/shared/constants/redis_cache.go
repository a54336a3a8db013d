package constants

import (
	"fmt"
	"time"
)

// Redis Cache Configuration
// This file centralizes all Redis keys and TTL values for the Cinetix application.
// Cache-aside keys follow the pattern: cinetix:{module}:{operation}:{identifier}:{params?}
// Seat-engine keys (bitmap, hold, lock, ranking, events) are unprefixed: the
// rebuild path and external consumers depend on that exact layout.

// ================== CACHE TTL DURATIONS ==================

// Static Data (Long TTL: rarely changes)
const (
	TTL_STATIC_LONG   = 24 * time.Hour // 24 hours - for film catalog entries
	TTL_STATIC_MEDIUM = 12 * time.Hour // 12 hours - for hall layouts
	TTL_STATIC_SHORT  = 6 * time.Hour  // 6 hours - for user profiles
)

// Semi-Static Data (Medium TTL: changes occasionally)
const (
	TTL_SEMI_STATIC_MEDIUM = 2 * time.Hour    // 2 hours - for function details
	TTL_SEMI_STATIC_SHORT  = 1 * time.Hour    // 1 hour - for function listings
	TTL_SEMI_STATIC_QUICK  = 15 * time.Minute // 15 minutes - for upcoming functions
)

// Dynamic Data (Short TTL: changes frequently)
const (
	TTL_DYNAMIC_MEDIUM = 10 * time.Minute // 10 minutes - for stats overviews
	TTL_DYNAMIC_SHORT  = 5 * time.Minute  // 5 minutes - for transaction listings
)

// Highly Dynamic (Micro TTL: real-time sensitive)
const (
	TTL_REALTIME_SHORT = 30 * time.Second // 30 seconds - for occupancy counts
)

// ================== REDIS KEY PREFIXES ==================

const (
	CACHE_PREFIX = "cinetix"
)

// ================== SEAT ENGINE KEYS (stable layout) ==================

// Key shapes shared by the seat inventory, the lock manager, the sink bus
// and the rebuild path. Do not reshape without migrating live data.
const (
	KEY_BITMAP_FUNCTION_PREFIX = "bitmap:function:" // + function-id
	KEY_HOLD_PREFIX            = "hold:"            // + function-id + ":" + seat-code
	KEY_LOCK_FUNCTION_PREFIX   = "lock:function:"   // + function-id
	KEY_RANKING_FILMS_SALES    = "ranking:films:sales"
	STREAM_EVENTS_SALES        = "events:sales"
)

// Sink bus consumer groups
const (
	BUS_GROUP_METRICS = "metrics"
	BUS_GROUP_EMAIL   = "email"
)

func BitmapFunctionKey(functionID string) string {
	return KEY_BITMAP_FUNCTION_PREFIX + functionID
}

func HoldKey(functionID, seatCode string) string {
	return KEY_HOLD_PREFIX + functionID + ":" + seatCode
}

// HoldKeyPattern matches every hold key of one function.
func HoldKeyPattern(functionID string) string {
	return KEY_HOLD_PREFIX + functionID + ":*"
}

func LockFunctionKey(functionID string) string {
	return KEY_LOCK_FUNCTION_PREFIX + functionID
}

// ================== FILMS MODULE ==================

// Film Cache Keys
const (
	CACHE_KEY_FILMS_LIST   = CACHE_PREFIX + ":films:list"         // + :page:X:limit:Y
	CACHE_KEY_FILM_DETAIL  = CACHE_PREFIX + ":films:detail:uuid:" // + film-id
	CACHE_KEY_FILM_RANKING = CACHE_PREFIX + ":films:ranking"      // hydrated ranking snapshot
)

// Film Cache TTLs
const (
	TTL_FILMS_LIST   = TTL_SEMI_STATIC_SHORT // 1 hour
	TTL_FILM_DETAIL  = TTL_STATIC_LONG       // 24 hours
	TTL_FILM_RANKING = TTL_DYNAMIC_MEDIUM    // 10 minutes
)

// ================== HALLS MODULE ==================

const (
	CACHE_KEY_HALLS_LIST  = CACHE_PREFIX + ":halls:list"
	CACHE_KEY_HALL_DETAIL = CACHE_PREFIX + ":halls:detail:uuid:" // + hall-id
)

const (
	TTL_HALLS_LIST  = TTL_STATIC_MEDIUM // 12 hours
	TTL_HALL_DETAIL = TTL_STATIC_MEDIUM // 12 hours
)

// ================== FUNCTIONS (SCREENINGS) MODULE ==================

const (
	CACHE_KEY_FUNCTIONS_LIST     = CACHE_PREFIX + ":functions:list"         // + :page:X:limit:Y:state:Z
	CACHE_KEY_FUNCTIONS_UPCOMING = CACHE_PREFIX + ":functions:upcoming"     // + :page:X:limit:Y
	CACHE_KEY_FUNCTION_DETAIL    = CACHE_PREFIX + ":functions:detail:uuid:" // + function-id
)

const (
	TTL_FUNCTIONS_LIST     = TTL_SEMI_STATIC_SHORT  // 1 hour
	TTL_FUNCTIONS_UPCOMING = TTL_SEMI_STATIC_QUICK  // 15 minutes
	TTL_FUNCTION_DETAIL    = TTL_SEMI_STATIC_MEDIUM // 2 hours
)

// ================== AUTH MODULE ==================

const (
	CACHE_KEY_USER_PROFILE = CACHE_PREFIX + ":auth:user:profile:uuid:" // + user-id
	CACHE_KEY_AUTH_SESSION = CACHE_PREFIX + ":auth:session:jti:"       // + refresh-token id
)

const (
	TTL_USER_PROFILE = TTL_STATIC_SHORT // 6 hours
)

// ================== TRANSACTIONS MODULE ==================

const (
	CACHE_KEY_USER_TRANSACTIONS  = CACHE_PREFIX + ":transactions:user:uuid:"   // + user-id:page:X
	CACHE_KEY_TRANSACTION_DETAIL = CACHE_PREFIX + ":transactions:detail:uuid:" // + transaction-id
)

const (
	TTL_USER_TRANSACTIONS  = TTL_DYNAMIC_SHORT  // 5 minutes
	TTL_TRANSACTION_DETAIL = TTL_DYNAMIC_MEDIUM // 10 minutes
)

// ================== STATS MODULE ==================

const (
	CACHE_KEY_STATS_OVERVIEW      = CACHE_PREFIX + ":stats:overview:admin"
	CACHE_KEY_STATS_OCCUPANCY     = CACHE_PREFIX + ":stats:occupancy:function:" // + function-id
	COUNTER_FUNCTION_STATS_PREFIX = CACHE_PREFIX + ":stats:function:"           // hash: tickets, revenue
)

const (
	TTL_STATS_OVERVIEW  = TTL_DYNAMIC_MEDIUM // 10 minutes
	TTL_STATS_OCCUPANCY = TTL_REALTIME_SHORT // 30 seconds
)

// ================== CACHE INVALIDATION PATTERNS ==================

const (
	PATTERN_INVALIDATE_FILMS_ALL     = CACHE_PREFIX + ":films:*"
	PATTERN_INVALIDATE_HALLS_ALL     = CACHE_PREFIX + ":halls:*"
	PATTERN_INVALIDATE_FUNCTIONS_ALL = CACHE_PREFIX + ":functions:*"
	PATTERN_INVALIDATE_USER_ALL      = CACHE_PREFIX + ":*:user:*" // + user-id + *
	PATTERN_INVALIDATE_STATS         = CACHE_PREFIX + ":stats:*"
)

// ================== HELPER FUNCTIONS ==================

func BuildFilmsListKey(page, limit int) string {
	return CACHE_KEY_FILMS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildFilmDetailKey(filmID string) string {
	return CACHE_KEY_FILM_DETAIL + filmID
}

func BuildHallDetailKey(hallID string) string {
	return CACHE_KEY_HALL_DETAIL + hallID
}

func BuildFunctionsListKey(page, limit int, state string) string {
	if state != "" {
		return CACHE_KEY_FUNCTIONS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit) + ":state:" + state
	}
	return CACHE_KEY_FUNCTIONS_LIST + ":page:" + fmt.Sprintf("%d", page) + ":limit:" + fmt.Sprintf("%d", limit)
}

func BuildFunctionDetailKey(functionID string) string {
	return CACHE_KEY_FUNCTION_DETAIL + functionID
}

func BuildUserTransactionsKey(userID string, page int) string {
	return CACHE_KEY_USER_TRANSACTIONS + userID + ":page:" + fmt.Sprintf("%d", page)
}

// BuildUserTransactionsPattern matches every cached history page of a user.
func BuildUserTransactionsPattern(userID string) string {
	return CACHE_KEY_USER_TRANSACTIONS + userID + ":*"
}

func BuildTransactionDetailKey(transactionID string) string {
	return CACHE_KEY_TRANSACTION_DETAIL + transactionID
}

func BuildAuthSessionKey(jti string) string {
	return CACHE_KEY_AUTH_SESSION + jti
}

func BuildOccupancyKey(functionID string) string {
	return CACHE_KEY_STATS_OCCUPANCY + functionID
}

func BuildFunctionStatsKey(functionID string) string {
	return COUNTER_FUNCTION_STATS_PREFIX + functionID
}
