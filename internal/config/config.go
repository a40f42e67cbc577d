package config

import (
	"io/fs"
	"time"
)

// -----------------------------------------------------------------------------
// Build Information
// -----------------------------------------------------------------------------

// Build variables are injected via -ldflags.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// UserAgent identifies the HTTP client.
var UserAgent = "Go-Huddle/" + Version

// -----------------------------------------------------------------------------
// Application Constants
// -----------------------------------------------------------------------------

const (
	AppName         = "Go Huddle"
	AppID           = "com.github.tartampluch.go-huddle"
	KeyringService  = "com.github.tartampluch.go-huddle"
	LogFileName     = "app.log"
	SettingsFile    = "settings.yaml"
	EnvFileName     = ".env"
	TempSettingsPat = ".huddle-settings-*.tmp"
)

// -----------------------------------------------------------------------------
// Exit Codes
// -----------------------------------------------------------------------------

const (
	ExitCodeSuccess = 0
	ExitCodeError   = 1
)

// -----------------------------------------------------------------------------
// System & File Permissions
// -----------------------------------------------------------------------------

const (
	// FilePermUserRW represents -rw------- (Read/Write for owner only).
	// Used for logs and the settings file.
	FilePermUserRW fs.FileMode = 0600

	// DirPermUserRWX represents drwx------ (Read/Write/Exec for owner only).
	DirPermUserRWX fs.FileMode = 0700
)

// -----------------------------------------------------------------------------
// CLI Flags & Descriptions
// -----------------------------------------------------------------------------

const (
	FlagVersion      = "version"
	FlagDebug        = "debug"
	FlagConfig       = "config"
	FlagSetToken     = "set-token"
	FlagOnce         = "once"
	FlagDescVersion  = "Show application version and exit"
	FlagDescDebug    = "Enable debug logging to stdout"
	FlagDescConfig   = "Path to the settings file (default: user config dir)"
	FlagDescSetToken = "Store the API token in the OS keyring and exit"
	FlagDescOnce     = "Run a single sync, print the calendar state and exit"
	MsgVersionOutput = "%s version %s (%s/%s)\n"
)

// -----------------------------------------------------------------------------
// Environment Overrides (.env / process environment)
// -----------------------------------------------------------------------------

const (
	EnvAPIURL   = "HUDDLE_API_URL"
	EnvAPIUser  = "HUDDLE_API_USER"
	EnvAPIToken = "HUDDLE_API_TOKEN"
	EnvEventID  = "HUDDLE_EVENT_ID"
	EnvPort     = "HUDDLE_PORT"
	EnvLanguage = "HUDDLE_LANGUAGE"
)

// SupportedLanguages defines the list of available notice languages (ISO 639-1).
var SupportedLanguages = []string{"en", "fr"}

// -----------------------------------------------------------------------------
// Translation Keys (I18n)
// -----------------------------------------------------------------------------

const (
	TKeyNoticeMaxDays     = "notice_max_days"
	TKeyNoticeOutOfWindow = "notice_out_of_window"
	TKeyNoticeInactive    = "notice_not_selecting"
	TKeyNoticeAdded       = "notice_day_added"
	TKeyNoticeRemoved     = "notice_day_removed"
	TKeyNoticeComplete    = "notice_selection_complete"
	TKeyNoticeConfirmed   = "notice_event_confirmed"
	TKeyEvtSummary        = "event_summary"      // Requires Title
	TKeyEvtSummaryPart    = "event_summary_part" // Requires Title, Part, Parts
	TKeyAlarmDescription  = "alarm_description"  // Requires Title

	// Status labels for per-day detail views
	TKeyStatusAvailable = "status_available"
	TKeyStatusNotAvail  = "status_not_available"
	TKeyStatusTentative = "status_tentative"
)

// -----------------------------------------------------------------------------
// Default Values & Business Logic
// -----------------------------------------------------------------------------

const (
	DefaultPort        = "18090"
	DefaultBindAddr    = "127.0.0.1"
	DefaultLanguage    = "en"
	DefaultRefreshCron = "*/5 * * * *"
	DefaultWeekStart   = "monday"
	DefaultSuggestions = 3
	MaxSuggestions     = 20
	MaxSyncAttempts    = 3
	WeekStartMonday    = "monday"
	WeekStartSunday    = "sunday"
	DefaultEventTitle  = "Event"
	DefaultAllowOrigin = "http://localhost:3000"
)

// Availability status wire values, as sent by the REST API.
const (
	StatusWireAvailable    = "available"
	StatusWireNotAvailable = "not available"
	StatusWireTentative    = "tentative"
)

// Tally colors (R, G, B).
var (
	ColorAvailable    = [3]uint8{165, 220, 165}
	ColorNotAvailable = [3]uint8{220, 133, 133}
	ColorTentative    = [3]uint8{226, 202, 148}
)

// Calendar day CSS classes exposed to the rendering layer.
const (
	ClassSelected   = "selected"
	ClassDisabled   = "disabled"
	ClassOutOfRange = "out-of-range"
	ClassOutside    = "outside-month"
	ClassToday      = "today"
)

// -----------------------------------------------------------------------------
// Standards: iCalendar & vCard
// -----------------------------------------------------------------------------

const (
	// iCal Properties
	ICalVersion   = "2.0"
	ICalProdid    = "-//Go Huddle//Planner//EN"
	ICalCalName   = "Huddle"
	ICalMethod    = "PUBLISH"
	ICalScale     = "GREGORIAN"
	ICalComponent = "VALARM"
	ICalAction    = "DISPLAY"
	ICalDomain    = "gohuddle"

	PropUID         = "UID"
	PropSummary     = "SUMMARY"
	PropDTStart     = "DTSTART"
	PropDTEnd       = "DTEND"
	PropDTStamp     = "DTSTAMP"
	PropAction      = "ACTION"
	PropDescription = "DESCRIPTION"
	PropTrigger     = "TRIGGER"
	PropVersion     = "VERSION"
	PropProdid      = "PRODID"
	PropXWRCalName  = "X-WR-CALNAME"
	PropCalScale    = "CALSCALE"
	PropMethod      = "METHOD"

	ParamValue         = "VALUE"
	ParamValueDateTime = "DATE-TIME"

	VCardUID      = "UID"
	VCardFN       = "FN"
	VCardNickname = "NICKNAME"
	VCardPhoto    = "PHOTO"
	VCardURNUUID  = "urn:uuid:"

	// ReminderHour is the local hour at which the confirmation reminder fires.
	ReminderHour = 9

	FormatUID = "%s-%s@%s"
)

// -----------------------------------------------------------------------------
// Data Formats & Limits
// -----------------------------------------------------------------------------

const (
	DateFormatKey   = "2006-01-02"
	DateFormatMonth = "2006-01"
	InvalidDateKey  = "Invalid Date"
	DaysPerWeek     = 7

	MaxHTTPResponseSize = 8 * 1024 * 1024 // availability payloads are small JSON documents
	MaxRequestBodySize  = 64 * 1024
)

// -----------------------------------------------------------------------------
// Network & Timeouts
// -----------------------------------------------------------------------------

const (
	HTTPTimeout        = 30 * time.Second
	ShutdownTimeout    = 5 * time.Second
	ServerReadTimeout  = 10 * time.Second
	ServerWriteTimeout = 30 * time.Second
	ServerIdleTimeout  = 60 * time.Second
	RetryAfterSeconds  = "10"
	AddrSeparator      = ":"
	SchemeHTTP         = "http"
	SchemeHTTPS        = "https"
	ChannelBufferSize  = 1

	// APIRequestsPerSecond and APIBurst bound calls to the REST API.
	APIRequestsPerSecond = 5
	APIBurst             = 10
)

// -----------------------------------------------------------------------------
// Remote REST API Routes
// -----------------------------------------------------------------------------

const (
	APIPathEvent        = "/events/%s"
	APIPathAvailability = "/events/%s/availability"
	APIPathConfirm      = "/events/%s/confirm"
	APIPathDayStatus    = "/events/%s/availability/%s"
	BearerPrefix        = "Bearer "
)

// -----------------------------------------------------------------------------
// Local HTTP Routes
// -----------------------------------------------------------------------------

const (
	RouteHealth           = "/health"
	RouteEvent            = "/api/event"
	RouteCalendarICS      = "/calendar.ics"
	RouteCalendar         = "/api/calendar"
	RouteDay              = "/api/days/{date}"
	RouteDayClick         = "/api/days/{date}/click"
	RouteSelection        = "/api/selection"
	RouteSelectionBegin   = "/api/selection/begin"
	RouteSelectionToggle  = "/api/selection/toggle"
	RouteSelectionCancel  = "/api/selection/cancel"
	RouteSelectionConfirm = "/api/selection/confirm"
	RouteSuggestions      = "/api/suggestions"
	RouteVarDate          = "date"
	QueryMonth            = "month"
	QueryLimit            = "limit"
	QueryLang             = "lang"
)

// -----------------------------------------------------------------------------
// HTTP Headers & MIME Types
// -----------------------------------------------------------------------------

const (
	HeaderContentType     = "Content-Type"
	HeaderCacheControl    = "Cache-Control"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderRetryAfter      = "Retry-After"
	HeaderAllow           = "Allow"
	HeaderXContentType    = "X-Content-Type-Options"
	HeaderUserAgent       = "User-Agent"
	HeaderAuthorization   = "Authorization"
	HeaderAccept          = "Accept"
	HeaderRequestID       = "X-Request-ID"
	HeaderIfNoneMatch     = "If-None-Match"
	HeaderIfModifiedSince = "If-Modified-Since"
	HeaderAcceptLanguage  = "Accept-Language"

	MimeTextCalendar    = "text/calendar; charset=utf-8"
	MimeJSON            = "application/json; charset=utf-8"
	MimeTextPlain       = "text/plain; charset=utf-8"
	MimeNoSniff         = "nosniff"
	CacheControlPrivate = "private, no-cache"
	AllowedMethods      = "GET, HEAD"

	// FormatETag expects a string argument.
	FormatETag = `"%s"`
)

// -----------------------------------------------------------------------------
// Error Messages (Technical/Logs)
// -----------------------------------------------------------------------------

const (
	ErrConfigPathEmpty  = "configuration error: settings path is empty"
	ErrConfigNil        = "configuration error: settings are nil"
	ErrConfigRead       = "failed to read settings file"
	ErrConfigParse      = "failed to parse settings file"
	ErrConfigWrite      = "failed to write settings file"
	ErrAPIURLEmpty      = "configuration error: API URL is empty"
	ErrEventIDEmpty     = "configuration error: event id is empty"
	ErrServerStartup    = "server startup failed"
	ErrServerShutdown   = "server shutdown failed"
	ErrPortRequired     = "server port is required"
	ErrInvalidURL       = "invalid URL structure"
	ErrProtocol         = "unsupported protocol scheme (http/https only)"
	ErrRequestBuild     = "failed to create request"
	ErrNetwork          = "network error during request"
	ErrUnexpectedStatus = "server returned unexpected status"
	ErrDecodeResponse   = "failed to decode response"
	ErrEncodeRequest    = "failed to encode request"
	ErrRateLimit        = "rate limiter wait failed"
	ErrMalformedEvent   = "event record is malformed"
	ErrVCardParse       = "failed to parse vCard stream"
	ErrProfilesOpen     = "failed to open profiles file"
	ErrICalEncode       = "failed to encode iCalendar data"
	ErrLogFile          = "failed to open log file"
	ErrCacheDir         = "could not determine user cache dir"
	ErrConfigDir        = "could not determine user config dir"
	ErrCreateDir        = "could not create app cache dir"
	ErrAppFailed        = "application failed unexpectedly"
	ErrWriteResp        = "failed to write response body"
	ErrLocalesAccess    = "failed to access embedded locales"
	ErrLocaleLoad       = "failed to load locale file"
	ErrLocaleFallback   = "no locale file for fallback language"
	ErrTokenStore       = "failed to store API token"
	ErrTokenRead        = "failed to read API token from stdin"
	ErrCronSchedule     = "invalid refresh schedule"
	ErrNotSynced        = "event has not been synced yet"
	ErrOutOfWindow      = "day is outside the event window"
	ErrBadDate          = "invalid date"
	ErrBadMonth         = "invalid month"
	ErrBadBody          = "invalid request body"
	ErrConfirmFailed    = "event confirmation failed"
	ErrDayStatusFailed  = "failed to update day status"
)

// -----------------------------------------------------------------------------
// HTTP Server Responses
// -----------------------------------------------------------------------------

const (
	HTTPMsgHealthy      = "OK"
	HTTPMsgInitializing = "Calendar not confirmed yet, please try again later."
	HTTPMsgMethodNotAll = "Method Not Allowed"
	HTTPMsgNotFound     = "not found"
)

// -----------------------------------------------------------------------------
// Fallbacks & Log Messages
// -----------------------------------------------------------------------------

const (
	FallbackSummary     = "%s"
	FallbackSummaryPart = "%s (%d/%d)"
	FallbackAlarm       = "Reminder: %s"

	MsgSyncStarted    = "Synchronization started"
	MsgSyncSuccess    = "Synchronization completed"
	MsgSyncFailed     = "Synchronization failed"
	MsgSyncStale      = "Discarding availability fetched before a local change"
	MsgWorkerStart    = "Background refresh scheduled"
	MsgWorkerStop     = "Refresh stopping due to context cancellation"
	MsgAppStop        = "Application stopped gracefully"
	MsgAppStarting    = "Starting application"
	MsgServerListen   = "HTTP server listening"
	MsgServerStop     = "Shutting down HTTP server..."
	MsgCacheUpdated   = "Calendar cache updated"
	MsgRequest        = "HTTP request"
	MsgSelectionDrop  = "Selection trimmed after window change"
	MsgToggle         = "Selection toggled"
	MsgConfirmSent    = "Event confirmation sent"
	MsgDayStatusSent  = "Day status updated"
	MsgSkippedCard    = "Skipping malformed vCard"
	MsgSkippedProfile = "Skipping vCard without user id"
	MsgProfilesLoaded = "Profiles loaded"
	MsgLocaleSkip     = "Skipping non-locale file"
	MsgLocaleBadName  = "Skipping malformed locale filename"
	MsgLocaleLoaded   = "Locale loaded successfully"
	MsgTransMissing   = "Missing translation key"
	MsgTokenMissing   = "API token not found in keyring (requests will be anonymous)"
	MsgTokenStored    = "API token stored"
	MsgSettingsCreate = "Settings file created with defaults"
	MsgEnvLoaded      = "Environment overrides loaded"
	MsgLogWarning     = "Warning: %s at %s: %v\n"
	MsgAPIRequest     = "Calling REST API"
	MsgAPIBadStatus   = "REST API returned error status"
	MsgSkippedDateKey = "Skipping availability with invalid date"
	MsgPanic          = "Recovered from handler panic"
)

// -----------------------------------------------------------------------------
// Structured Logging Keys (slog)
// -----------------------------------------------------------------------------

const (
	LogKeyComponent = "component"
	LogKeyError     = "error"
	LogKeyURL       = "url"
	LogKeyMethod    = "method"
	LogKeyPath      = "path"
	LogKeyStatus    = "status_code"
	LogKeyRequestID = "request_id"
	LogKeyFile      = "file"
	LogKeyLang      = "lang"
	LogKeyKey       = "key"
	LogKeyPort      = "port"
	LogKeyEvent     = "event_id"
	LogKeyDate      = "date"
	LogKeyResult    = "result"
	LogKeyCount     = "count"
	LogKeySelected  = "selected"
	LogKeyElapsed   = "duration_ms"
	LogKeyDropped   = "dropped"
	LogKeySchedule  = "schedule"
	LogKeyUser      = "user"
	LogKeyValue     = "value"
	LogKeySizeBytes = "size_bytes"
	LogKeyETag      = "etag"
	LogKeyDates     = "dates"
	LogKeyEntries   = "entries"
	LogKeyAttendees = "attendees"
	LogKeyAttempt   = "attempt"

	// Startup Info Keys
	LogKeyBuild   = "build"
	LogKeyApp     = "app"
	LogKeyVersion = "version"
	LogKeyGoVer   = "go_version"
	LogKeyEnv     = "env"
	LogKeyOS      = "os"
	LogKeyArch    = "arch"
	LogKeyPID     = "pid"
)

// -----------------------------------------------------------------------------
// Log Components
// -----------------------------------------------------------------------------

const (
	CompServer    = "server"
	CompRemote    = "remote"
	CompPlanner   = "planner"
	CompWorker    = "worker"
	CompMain      = "main"
	CompI18n      = "i18n"
	CompDirectory = "directory"
	CompConfig    = "config"
)
