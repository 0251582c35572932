package domain

// RequestClass tags every outgoing request with the caching policy family it
// belongs to. The set is closed.
type RequestClass string

const (
	ClassNavigation  RequestClass = "navigation"
	ClassStaticShell RequestClass = "static_shell"
	ClassImage       RequestClass = "image"
	ClassAPIData     RequestClass = "api_data"
	ClassOther       RequestClass = "other"
)

// RequestClasses lists every class in dispatch priority order.
var RequestClasses = []RequestClass{
	ClassNavigation,
	ClassStaticShell,
	ClassImage,
	ClassAPIData,
	ClassOther,
}

// ResponseSource records where a served response came from.
type ResponseSource string

const (
	SourceNetwork ResponseSource = "network"
	SourceCache   ResponseSource = "cache"
	SourceOffline ResponseSource = "offline" // synthesized locally
)

// SourceHeader is set on every response served through the gateway.
const SourceHeader = "X-Outpost-Source"
