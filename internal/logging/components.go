package logging

// Component constants for structured logging
const (
	ComponentStartup  = "startup"
	ComponentHTTP     = "http"
	ComponentRenderer = "renderer"
	ComponentPages    = "pages"
	ComponentScripts  = "scripts"
	ComponentLimiter  = "rate-limiter"
	ComponentCLI      = "cli"
)
