// Package component manages the lifecycle of long-lived resources such as an
// opened sink or the telemetry exporters: start in registration order, stop
// in reverse, report health.
package component
