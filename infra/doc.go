// Package infra contains technical adapters: table readers, MQTT clients,
// metrics sinks, loggers and the Sentry monitor. These packages should
// depend only on the interfaces defined in the core packages.
package infra
