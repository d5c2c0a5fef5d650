// Package config loads the jobengine process configuration.
//
// Values come from, in increasing precedence: built-in defaults, an
// optional YAML file, and environment variables prefixed with JOBENGINE_
// where dots become underscores (engine.poll_interval is
// JOBENGINE_ENGINE_POLL_INTERVAL). The result is validated with
// go-playground/validator before it is returned.
package config
