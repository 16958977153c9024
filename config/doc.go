// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

// Package config loads and validates the runtime configuration from the
// environment, with optional .env support for local development.
package config
