// Package config provides configuration loading, merging, and validation
// facilities for the sync engine.
//
// Configuration is assembled from multiple sources in the following priority
// order (later sources override earlier non-zero fields):
//  1. Built-in defaults
//  2. Environment variables
//  3. JSON config file (path taken from the SYNC_CONFIG variable or set by
//     the embedding application)
//
// The main entry point is [GetConfig]. Embedding applications that manage
// configuration themselves can construct a [Config] literal and call
// [Config.Validate] directly.
package config
