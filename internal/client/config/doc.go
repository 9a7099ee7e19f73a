// Package config loads runtime configuration for the PostKeeper CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file selected via flags: -c or -config.
//  3. Command-line flags, which override earlier values.
//
// Supported flags
//
//	-a string   address:port of the backend gRPC endpoint
//	-i int      online status check interval (seconds)
//	-d string   local database path
//	-g duration stale grace, e.g. 15m
//	-b int      reconcile batch size
//	-l string   log level
//
// # JSON schema
//
// Intervals use timex.Duration, so values can be either strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "online_check_interval": "3s",
//	  "db_path": "/home/me/.postkeeper/client.db",
//	  "stale_grace": "15m",
//	  "batch_size": 50,
//	  "log_level": "info"
//	}
package config
