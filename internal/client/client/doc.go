// Package client contains the client-side building blocks for talking to the
// PostKeeper server and opening the local store.
//
// # Overview
//
// The package provides:
//  1. A transport-agnostic API contract (see the Client interface):
//     Register/GetSalt/Login, Ping, GetUploadURL, SubmitPost and FetchStatus.
//  2. A concrete gRPC implementation (see GRPCClient) that manages a
//     connection, injects an access token via an interceptor, transparently
//     refreshes expired tokens, and maps gRPC status codes to sentinel errors.
//     GRPCClient also satisfies reconcile.StatusSource.
//  3. Local persistence bootstrap utilities (InitDatabase, RunMigrations,
//     NewRepositories) wiring an SQLite database and applying embedded goose
//     migrations.
//
// # Error Handling
//
// Common conditions are exposed as sentinel errors that callers can match with
// errors.Is: ErrUnavailable, ErrUnauthorized, ErrLocalDataNotAvailable.
//
// Concurrency & Contexts
//
// GRPCClient is safe for concurrent use. All operations accept
// context.Context and honor cancellation/timeouts.
package client
