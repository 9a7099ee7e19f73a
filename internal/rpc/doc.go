// Package rpc is the wire contract between the PostKeeper CLI and server.
//
// Messages are plain Go structs carried over gRPC by a JSON codec registered
// under the "json" content subtype. The package provides the service
// descriptor used by the server (RegisterPostKeeperServiceServer) and a
// client stub (NewPostKeeperServiceClient) that selects the codec on every
// call.
//
// Method names are exported as constants so interceptors can tell
// authenticated methods apart from public ones.
package rpc
