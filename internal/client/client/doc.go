// Package client talks to the chat server.
//
// GRPCClient implements both sides the chat input needs from the outside
// world: uploads.Transport (files go to presigned object-storage URLs, their
// records are kept by the server) and chatinput.Sink (submitted values are
// stored by the server). It opens a session on first use, attaches the
// session token to every call and reopens the session when the token expires.
// gRPC status codes are mapped to ErrUnavailable and ErrUnauthorized.
//
// InitDatabase and RunMigrations bootstrap the local SQLite history database.
package client
