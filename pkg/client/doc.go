/*
Package client wraps the Beacon HTTP API for CLI and agent usage.

One method per API operation, JSON in and out, sentinel-free: server-side
failures come back as plain errors carrying the server's message, and the
HTTP status code is exposed where the caller's control flow depends on it
(the agent re-registers on a 404 heartbeat).
*/
package client
