// Package ipc serves the execution bridge over a websocket and ships the
// matching client.
//
// The server accepts newline-free JSON messages shaped like bridge.Request on
// /run and answers each with a bridge.Response carrying the same ID. Replies
// may arrive out of order when a client pipelines requests. The client side
// implements bridge.ExecContext, so a Bridge can run cells on a remote
// `codepencil serve` exactly as it runs them on a local worker.
package ipc
