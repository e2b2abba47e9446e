// Package sandbox is the worker side of the execution bridge: it reads
// requests, runs their code in a Runtime, and writes one response per
// request.
//
// Runtimes capture stdout and stderr as plain text. A fault in the code under
// test (compile error, panic, non-zero exit, timeout) ends up in the stderr
// text; it is never reported as a transport failure.
package sandbox
