// Command codepencil manages handwritten code notebooks from the terminal:
// it saves and loads projects as directories or zip archives, runs cell code
// in an isolated worker, serves that worker over a websocket, and exports
// notebooks to PDF or PNG.
package main
