// Package transcribe converts captured audio into finalized text. It defines
// the Backend contract shared by the dispatch loop and two implementations: a
// windowed backend that accumulates samples and submits whole windows to an
// HTTP recognizer, and a streaming backend that holds a persistent websocket
// session and collects finalized results as they arrive.
package transcribe
