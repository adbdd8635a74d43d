package transcribe

// Backend is the transcription engine contract. Implementations buffer
// incoming audio internally with bounded storage and surface finalized text
// on demand.
//
// AcceptFrame must not block the caller beyond brief internal locking and
// must never drop the newest audio silently. PollText returns text finalized
// since the last call, or empty when nothing is ready; it is called on every
// dispatch tick and must return quickly. Start and Stop are idempotent, and
// Stop releases background resources even if the backend never fully started.
type Backend interface {
	Start() error
	Stop() error
	AcceptFrame(samples []float32)
	PollText() string
}
