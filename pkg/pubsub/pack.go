package pubsub

// Pack is a single message on the wire: an ordering key and an opaque
// payload.
type Pack struct {
	Key []byte
	Msg []byte
}
