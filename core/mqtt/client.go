package mqtt

// Publisher sends one payload to a broker topic.
type Publisher interface {
	Publish(topic string, retained bool, payload []byte) error
}
