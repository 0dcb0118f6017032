// Package mqtt defines the publishing side of the MQTT integration used to
// announce finished optimisation runs.
package mqtt

// Publisher sends payloads to an MQTT broker.
type Publisher interface {
	// Publish sends payload to topic and waits for the broker to accept it.
	Publish(topic string, payload []byte) error
	Disconnect()
}
