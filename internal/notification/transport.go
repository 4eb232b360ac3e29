package notification

import "context"

//go:generate mockgen -source=transport.go -destination=mocks/transport_mocks.go -package=mocks Transport

// OutboundMessage is one message to one recipient. The sender address is
// owned by the transport.
type OutboundMessage struct {
	To   string
	Body string
}

// Receipt is the transport's answer when the call completed.
type Receipt struct {
	Accepted   bool
	StatusCode int
	MessageID  string
}

// Transport delivers a single message. A returned error means the call could
// not complete; a completed call that was refused returns Accepted=false.
type Transport interface {
	Send(ctx context.Context, msg OutboundMessage) (Receipt, error)
}

// Classify maps a transport result onto a delivery status.
func Classify(receipt Receipt, err error) DeliveryStatus {
	switch {
	case err != nil:
		return StatusError
	case receipt.Accepted:
		return StatusSent
	default:
		return StatusFailed
	}
}
