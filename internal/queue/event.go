// Package queue carries booking domain events over RabbitMQ: a publisher
// invoked after a reservation commits, and a background consumer that turns
// the events into an audit log.
package queue

// reservationQueueName is the durable queue both sides agree on.
const reservationQueueName = "reservation.confirmed"

// ReservationConfirmedEvent is emitted after a reservation row has been
// committed.  It carries enough to audit the booking without another store
// lookup.
type ReservationConfirmedEvent struct {
	ReservationID uint64 `json:"reservation_id"`
	UserID        uint64 `json:"user_id"`
	SeanceID      uint64 `json:"seance_id"`
	Seats         int    `json:"seats"`
	ConfirmedAt   string `json:"confirmed_at"` // RFC 3339, UTC
}
