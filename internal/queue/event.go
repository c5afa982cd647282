// Package queue publishes staged domain events to RabbitMQ on behalf of the
// outbox dispatcher.  Messages go to a direct exchange with a fixed routing
// key per event type; the broker message id equals the outbox row id so
// downstream consumers can deduplicate redeliveries.
package queue

// ExchangeName is the direct exchange all reservation-core events go to.
const ExchangeName = "hive.events"

// RoutingKeyEmail is the routing key of email notification events consumed
// by the identity service's mailer.
const RoutingKeyEmail = "identity.email"
