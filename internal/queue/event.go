// Package queue defines message payloads exchanged over the message broker.
package queue

// MailQueueName is the durable queue carrying outbound mail.
const MailQueueName = "mail.outbound"

// MailRequested is published whenever the application wants an email
// delivered.  It is self-contained so the consumer never needs to query the
// primary database.
type MailRequested struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}
