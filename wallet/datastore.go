package wallet

import "errors"

var ErrRequestNotFound = errors.New("payment request not found")

// Datastore is local persistence for the client. The daemon wallet file
// stays the source of truth; this only records what this client did.
type Datastore interface {
	Requests() Requests
	Close() error
}

// Requests journals payment requests created through this client.
type Requests interface {
	// Put inserts or replaces the request keyed by address.
	Put(req *PaymentRequest) error

	// Get returns ErrRequestNotFound for an unknown address.
	Get(address string) (*PaymentRequest, error)

	// GetAll returns all requests, newest first.
	GetAll() ([]*PaymentRequest, error)

	// UpdateStatus records the latest known status of a request.
	UpdateStatus(address string, status PaymentStatus, statusString string) error

	// UpdateMetadata replaces the local metadata of a request.
	UpdateMetadata(address string, metadata map[string]string) error

	Delete(address string) error
}
