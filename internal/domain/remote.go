package domain

// RemoteRecord is the acknowledgement returned when a quote is posted to the remote resource.
// The synchronizer never reads it; it is kept for logging.
type RemoteRecord struct {
	ID     int
	Title  string
	Body   string
	UserID int
}
