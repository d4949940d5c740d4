package ftpfs

import "time"

// Observer receives a callback for every session opened and every operation
// completed. It is how package metrics counts traffic without ftpfs
// depending on Prometheus. Implementations must be cheap and must not call
// back into the FileSystem.
type Observer interface {
	SessionOpened()
	OperationDone(op string, elapsed time.Duration, bytes int64, err error)
}

type nopObserver struct{}

func (nopObserver) SessionOpened()                                    {}
func (nopObserver) OperationDone(string, time.Duration, int64, error) {}
