package mqtt

import (
	paho "github.com/eclipse/paho.mqtt.golang"
)

// Future represents an operation handed off to the transport
type Future struct {
	err   error
	token paho.Token
}

// Wait blocks until the transport resolves the operation
func (f *Future) Wait() error {
	if f.token != nil {
		f.token.Wait()
		f.err = f.token.Error()
		f.token = nil
	}
	return f.err
}

func immediateFuture(err error) *Future {
	return &Future{err: err}
}
