//go:build windows

package server

import "os"

func shutdownSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}

func reloadSignals() []os.Signal {
	return nil
}
