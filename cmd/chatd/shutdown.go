package main

import (
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// signalHandler follows the teacher's server/shutdown.go signalHandler
// exactly: a single channel fed by any of SIGINT/SIGTERM/SIGHUP.
func signalHandler() <-chan bool {
	stop := make(chan bool)

	signchan := make(chan os.Signal, 1)
	signal.Notify(signchan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	go func() {
		sig := <-signchan
		log.Printf("signal received: '%s', shutting down", sig)
		stop <- true
	}()

	return stop
}

// listenAndServe runs an http.Server against a tcpGracefulListener until
// stop fires, then stops accepting new connections and waits for Serve to
// return before returning itself - grounded on the teacher's listenAndServe,
// generalized to call a caller-supplied onShutdown hook (this server's
// analogue of the teacher's session store / hub shutdown calls) instead of
// package-level globals.
func listenAndServe(addr string, handler http.Handler, stop <-chan bool, onShutdown func()) error {
	shuttingDown := false
	httpdone := make(chan bool)

	server := &http.Server{Addr: addr, Handler: handler}
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return err
	}

	go func() {
		err = server.Serve(tcpGracefulListener{ln.(*net.TCPListener)})
		if shuttingDown {
			err = nil
			log.Printf("http server stopped")
		}
		httpdone <- true
	}()

loop:
	for {
		select {
		case <-stop:
			shuttingDown = true
			ln.Close()
			<-httpdone
			onShutdown()
			break loop
		case <-httpdone:
			break loop
		}
	}
	return err
}

// tcpGracefulListener is copied from the teacher's server/shutdown.go, in
// turn a copy of net/http's tcpKeepAliveListener kept local to regain access
// to TCPListener.Close().
type tcpGracefulListener struct {
	*net.TCPListener
}

func (ln tcpGracefulListener) Accept() (c net.Conn, err error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
