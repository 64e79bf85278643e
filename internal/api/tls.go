package api

import (
	"crypto/tls"
	"fmt"
)

// serverTLS is the listener TLS configuration. nil serves plain HTTP.
var serverTLS *tls.Config

// InitTLS loads the certificate pair the API serves with. Empty paths
// disable TLS. Setting only one of the two, or an unreadable pair, is an
// error so a misconfigured daemon does not silently fall back to HTTP.
func InitTLS(certFile, keyFile string) error {
	serverTLS = nil
	switch {
	case certFile == "" && keyFile == "":
		return nil
	case certFile == "" || keyFile == "":
		return fmt.Errorf("tls: both cert and key are required")
	}

	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return fmt.Errorf("tls: failed to load %s: %w", certFile, err)
	}
	serverTLS = &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
	return nil
}

// IsTLSEnabled reports whether the API serves HTTPS.
func IsTLSEnabled() bool {
	return serverTLS != nil
}
