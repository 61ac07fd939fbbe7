// Package sftptest runs an in-memory SFTP server for tests.
package sftptest

import (
	"io"
	"testing"

	"github.com/pkg/sftp"
)

type pipeConn struct {
	io.Reader
	io.WriteCloser
}

// NewClient starts a request server backed by sftp.InMemHandler and
// returns a client connected to it over in-process pipes. Both ends are
// closed when the test finishes.
func NewClient(t testing.TB) *sftp.Client {
	t.Helper()

	clientRead, serverWrite := io.Pipe()
	serverRead, clientWrite := io.Pipe()

	server := sftp.NewRequestServer(pipeConn{serverRead, serverWrite}, sftp.InMemHandler())
	go func() {
		_ = server.Serve()
	}()

	client, err := sftp.NewClientPipe(clientRead, clientWrite)
	if err != nil {
		server.Close()
		t.Fatalf("Failed to start in-memory sftp client: %v", err)
	}

	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client
}
