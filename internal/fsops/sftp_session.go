package fsops

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ConnectOptions describes one password-authenticated SFTP connection
type ConnectOptions struct {
	Address        string // host:port
	Username       string
	Password       string
	KnownHostsFile string // Empty accepts any host key
	Timeout        time.Duration
}

// SFTPSession implements Session on top of github.com/pkg/sftp
type SFTPSession struct {
	client *sftp.Client
	conn   *ssh.Client
}

// Dial opens an SSH connection with password authentication and starts
// the sftp subsystem on it. Every failure wraps ErrConnection.
func Dial(ctx context.Context, opts ConnectOptions) (*SFTPSession, error) {
	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if opts.KnownHostsFile != "" {
		cb, err := knownhosts.New(opts.KnownHostsFile)
		if err != nil {
			return nil, fmt.Errorf("%w: load known_hosts %s: %v", ErrConnection, opts.KnownHostsFile, err)
		}
		hostKeyCallback = cb
	}

	password := opts.Password
	sshConfig := &ssh.ClientConfig{
		User: opts.Username,
		Auth: []ssh.AuthMethod{
			ssh.Password(password),
			// Servers that only offer keyboard-interactive still get the password
			ssh.KeyboardInteractive(func(_, _ string, questions []string, _ []bool) ([]string, error) {
				answers := make([]string, len(questions))
				for i := range answers {
					answers[i] = password
				}
				return answers, nil
			}),
		},
		HostKeyCallback: hostKeyCallback,
		Timeout:         opts.Timeout,
	}

	dialer := net.Dialer{Timeout: opts.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", opts.Address)
	if err != nil {
		return nil, fmt.Errorf("%w: dial %s: %v", ErrConnection, opts.Address, err)
	}

	if opts.Timeout > 0 {
		_ = netConn.SetDeadline(time.Now().Add(opts.Timeout))
	}
	c, chans, reqs, err := ssh.NewClientConn(netConn, opts.Address, sshConfig)
	if err != nil {
		netConn.Close()
		return nil, fmt.Errorf("%w: ssh handshake with %s: %v", ErrConnection, opts.Address, err)
	}
	// Handshake deadline must not limit the transfer itself
	_ = netConn.SetDeadline(time.Time{})

	conn := ssh.NewClient(c, chans, reqs)
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("%w: start sftp subsystem: %v", ErrConnection, err)
	}

	return &SFTPSession{client: client, conn: conn}, nil
}

// NewSFTPSession wraps an already established sftp client
func NewSFTPSession(client *sftp.Client) *SFTPSession {
	return &SFTPSession{client: client}
}

func (s *SFTPSession) ListEntries(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	infos, err := s.client.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(infos))
	for _, info := range infos {
		names = append(names, info.Name())
	}
	sort.Strings(names)
	return names, nil
}

// IsDir follows symlinks, so a link to a directory is traversed
func (s *SFTPSession) IsDir(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	info, err := s.client.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}

func (s *SFTPSession) RemoveFile(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Remove(path)
}

func (s *SFTPSession) RemoveDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.RemoveDirectory(path)
}

func (s *SFTPSession) CreateDirectory(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.client.Mkdir(path)
}

// UploadFile copies localPath to remotePath, truncating any existing file
func (s *SFTPSession) UploadFile(ctx context.Context, localPath, remotePath string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	src, err := os.Open(localPath)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := s.client.Create(remotePath)
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(dst, src)
	if closeErr := dst.Close(); err == nil {
		err = closeErr
	}
	return n, err
}

func (s *SFTPSession) Close() error {
	err := s.client.Close()
	if s.conn != nil {
		if connErr := s.conn.Close(); err == nil {
			err = connErr
		}
	}
	return err
}
