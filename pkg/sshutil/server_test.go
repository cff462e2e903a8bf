package sshutil

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

// cannedResult is what the test server answers for one exec request.
type cannedResult struct {
	stdout string
	stderr string
	code   uint32
}

// testServer is an in-process SSH server accepting one password and
// answering exec requests from a table.
type testServer struct {
	t        *testing.T
	addr     *net.TCPAddr
	signer   ssh.Signer
	password string

	mu       sync.Mutex
	results  map[string]cannedResult
	commands []string
}

func newTestServer(t *testing.T, password string) *testServer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	signer, err := ssh.NewSignerFromKey(priv)
	require.NoError(t, err)

	s := &testServer{
		t:        t,
		signer:   signer,
		password: password,
		results:  make(map[string]cannedResult),
	}

	cfg := &ssh.ServerConfig{
		PasswordCallback: func(c ssh.ConnMetadata, pass []byte) (*ssh.Permissions, error) {
			if string(pass) == s.password {
				return nil, nil
			}
			return nil, fmt.Errorf("password rejected for %s", c.User())
		},
	}
	cfg.AddHostKey(signer)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	s.addr = l.Addr().(*net.TCPAddr)

	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			go s.serve(conn, cfg)
		}
	}()

	return s
}

func (s *testServer) on(cmd string, res cannedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[cmd] = res
}

func (s *testServer) executed() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.commands...)
}

func (s *testServer) serve(conn net.Conn, cfg *ssh.ServerConfig) {
	defer conn.Close()

	sconn, chans, reqs, err := ssh.NewServerConn(conn, cfg)
	if err != nil {
		return
	}
	defer sconn.Close()
	go ssh.DiscardRequests(reqs)

	for newCh := range chans {
		if newCh.ChannelType() != "session" {
			_ = newCh.Reject(ssh.UnknownChannelType, "only sessions")
			continue
		}
		ch, chReqs, err := newCh.Accept()
		if err != nil {
			continue
		}
		go s.handleSession(ch, chReqs)
	}
}

func (s *testServer) handleSession(ch ssh.Channel, reqs <-chan *ssh.Request) {
	defer ch.Close()

	for req := range reqs {
		if req.Type != "exec" {
			if req.WantReply {
				_ = req.Reply(false, nil)
			}
			continue
		}

		var payload struct{ Command string }
		if err := ssh.Unmarshal(req.Payload, &payload); err != nil {
			_ = req.Reply(false, nil)
			return
		}
		_ = req.Reply(true, nil)

		s.mu.Lock()
		s.commands = append(s.commands, payload.Command)
		res, ok := s.results[payload.Command]
		s.mu.Unlock()
		if !ok {
			res = cannedResult{stderr: "sh: command not found\n", code: 127}
		}

		_, _ = ch.Write([]byte(res.stdout))
		_, _ = ch.Stderr().Write([]byte(res.stderr))
		_, _ = ch.SendRequest("exit-status", false, ssh.Marshal(struct{ Status uint32 }{res.code}))
		return
	}
}

func (s *testServer) target(user string) Target {
	return Target{User: user, Host: "127.0.0.1", Port: s.addr.Port}
}

// trackingConn records whether the transport was closed.
type trackingConn struct {
	net.Conn
	closed *atomic.Bool
}

func (c trackingConn) Close() error {
	c.closed.Store(true)
	return c.Conn.Close()
}

func trackingDialer(closed *atomic.Bool) DialContextFunc {
	return func(ctx context.Context, network, address string) (net.Conn, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, network, address)
		if err != nil {
			return nil, err
		}
		return trackingConn{Conn: conn, closed: closed}, nil
	}
}
