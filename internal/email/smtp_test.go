package email

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
)

// plaintextSMTPServer speaks just enough SMTP to greet and answer EHLO
// without advertising STARTTLS.
func plaintextSMTPServer(t *testing.T) (host string, port int) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		fmt.Fprintf(conn, "220 test ready\r\n")
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			cmd := strings.ToUpper(strings.TrimSpace(line))
			switch {
			case strings.HasPrefix(cmd, "EHLO"):
				fmt.Fprintf(conn, "250-test\r\n250 AUTH PLAIN LOGIN\r\n")
			case strings.HasPrefix(cmd, "HELO"):
				fmt.Fprintf(conn, "250 test\r\n")
			case strings.HasPrefix(cmd, "QUIT"):
				fmt.Fprintf(conn, "221 bye\r\n")
				return
			default:
				fmt.Fprintf(conn, "250 ok\r\n")
			}
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("splitting listener address: %v", err)
	}
	portNum, _ := strconv.Atoi(p)
	return h, portNum
}

func TestSendRefusesPlaintextAuth(t *testing.T) {
	host, port := plaintextSMTPServer(t)
	p := NewSMTPProvider(host, port, "user@example.com", "secret")

	err := p.Send(context.Background(), "to@example.com", "Hello", "body", "<p>body</p>")
	if err == nil {
		t.Fatal("expected an error when the server cannot upgrade to TLS")
	}
	if !strings.Contains(err.Error(), "STARTTLS") {
		t.Errorf("err = %v, want a STARTTLS refusal", err)
	}
}
