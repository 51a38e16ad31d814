package singleinstance

import (
	"bufio"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"time"
)

const (
	pingRequest  = "PING\n"
	pongResponse = "PONG\n"
)

type tcpClient struct {
	port int
}

func newTcpClient(port int) Client { return &tcpClient{port: normalizePort(port)} }

func timeoutFrom(ctx context.Context, def time.Duration) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return def
}

func (c *tcpClient) Detect(ctx context.Context) bool {
	return ping(residentAddr(c.port), timeoutFrom(ctx, 300*time.Millisecond))
}

func (c *tcpClient) Send(ctx context.Context, req Request) (bool, string, error) {
	deadline := timeoutFrom(ctx, 2*time.Second)
	addr := residentAddr(c.port)
	if !ping(addr, deadline) {
		return false, "", nil
	}

	conn, err := net.DialTimeout("tcp", addr, deadline)
	if err != nil {
		return false, "", nil
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(deadline))

	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(req.line()); err != nil {
		return true, "", err
	}
	if err := w.Flush(); err != nil {
		return true, "", err
	}

	br := bufio.NewReader(conn)
	status, err := br.ReadString('\n')
	if err != nil {
		return true, "", err
	}
	body, _ := io.ReadAll(br)
	switch status {
	case "SUCCESS\n":
		return true, string(body), nil
	case "ERROR\n":
		return true, "", errors.New(string(body))
	default:
		return true, "", errors.New("unexpected response: " + strings.TrimSpace(status))
	}
}

func ping(addr string, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return false
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(timeout))
	w := bufio.NewWriter(conn)
	if _, err := w.WriteString(pingRequest); err != nil {
		return false
	}
	if err := w.Flush(); err != nil {
		return false
	}
	br := bufio.NewReader(conn)
	resp, err := br.ReadString('\n')
	return err == nil && resp == pongResponse
}
