package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/textproto"
	"os"
	"sort"
	"time"

	"httpstream/internal/headers"
	"httpstream/internal/request"
)

const PORT = ":42069"

func main() {
	tcp, err := net.Listen("tcp", PORT)
	if err != nil {
		fmt.Println("ERROR: failed to open.\n", err.Error())
		os.Exit(1)
	}
	defer tcp.Close()

	fmt.Println("Listening for TCP traffic on", PORT)
	for {
		conn, err := tcp.Accept()
		if err != nil {
			fmt.Println("ERROR: failed to accept.\n", err)
			continue
		}
		go handleConn(conn)
	}
}

func handleConn(conn net.Conn) {
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))

	p, err := request.NewParser(conn, request.Limits{})
	if err != nil {
		fmt.Println("ERROR: failed to bind parser:", err)
		return
	}
	defer p.Release()

	ctx := context.Background()
	h, err := p.ParseHeaders(ctx)
	if err != nil {
		fmt.Println("ERROR: failed to parse request:", err)
		return
	}
	if h == nil {
		fmt.Println("connection closed before any request arrived")
		return
	}

	fmt.Printf("Request line:\n- Method: %s\n- Target: %s\n- Protocol: %s\n",
		h.GetString(headers.KeyMethod), h.GetString(headers.KeyPath), h.GetString(headers.KeyProtocol))

	fmt.Println("Headers:")
	keys := make([]string, 0, len(h))
	for k := range h {
		if k[0] == ':' {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		fmt.Println("- (none)")
	} else {
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("- %s: %s\n", textproto.CanonicalMIMEHeaderKey(k), h.GetString(k))
		}
	}

	body, err := p.ReadBody(ctx, h)
	if err != nil {
		fmt.Println("ERROR: failed to read body:", err)
		return
	}
	fmt.Println("Body:")
	if body == nil {
		fmt.Println("- (none)")
	} else {
		fmt.Println(string(body))
	}

	resp := "HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/plain\r\n" +
		"Content-Length: 2\r\n" +
		"Connection: close\r\n" +
		"\r\n" +
		"OK"
	_, _ = io.WriteString(conn, resp)
}
