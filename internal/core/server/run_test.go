package server

import (
	"context"
	"net"
	"net/http"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestRunStopsOnCancel(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := ln.Addr().String()
	_ = ln.Close()

	srv := BuildServer(addr, http.NotFoundHandler(), time.Second, time.Second, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, srv, zap.NewNop()) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		if c, err := net.Dial("tcp", addr); err == nil {
			_ = c.Close()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run = %v", err)
		}
	case <-time.After(shutdownGrace):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunReturnsListenError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	srv := BuildServer(ln.Addr().String(), http.NotFoundHandler(), time.Second, time.Second, time.Second)
	if err := Run(context.Background(), srv, zap.NewNop()); err == nil {
		t.Fatal("expected address-in-use error")
	}
}

func TestBaseURL(t *testing.T) {
	if got := BaseURL("0.0.0.0", 8080); got != "http://127.0.0.1:8080" {
		t.Errorf("BaseURL = %q", got)
	}
	if got := BaseURL("10.0.0.1", 81); got != "http://10.0.0.1:81" {
		t.Errorf("BaseURL = %q", got)
	}
}
