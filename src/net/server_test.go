package net

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/fuelnet/src/common"
)

func TestServerRegistryLifecycle(t *testing.T) {
	srv := newEchoServer(t, "127.0.0.1:0")
	defer srv.Close()

	sessions := []*Session{}
	for _, id := range []string{"pump-b", "pump-a", "pump-c"} {
		s := NewSession(SessionConfig{LocalID: id, Target: srv.Addr()}, common.NewTestEntry(t, id))
		if err := s.Connect(); err != nil {
			t.Fatalf("err: %v", err)
		}
		if err := s.Send(NewEnvelope(Ping, id)); err != nil {
			t.Fatalf("err: %v", err)
		}
		sessions = append(sessions, s)
	}

	waitFor(t, 2*time.Second, "three peers", func() bool { return srv.Registry().Len() == 3 })

	ids := srv.Registry().IDs()
	if ids[0] != "pump-a" || ids[1] != "pump-b" || ids[2] != "pump-c" {
		t.Fatalf("unexpected ids %v", ids)
	}

	sessions[0].Close()
	waitFor(t, 2*time.Second, "removal", func() bool { return srv.Registry().Len() == 2 })
	if _, ok := srv.Registry().Get("pump-b"); ok {
		t.Fatalf("pump-b should be gone")
	}

	sent := Broadcast(srv.Registry().Snapshot(), NewEnvelope(Ping, "server"), nil)
	if sent != 2 {
		t.Fatalf("expected 2 sends, got %d", sent)
	}

	for _, s := range sessions[1:] {
		s.Close()
	}
}

func TestServerUnboundUntilFirstEnvelope(t *testing.T) {
	srv := newEchoServer(t, "127.0.0.1:0")
	defer srv.Close()

	s := NewSession(SessionConfig{LocalID: "pump-1", Target: srv.Addr()}, common.NewTestEntry(t, "pump-1"))
	defer s.Close()
	if err := s.Connect(); err != nil {
		t.Fatalf("err: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	if srv.Registry().Len() != 0 {
		t.Fatalf("peer should not be bound before its first envelope")
	}

	s.Send(NewEnvelope(Ping, "pump-1"))
	waitFor(t, time.Second, "binding", func() bool { return srv.Registry().Len() == 1 })
}

func TestServerReplacesStalePeer(t *testing.T) {
	srv := newEchoServer(t, "127.0.0.1:0")
	defer srv.Close()

	first := NewSession(SessionConfig{LocalID: "pump-1", Target: srv.Addr()}, common.NewTestEntry(t, "first"))
	defer first.Close()
	first.Connect()
	first.Send(NewEnvelope(Ping, "pump-1"))
	waitFor(t, time.Second, "first binding", func() bool { return srv.Registry().Len() == 1 })
	old, _ := srv.Registry().Get("pump-1")

	second := NewSession(SessionConfig{LocalID: "pump-1", Target: srv.Addr()}, common.NewTestEntry(t, "second"))
	defer second.Close()
	second.Connect()
	second.Send(NewEnvelope(Ping, "pump-1"))

	waitFor(t, time.Second, "replacement", func() bool {
		p, ok := srv.Registry().Get("pump-1")
		return ok && p != old
	})

	// the stale loop exits without evicting the new binding
	time.Sleep(50 * time.Millisecond)
	if srv.Registry().Len() != 1 {
		t.Fatalf("expected 1 peer, got %d", srv.Registry().Len())
	}
}

func TestServerBindFailure(t *testing.T) {
	stream, err := NewTCPStreamLayer("127.0.0.1:0", "")
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	defer stream.Close()

	if _, err := NewTCPStreamLayer(stream.Addr().String(), ""); err == nil {
		t.Fatalf("binding a used port should fail")
	}
}
