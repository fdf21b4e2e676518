package core

import (
	"testing"
	"time"
)

func TestNewMessage_CopiesMetadata(t *testing.T) {
	md := map[string]any{"k": "v"}
	msg := NewMessage(RoleUser, "hi", md, time.Unix(10, 0))
	md["k"] = "changed"
	if msg.Metadata["k"] != "v" {
		t.Fatalf("expected metadata copy, got %v", msg.Metadata["k"])
	}
	if msg.ID == "" || msg.Role != RoleUser || msg.Content != "hi" {
		t.Fatalf("unexpected message %#v", msg)
	}
}

func TestCloneMessages_Isolation(t *testing.T) {
	src := []Message{{Content: "a", Metadata: map[string]any{"n": 1}}}
	out := CloneMessages(src)
	out[0].Metadata["n"] = 2
	if src[0].Metadata["n"] != 1 {
		t.Fatalf("expected clone isolation")
	}
	if CloneMessages(nil) == nil {
		t.Fatalf("expected non-nil slice")
	}
}

func TestRole_Valid(t *testing.T) {
	if !RoleUser.Valid() || !RoleAgent.Valid() || Role("system").Valid() {
		t.Fatalf("unexpected role validity")
	}
}

func TestNewID_Unique(t *testing.T) {
	if NewID() == NewID() {
		t.Error("Expected unique IDs")
	}
}
