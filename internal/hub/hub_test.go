package hub

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/DoyleJ11/boardgame-client/internal/engine"
	"github.com/DoyleJ11/boardgame-client/internal/lobby"
)

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return NewHub(ctx, zap.NewNop())
}

func TestHub_Create_Get_SamePointer(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	state := engine.NewEmptyState()
	h.Inbox() <- CreateLobby{GameName: "default", MatchID: "ZED123", State: state, Reply: reply}
	lb1 := <-reply

	h.Inbox() <- GetLobby{MatchID: "ZED123", Reply: reply}
	lb2 := <-reply

	if lb1 == nil || lb2 == nil || lb1 != lb2 {
		t.Fatalf("expected same lobby pointer")
	}
}

func TestHub_Create_GeneratesMatchID(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	h.Inbox() <- CreateLobby{GameName: "default", State: engine.NewEmptyState(), Reply: reply}
	lb := <-reply
	if lb == nil || lb.ID() == "" {
		t.Fatalf("expected generated match id")
	}
}

func TestHub_List_CreationOrderPerGame(t *testing.T) {
	h := newTestHub(t)
	reply := make(chan *lobby.Lobby, 1)

	for _, c := range []struct{ game, id string }{
		{"default", "a"}, {"other", "b"}, {"default", "c"}, {"default", "d"},
	} {
		h.Inbox() <- CreateLobby{GameName: c.game, MatchID: c.id, State: engine.NewEmptyState(), Reply: reply}
		<-reply
	}
	h.Inbox() <- RemoveLobby{MatchID: "c"}

	list := make(chan []*lobby.Lobby, 1)
	h.Inbox() <- ListLobbies{GameName: "default", Reply: list}
	got := <-list

	var ids []string
	for _, lb := range got {
		ids = append(ids, lb.ID())
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "d" {
		t.Fatalf("want [a d], got %v", ids)
	}
}
