package telegram

import (
	"context"
	"errors"
	"testing"
)

func TestEntityCacheLookup(t *testing.T) {
	c := NewEntityCache()
	c.Put(
		Entity{Kind: KindUser, ID: 5, FirstName: "U"},
		Entity{Kind: KindChannel, ID: 5, Title: "C"},
		Entity{Kind: KindChat, ID: 6, Title: "G"},
		Entity{Kind: KindUser, ID: 0, FirstName: "ignored"},
	)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  any
		want string
	}{
		{"typed user", &PeerUser{UserID: 5}, "U"},
		{"typed channel", PeerChannel{ChannelID: 5}, "C"},
		{"bare id prefers channel", int64(5), "C"},
		{"bare id falls through to chat", 6, "G"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := c.GetEntity(ctx, tt.ref)
			if err != nil {
				t.Fatalf("GetEntity: %v", err)
			}
			if got := e.Title + e.FirstName; got != tt.want {
				t.Errorf("entity = %+v, want %q", e, tt.want)
			}
		})
	}

	if _, err := c.GetEntity(ctx, &PeerChat{ChatID: 5}); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("missing kind err = %v", err)
	}
	if _, err := c.GetEntity(ctx, "junk"); !errors.Is(err, ErrEntityNotFound) {
		t.Errorf("junk ref err = %v", err)
	}
	if c.Len() != 3 {
		t.Errorf("Len = %d, want 3", c.Len())
	}
}
