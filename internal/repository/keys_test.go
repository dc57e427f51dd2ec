package repository

import (
	"testing"

	"github.com/sakif/vaccine-portal/internal/model"
)

func TestKeys(t *testing.T) {
	tests := []struct {
		name string
		got  Key
		want Key
	}{
		{"user profile", UserKey("a@b.com"), Key{PK: "USER#a@b.com", SK: "PROFILE#a@b.com"}},
		{"github link", OAuthKey("a@b.com", model.ProviderGitHub), Key{PK: "USER#a@b.com", SK: "OAUTH#github"}},
		{"chat session", ChatSessionKey("a@b.com", "s1"), Key{PK: "USER#a@b.com", SK: "CHAT#s1"}},
		{"chat message", ChatMessageKey("s1", "m1"), Key{PK: "CHAT#s1", SK: "MSG#m1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %+v, want %+v", tt.got, tt.want)
			}
		})
	}
}

// Profile, links and sessions of one user must share a partition so a
// single query can reach them.
func TestUserRecordsSharePartition(t *testing.T) {
	email := "a@b.com"
	p := UserPartition(email)

	for _, k := range []Key{UserKey(email), OAuthKey(email, model.ProviderGoogle), ChatSessionKey(email, "s")} {
		if k.PK != p {
			t.Errorf("key %+v not in partition %q", k, p)
		}
	}
}
