package session

import (
	"testing"
	"time"

	"github.com/papertoplan/ptp/internal/models"
)

func TestNewUserCache_NilDB(t *testing.T) {
	if _, err := NewUserCache(nil, 0); err == nil {
		t.Fatal("expected error for nil db")
	}
}

func TestUserCache_ReplaceAndLookup(t *testing.T) {
	c, err := NewUserCache(openTestDB(t), time.Minute)
	if err != nil {
		t.Fatalf("NewUserCache: %v", err)
	}
	if c.Fresh() {
		t.Error("empty cache should not be fresh")
	}

	err = c.Replace([]models.CachedUser{
		{Username: "Beto May", Pin: "0295"},
		{Username: "ana", Pin: "1234"},
	})
	if err != nil {
		t.Fatalf("Replace: %v", err)
	}
	if !c.Fresh() {
		t.Error("cache should be fresh after Replace")
	}

	pin, ok, err := c.Lookup("Beto May")
	if err != nil || !ok || pin != "0295" {
		t.Errorf("Lookup(Beto May) = %q, %v, %v", pin, ok, err)
	}
	if _, ok, _ := c.Lookup("nobody"); ok {
		t.Error("Lookup(nobody) should miss")
	}

	names, err := c.Usernames()
	if err != nil {
		t.Fatalf("Usernames: %v", err)
	}
	if len(names) != 2 || names[0] != "Beto May" || names[1] != "ana" {
		t.Errorf("Usernames() = %v", names)
	}
}

func TestUserCache_ReplaceDropsOldEntries(t *testing.T) {
	c, _ := NewUserCache(openTestDB(t), time.Minute)
	c.Replace([]models.CachedUser{{Username: "old", Pin: "1111"}})
	c.Replace([]models.CachedUser{{Username: "new", Pin: "2222"}})

	if _, ok, _ := c.Lookup("old"); ok {
		t.Error("old user should be gone after Replace")
	}
	if pin, ok, _ := c.Lookup("new"); !ok || pin != "2222" {
		t.Errorf("Lookup(new) = %q, %v", pin, ok)
	}
}

func TestUserCache_PersistsAcrossInstances(t *testing.T) {
	db := openTestDB(t)
	first, _ := NewUserCache(db, time.Minute)
	first.Replace([]models.CachedUser{{Username: "ana", Pin: "1234"}})

	second, _ := NewUserCache(db, time.Minute)
	if second.Fresh() {
		t.Error("a new instance has not fetched anything yet")
	}
	pin, ok, err := second.Lookup("ana")
	if err != nil || !ok || pin != "1234" {
		t.Errorf("Lookup from persisted copy = %q, %v, %v", pin, ok, err)
	}
}

func TestUserCache_LookupOnlyReturnsUsers(t *testing.T) {
	c, _ := NewUserCache(openTestDB(t), time.Minute)
	if err := c.Replace([]models.CachedUser{{Username: "ana", Pin: "1234"}}); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	for _, name := range []string{"\x00fetched", "", "fetched"} {
		pin, ok, err := c.Lookup(name)
		if err != nil || ok || pin != "" {
			t.Errorf("Lookup(%q) = %q, %v, %v, want a miss", name, pin, ok, err)
		}
	}
}

func TestUserCache_FreshExpires(t *testing.T) {
	c, _ := NewUserCache(openTestDB(t), 20*time.Millisecond)
	c.Replace([]models.CachedUser{{Username: "ana", Pin: "1234"}})
	if !c.Fresh() {
		t.Fatal("cache should be fresh right after Replace")
	}

	time.Sleep(40 * time.Millisecond)
	if c.Fresh() {
		t.Error("cache should go stale after the TTL")
	}
}
