package publisher

import (
	"testing"
	"time"

	"github.com/matryer/is"
)

func TestDedupSet_addAndContains(t *testing.T) {
	is := is.New(t)
	set := newDedupSet(time.Minute)
	key := dedupKey{clientID: "client-1", sessionID: "session-1", createdAt: time.Unix(1000, 0)}

	is.True(!set.contains(key))
	set.add(key)
	is.True(set.contains(key))
}

func TestDedupSet_evictExpired(t *testing.T) {
	is := is.New(t)
	set := newDedupSet(time.Millisecond)
	key := dedupKey{clientID: "client-1", sessionID: "session-1", createdAt: time.Unix(1000, 0)}

	set.add(key)
	time.Sleep(5 * time.Millisecond)
	set.evictExpired()
	is.True(!set.contains(key))
}
