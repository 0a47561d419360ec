package bucket

import (
	"cmp"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

// TestCollection_MatchesModel drives random operation sequences against each
// strategy and a plain Go map, checking every result against the model.
func TestCollection_MatchesModel(t *testing.T) {
	for _, s := range strategies {
		t.Run(string(s), func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				assert := assert.New(t)
				c, err := New[uint8, int](s, cmp.Compare[uint8], nil)
				if err != nil {
					t.Fatalf("New: %v", err)
				}
				model := make(map[uint8]int)

				ops := rapid.IntRange(1, 200).Draw(t, "ops")
				for i := 0; i < ops; i++ {
					key := rapid.Uint8Range(0, 31).Draw(t, "key")
					val := rapid.Int().Draw(t, "val")

					switch rapid.IntRange(0, 3).Draw(t, "op") {
					case 0:
						_, err := c.Insert(key, val)
						if _, ok := model[key]; ok {
							assert.ErrorIs(err, ErrAlreadyExists)
						} else {
							assert.NoError(err)
							model[key] = val
						}
					case 1:
						got, err := c.Get(key)
						if want, ok := model[key]; ok {
							assert.NoError(err)
							assert.Equal(want, got)
						} else {
							assert.ErrorIs(err, ErrNotFound)
						}
					case 2:
						err := c.Delete(key)
						if _, ok := model[key]; ok {
							assert.NoError(err)
							delete(model, key)
						} else {
							assert.True(errors.Is(err, ErrNotFound))
						}
					case 3:
						old, err := c.Replace(key, val)
						if want, ok := model[key]; ok {
							assert.NoError(err)
							assert.Equal(want, old)
							model[key] = val
						} else {
							assert.ErrorIs(err, ErrNotFound)
						}
					}
					assert.Equal(len(model), c.Len())
				}
			})
		})
	}
}

func TestLockFree_KeepsOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := NewLockFree[int, struct{}](cmp.Compare[int], nil)
		keys := rapid.SliceOf(rapid.IntRange(-1000, 1000)).Draw(t, "keys")
		for _, k := range keys {
			l.Insert(k, struct{}{})
		}

		prev := 0
		first := true
		count := 0
		for n := l.head.next.Load().node; n != nil; n = n.next.Load().node {
			if !first && n.key <= prev {
				t.Fatalf("list out of order: %d after %d", n.key, prev)
			}
			prev, first = n.key, false
			count++
		}
		if count != l.Len() {
			t.Fatalf("linked nodes = %d, Len() = %d", count, l.Len())
		}
	})
}
