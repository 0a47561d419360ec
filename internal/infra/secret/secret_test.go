package secret

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHash_RoundTrip(t *testing.T) {
	encoded, err := Hash("s3cret")
	require.NoError(t, err)

	assert.True(t, IsHash(encoded))
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=16384,t=2,p=2$"))
	require.NoError(t, Validate(encoded))
	assert.True(t, Verify("s3cret", encoded))
	assert.False(t, Verify("S3cret", encoded))

	other, err := Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, encoded, other, "salt should differ")
}

func TestVerify_CustomParams(t *testing.T) {
	// Parameters come from the encoded string, not the package defaults.
	encoded, err := Hash("pw")
	require.NoError(t, err)
	lowered := strings.Replace(encoded, "m=16384,t=2,p=2", "m=8192,t=1,p=1", 1)
	assert.False(t, Verify("pw", lowered))
	assert.NoError(t, Validate(lowered))
}

func TestValidate_Malformed(t *testing.T) {
	tests := []string{
		"",
		"plaintext",
		"$argon2i$v=19$m=16384,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=18$m=16384,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=0,t=2,p=2$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=16384,t=2,p=2$!!!$aGFzaA",
		"$argon2id$v=19$m=16384,t=2,p=2$c2FsdA$!!!",
		"$argon2id$v=19$m=16384,t=2,p=2$c2FsdA$",
		"$argon2id$v=19$m=16384,t=2,p=2$c2FsdA",
	}
	for _, encoded := range tests {
		t.Run(encoded, func(t *testing.T) {
			assert.Error(t, Validate(encoded))
			assert.False(t, Verify("anything", encoded))
		})
	}
}

func TestChecker_Plain(t *testing.T) {
	c := NewChecker("pw")
	assert.True(t, c.Enabled())
	assert.True(t, c.Check("pw"))
	assert.False(t, c.Check("pw "))
	assert.False(t, c.Check(""))
}

func TestChecker_Disabled(t *testing.T) {
	c := NewChecker("")
	assert.False(t, c.Enabled())
	assert.True(t, c.Check("anything"))
}

func TestChecker_Hashed(t *testing.T) {
	encoded, err := Hash("pw")
	require.NoError(t, err)
	c := NewChecker(encoded)

	assert.False(t, c.Check(encoded), "the hash itself is not the password")
	assert.Nil(t, c.accepted.Load())

	assert.True(t, c.Check("pw"))
	require.NotNil(t, c.accepted.Load())
	assert.True(t, c.Check("pw"))
	assert.False(t, c.Check("wrong"))
}

func TestChecker_Concurrent(t *testing.T) {
	encoded, err := Hash("pw")
	require.NoError(t, err)
	c := NewChecker(encoded)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, c.Check("pw"))
		}()
	}
	wg.Wait()
}
