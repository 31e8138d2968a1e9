package passwd_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/campuspass/server/internal/passwd"
)

func TestHash_KnownDigest(t *testing.T) {
	// sha256("123456")
	assert.Equal(t,
		"8d969eef6ecad3c29a3a629280e686cf0c3f5d5a86aff3ca12020c923adc6c92",
		passwd.Hash("123456"))
}

func TestHash_Deterministic(t *testing.T) {
	assert.Equal(t, passwd.Hash("密码"), passwd.Hash("密码"))
	assert.NotEqual(t, passwd.Hash("a"), passwd.Hash("b"))
}

func TestMatches(t *testing.T) {
	stored := passwd.Hash("test123")
	assert.True(t, passwd.Matches(stored, "test123"))
	assert.False(t, passwd.Matches(stored, "test124"))
	assert.False(t, passwd.Matches(stored, ""))
}
