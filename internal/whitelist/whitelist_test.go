package whitelist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestEmptyWhitelistMatchesNothing(t *testing.T) {
	c := NewChecker(nil, zap.NewNop())
	assert.False(t, c.IsWhitelisted("alice@example.com"))
	assert.False(t, c.IsWhitelisted(""))
}

func TestAddressEntry(t *testing.T) {
	c := NewChecker([]string{"alice@example.com"}, zap.NewNop())

	assert.True(t, c.IsWhitelisted("alice@example.com"))
	assert.False(t, c.IsWhitelisted("bob@example.com"))
}

func TestDomainEntry(t *testing.T) {
	c := NewChecker([]string{"example.com"}, zap.NewNop())

	assert.True(t, c.IsWhitelisted("alice@example.com"))
	assert.True(t, c.IsWhitelisted("bob@example.com"))
	assert.False(t, c.IsWhitelisted("alice@other.org"))
	assert.False(t, c.IsWhitelisted("example.com"), "a bare domain is not an address")
}

func TestMatchingIsCaseInsensitive(t *testing.T) {
	c := NewChecker([]string{"Alice@Example.com", "Trusted.ORG"}, zap.NewNop())

	assert.True(t, c.IsWhitelisted("alice@example.com"))
	assert.True(t, c.IsWhitelisted("ALICE@EXAMPLE.COM"))
	assert.True(t, c.IsWhitelisted("bob@trusted.org"))
}

func TestBlankEntriesAreIgnored(t *testing.T) {
	c := NewChecker([]string{"", "  ", "example.com"}, zap.NewNop())

	assert.True(t, c.IsWhitelisted("alice@example.com"))
	assert.False(t, c.IsWhitelisted(""))
}

func TestMalformedSender(t *testing.T) {
	c := NewChecker([]string{"example.com"}, zap.NewNop())

	assert.False(t, c.IsWhitelisted("not-an-address"))
	assert.False(t, c.IsWhitelisted("a@b@example.com"))
}
