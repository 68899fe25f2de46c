package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker reports whether a sender bypasses triage. Entries may be full
// addresses ("alice@example.com") or bare domains ("example.com").
type Checker struct {
	addresses map[string]struct{}
	domains   map[string]struct{}
	logger    *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(entries []string, logger *zap.Logger) *Checker {
	c := &Checker{
		addresses: make(map[string]struct{}),
		domains:   make(map[string]struct{}),
		logger:    logger,
	}

	for _, entry := range entries {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "@") {
			c.addresses[entry] = struct{}{}
		} else {
			c.domains[entry] = struct{}{}
		}
	}

	if len(entries) > 0 && logger != nil {
		logger.Info("Initialized sender whitelist",
			zap.Int("addresses", len(c.addresses)),
			zap.Int("domains", len(c.domains)))
	}

	return c
}

// IsWhitelisted checks whether the sender or its domain is whitelisted
func (c *Checker) IsWhitelisted(sender string) bool {
	if len(c.addresses) == 0 && len(c.domains) == 0 {
		return false
	}

	sender = strings.ToLower(strings.TrimSpace(sender))
	if _, ok := c.addresses[sender]; ok {
		return true
	}

	parts := strings.Split(sender, "@")
	if len(parts) != 2 {
		return false
	}
	_, ok := c.domains[parts[1]]
	if ok && c.logger != nil {
		c.logger.Debug("Sender domain is whitelisted",
			zap.String("domain", parts[1]),
			zap.String("sender", sender))
	}
	return ok
}
