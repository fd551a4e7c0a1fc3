package local

import (
	"fmt"
	"time"

	"gitee.com/flycash/labour-tracker/internal/domain"
	ca "github.com/patrickmn/go-cache"
)

const (
	defaultContactExpiration = 10 * time.Minute
	defaultCleanupInterval   = time.Minute
)

// ContactCache keeps recently used contacts in process memory.
type ContactCache struct {
	c *ca.Cache
}

func NewContactCache(expiration time.Duration) *ContactCache {
	if expiration <= 0 {
		expiration = defaultContactExpiration
	}
	return &ContactCache{
		c: ca.New(expiration, defaultCleanupInterval),
	}
}

func (l *ContactCache) Get(id string) (domain.Contact, bool) {
	v, ok := l.c.Get(contactKey(id))
	if !ok {
		return domain.Contact{}, false
	}
	c, ok := v.(domain.Contact)
	return c, ok
}

func (l *ContactCache) Set(c domain.Contact) {
	l.c.SetDefault(contactKey(c.ID), c)
}

func (l *ContactCache) Delete(id string) {
	l.c.Delete(contactKey(id))
}

func contactKey(id string) string {
	return fmt.Sprintf("contact:%s", id)
}
