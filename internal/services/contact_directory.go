package services

import (
	"time"

	"github.com/fazendassa/crm-fazendas-sa-sub002/internal/models"

	"github.com/patrickmn/go-cache"
)

// ContactDirectory is an in-process TTL cache of contact display names
// keyed by normalized phone number. It is populated from inbound webhook
// traffic and consulted when a conversation has no stored name for a
// contact. Entries expire so a renamed contact eventually refreshes.
type ContactDirectory struct {
	cache *cache.Cache
}

// NewContactDirectory creates a directory with a 24h entry lifetime
func NewContactDirectory() *ContactDirectory {
	return &ContactDirectory{
		cache: cache.New(24*time.Hour, time.Hour),
	}
}

// Remember records a contact sighting. An empty name never overwrites a
// known one; the last-seen timestamp always advances.
func (d *ContactDirectory) Remember(phone, name string, seenAt int64) {
	if phone == "" {
		return
	}

	entry := models.Contact{Phone: phone, Name: name, LastSeen: seenAt}
	if existing, found := d.cache.Get(phone); found {
		prev := existing.(models.Contact)
		if entry.Name == "" {
			entry.Name = prev.Name
		}
		if prev.LastSeen > entry.LastSeen {
			entry.LastSeen = prev.LastSeen
		}
	}

	d.cache.Set(phone, entry, cache.DefaultExpiration)
}

// Lookup returns the cached contact or nil when unknown
func (d *ContactDirectory) Lookup(phone string) *models.Contact {
	value, found := d.cache.Get(phone)
	if !found {
		return nil
	}
	entry := value.(models.Contact)
	return &entry
}
