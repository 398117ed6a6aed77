// Package crm records contacts and conversion events. Counters follow the
// trigger-event-increment model: each sync bumps only the counter named by
// its trigger, so repeated syncs cannot double count. Client-supplied bulk
// session counts are an untrusted hint applied once, on first contact.
package crm

import (
	"context"
	"errors"
	"strings"
	"time"
)

// Known conversion triggers.
const (
	TriggerFirstContact   = "first_contact"
	TriggerImageGenerated = "image_generated"
	TriggerVideoGenerated = "video_generated"
	TriggerDownload       = "download"
	TriggerShare          = "share"
)

var ErrEmailRequired = errors.New("crm: email is required")

// SyncRequest is one conversion event for a contact.
type SyncRequest struct {
	Email             string           `json:"email"`
	SessionData       map[string]int64 `json:"sessionData,omitempty"`
	ConversionTrigger string           `json:"conversionTrigger"`
	ImageURL          string           `json:"imageUrl,omitempty"`
	ActionDetails     string           `json:"actionDetails,omitempty"`
}

// Note is one appended action record.
type Note struct {
	At      time.Time `json:"at"`
	Trigger string    `json:"trigger"`
	Detail  string    `json:"detail,omitempty"`
	Image   string    `json:"image,omitempty"`
}

// Contact is the CRM record keyed by email.
type Contact struct {
	Email     string           `json:"email"`
	FirstSeen time.Time        `json:"firstSeen"`
	LastSeen  time.Time        `json:"lastSeen"`
	Counters  map[string]int64 `json:"counters"`
	Notes     []Note           `json:"notes"`
}

// Store upserts contacts and applies conversion events.
type Store interface {
	Sync(ctx context.Context, req SyncRequest) (Contact, error)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// apply mutates a contact in place for one sync event. Shared by the memory
// and Postgres stores so the counting policy lives in one spot.
func apply(c *Contact, req SyncRequest, now time.Time) {
	isNew := c.FirstSeen.IsZero()
	trigger := strings.TrimSpace(req.ConversionTrigger)
	if isNew {
		c.FirstSeen = now
		// Seed from the client session only on the first-contact trigger;
		// totals reported later are ignored in favor of server-side trigger
		// increments.
		if trigger == TriggerFirstContact {
			for k, v := range req.SessionData {
				if v > 0 {
					c.Counters[k] = v
				}
			}
		}
	}
	c.LastSeen = now

	if trigger != "" {
		c.Counters[trigger]++
		c.Notes = append(c.Notes, Note{
			At:      now,
			Trigger: trigger,
			Detail:  strings.TrimSpace(req.ActionDetails),
			Image:   strings.TrimSpace(req.ImageURL),
		})
	}
}
