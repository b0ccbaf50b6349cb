// Package tracker holds the open department join requests of the running
// process. A (member, department) pair is open at most once; members with no
// open request are not kept as keys.
package tracker

import (
	"errors"
	"sort"
	"sync"
	"time"

	"onboarding-bot/internal/models"

	"github.com/google/uuid"
)

var (
	ErrAlreadyOpen = errors.New("request already open")
	ErrNotOpen     = errors.New("request not open")
)

type Tracker struct {
	mu        sync.Mutex
	open      map[string]map[string]struct{}
	requests  map[pairKey]models.PendingRequest
	byMessage map[string]pairKey
	retired   *retiredSet
	locks     *KeyedMutex
	now       func() time.Time
}

type pairKey struct {
	member     string
	department string
}

func (k pairKey) String() string {
	return k.member + "\x00" + k.department
}

func New() *Tracker {
	return &Tracker{
		open:      make(map[string]map[string]struct{}),
		requests:  make(map[pairKey]models.PendingRequest),
		byMessage: make(map[string]pairKey),
		retired:   newRetiredSet(DefaultRetiredCapacity),
		locks:     NewKeyedMutex(),
		now:       time.Now,
	}
}

// TryOpen marks the pair open. It returns ErrAlreadyOpen when it already is.
func (t *Tracker) TryOpen(memberID, department string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	depts, ok := t.open[memberID]
	if ok {
		if _, exists := depts[department]; exists {
			return ErrAlreadyOpen
		}
	} else {
		depts = make(map[string]struct{})
		t.open[memberID] = depts
	}
	depts[department] = struct{}{}

	key := pairKey{memberID, department}
	t.requests[key] = models.PendingRequest{
		ID:         uuid.New().String(),
		MemberID:   memberID,
		Department: department,
		OpenedAt:   t.now().UTC(),
	}
	return nil
}

func (t *Tracker) IsOpen(memberID, department string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.open[memberID][department]
	return ok
}

// Close removes the pair. Closing a pair that is not open is a no-op.
func (t *Tracker) Close(memberID, department string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.closeLocked(pairKey{memberID, department})
}

func (t *Tracker) closeLocked(key pairKey) {
	depts, ok := t.open[key.member]
	if !ok {
		return
	}
	delete(depts, key.department)
	if len(depts) == 0 {
		delete(t.open, key.member)
	}

	if req, ok := t.requests[key]; ok {
		if req.NotificationMessageID != "" {
			delete(t.byMessage, req.NotificationMessageID)
			t.retired.add(req.NotificationMessageID)
		}
		delete(t.requests, key)
	}
}

// Attach records the notification message posted for an open pair so a
// reaction on that message resolves to it.
func (t *Tracker) Attach(memberID, department, channelID, messageID string) (models.PendingRequest, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := pairKey{memberID, department}
	req, ok := t.requests[key]
	if !ok {
		return models.PendingRequest{}, ErrNotOpen
	}
	if req.NotificationMessageID != "" && req.NotificationMessageID != messageID {
		delete(t.byMessage, req.NotificationMessageID)
		t.retired.add(req.NotificationMessageID)
	}
	req.ChannelID = channelID
	req.NotificationMessageID = messageID
	t.requests[key] = req
	t.byMessage[messageID] = key
	return req, nil
}

// ByMessage returns the open request whose notification is messageID.
func (t *Tracker) ByMessage(messageID string) (models.PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key, ok := t.byMessage[messageID]
	if !ok {
		return models.PendingRequest{}, false
	}
	req, ok := t.requests[key]
	return req, ok
}

// Request returns the open request of a pair.
func (t *Tracker) Request(memberID, department string) (models.PendingRequest, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	req, ok := t.requests[pairKey{memberID, department}]
	return req, ok
}

// Retire records that a notification no longer resolves anything. Closed
// and expired requests retire their notification on their own.
func (t *Tracker) Retire(messageID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.retired.add(messageID)
}

// IsRetired reports whether messageID belonged to a request that was
// closed, expired or superseded.
func (t *Tracker) IsRetired(messageID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.retired.has(messageID)
}

// Departments returns the member's open departments, sorted.
func (t *Tracker) Departments(memberID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	depts := t.open[memberID]
	out := make([]string, 0, len(depts))
	for d := range depts {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// HasMember reports whether memberID is a key of the tracker.
func (t *Tracker) HasMember(memberID string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.open[memberID]
	return ok
}

// Len returns the number of open pairs.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := 0
	for _, depts := range t.open {
		n += len(depts)
	}
	return n
}

// Expire closes every request opened more than ttl before now and returns
// the closed requests. A non-positive ttl expires nothing.
func (t *Tracker) Expire(now time.Time, ttl time.Duration) []models.PendingRequest {
	if ttl <= 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	cutoff := now.Add(-ttl)
	var expired []models.PendingRequest
	for key, req := range t.requests {
		if req.OpenedAt.Before(cutoff) {
			expired = append(expired, req)
			t.closeLocked(key)
		}
	}
	sort.Slice(expired, func(i, j int) bool {
		return expired[i].OpenedAt.Before(expired[j].OpenedAt)
	})
	return expired
}

// Lock serializes work on one (member, department) pair. The caller must
// invoke the returned function to release it.
func (t *Tracker) Lock(memberID, department string) func() {
	return t.locks.Lock(pairKey{memberID, department}.String())
}
