package directory

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"gsm-dashboard/internal/gateway"
)

// Contact is a cached directory record. ID is assigned when the record enters
// the cache and is never sent to the store.
type Contact struct {
	ID string `json:"id"`
	gateway.Contact
}

// Recipient is one option of the compose form's recipient picker.
type Recipient struct {
	Phone string `json:"phone"`
	Label string `json:"label"`
}

// Store reads and wholesale-replaces the directory on the modem.
type Store interface {
	FetchContacts(ctx context.Context) ([]gateway.Contact, error)
	ReplaceContacts(ctx context.Context, contacts []gateway.Contact) error
}

// View is refreshed with the persisted collection after every successful write.
type View interface {
	RenderContacts(contacts []Contact)
}

// Confirmer asks the operator to approve a destructive change.
type Confirmer interface {
	Confirm(ctx context.Context, message string) (bool, error)
}

// Journal records the outcome of each directory write.
type Journal interface {
	RecordMutation(op string, contacts int, err error)
}

type Logger interface {
	Printf(format string, args ...any)
}

type Options struct {
	Views   []View
	Journal Journal
	Logger  Logger
	// RequireLoad rejects local mutations with ErrNotLoaded until Load or
	// Replace has succeeded, so an empty cache never overwrites the modem.
	RequireLoad bool
}

// Cache is the in-memory mirror of the modem's contact directory. Mutations
// are applied locally first and then the whole collection is written back.
type Cache struct {
	store       Store
	views       []View
	journal     Journal
	logger      Logger
	requireLoad bool
	loaded      atomic.Bool

	mu       sync.Mutex
	contacts []Contact

	// persistMu is taken while mu is still held, so writes reach the store
	// in the order their snapshots were taken.
	persistMu sync.Mutex
	diverged  atomic.Bool
}

func NewCache(store Store, opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &Cache{
		store:       store,
		views:       opts.Views,
		journal:     opts.Journal,
		logger:      logger,
		requireLoad: opts.RequireLoad,
		contacts:    []Contact{},
	}
}

// Load replaces the cache with the store's current directory without
// writing anything back.
func (c *Cache) Load(ctx context.Context) error {
	remote, err := c.store.FetchContacts(ctx)
	if err != nil {
		return fmt.Errorf("load contacts: %w", err)
	}
	c.mu.Lock()
	c.contacts = withIDs(remote)
	snapshot := cloneContacts(c.contacts)
	c.loaded.Store(true)
	c.mu.Unlock()

	c.diverged.Store(false)
	c.render(snapshot)
	return nil
}

func (c *Cache) Snapshot() []Contact {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneContacts(c.contacts)
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.contacts)
}

func (c *Cache) Get(id string) (Contact, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := indexOf(c.contacts, id)
	if i < 0 {
		return Contact{}, false
	}
	return c.contacts[i], true
}

// Loaded reports whether the cache has been filled from the modem or
// replaced wholesale.
func (c *Cache) Loaded() bool {
	return c.loaded.Load()
}

// Diverged reports whether the last write failed, leaving the cache ahead of
// the store.
func (c *Cache) Diverged() bool {
	return c.diverged.Load()
}

func (c *Cache) Recipients() []Recipient {
	return RecipientsOf(c.Snapshot())
}

func RecipientsOf(contacts []Contact) []Recipient {
	out := make([]Recipient, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, Recipient{
			Phone: contact.Phone,
			Label: fmt.Sprintf("%s (%s)", contact.Name, contact.Phone),
		})
	}
	return out
}

func (c *Cache) Add(ctx context.Context, fields gateway.Contact) (Contact, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return Contact{}, err
	}
	added := Contact{ID: uuid.NewString(), Contact: fields}
	err = c.commit(ctx, "add", func(contacts []Contact) ([]Contact, bool, error) {
		if phoneTaken(contacts, fields.Phone, "") {
			return nil, false, ErrDuplicatePhone
		}
		return append(contacts, added), true, nil
	})
	return applied(added, err)
}

func (c *Cache) Edit(ctx context.Context, id string, fields gateway.Contact) (Contact, error) {
	fields, err := normalizeFields(fields)
	if err != nil {
		return Contact{}, err
	}
	edited := Contact{ID: id, Contact: fields}
	err = c.commit(ctx, "edit", func(contacts []Contact) ([]Contact, bool, error) {
		i := indexOf(contacts, id)
		if i < 0 {
			return nil, false, ErrContactNotFound
		}
		if phoneTaken(contacts, fields.Phone, id) {
			return nil, false, ErrDuplicatePhone
		}
		contacts[i] = edited
		return contacts, true, nil
	})
	return applied(edited, err)
}

// applied returns the record alongside a persist failure, since the cache
// already holds it, and drops it for any error raised before the mutation.
func applied(contact Contact, err error) (Contact, error) {
	var persistErr *PersistError
	if err != nil && !errors.As(err, &persistErr) {
		return Contact{}, err
	}
	return contact, err
}

// Delete removes the contact once confirm approves it. The record is looked
// up again after confirmation because the directory may have been replaced
// while the operator was answering.
func (c *Cache) Delete(ctx context.Context, id string, confirm Confirmer) error {
	target, ok := c.Get(id)
	if !ok {
		return ErrContactNotFound
	}
	if confirm == nil {
		return ErrNotConfirmed
	}
	approved, err := confirm.Confirm(ctx, fmt.Sprintf("Really delete contact %s (%s)?", target.Name, target.Phone))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotConfirmed, err)
	}
	if !approved {
		return ErrNotConfirmed
	}
	return c.commit(ctx, "delete", func(contacts []Contact) ([]Contact, bool, error) {
		i := indexOf(contacts, id)
		if i < 0 {
			return nil, false, ErrContactNotFound
		}
		return append(contacts[:i], contacts[i+1:]...), true, nil
	})
}

// Replace discards the whole cache in favour of contacts and persists it.
func (c *Cache) Replace(ctx context.Context, contacts []gateway.Contact) error {
	replacement := withIDs(contacts)
	return c.apply(ctx, "replace", func([]Contact) ([]Contact, bool, error) {
		c.loaded.Store(true)
		return replacement, true, nil
	})
}

// commit applies mutate to a private copy of the collection under the lock.
// When mutate reports a change the copy becomes the cache and is persisted.
func (c *Cache) commit(ctx context.Context, op string, mutate func([]Contact) ([]Contact, bool, error)) error {
	if c.requireLoad && !c.loaded.Load() {
		return ErrNotLoaded
	}
	return c.apply(ctx, op, mutate)
}

func (c *Cache) apply(ctx context.Context, op string, mutate func([]Contact) ([]Contact, bool, error)) error {
	c.mu.Lock()
	next, changed, err := mutate(cloneContacts(c.contacts))
	if err != nil || !changed {
		c.mu.Unlock()
		return err
	}
	c.contacts = next
	snapshot := cloneContacts(next)
	c.persistMu.Lock()
	c.mu.Unlock()
	defer c.persistMu.Unlock()

	return c.persistAndReconcile(ctx, op, snapshot)
}

func (c *Cache) persistAndReconcile(ctx context.Context, op string, snapshot []Contact) error {
	err := c.store.ReplaceContacts(ctx, toWire(snapshot))
	if c.journal != nil {
		c.journal.RecordMutation(op, len(snapshot), err)
	}
	if err != nil {
		c.diverged.Store(true)
		c.logger.Printf("Error saving contacts after %s: %v", op, err)
		return &PersistError{Op: op, Err: err}
	}
	c.diverged.Store(false)
	c.render(snapshot)
	return nil
}

func (c *Cache) render(snapshot []Contact) {
	for _, view := range c.views {
		view.RenderContacts(cloneContacts(snapshot))
	}
}

func indexOf(contacts []Contact, id string) int {
	for i, contact := range contacts {
		if contact.ID == id {
			return i
		}
	}
	return -1
}

func phoneTaken(contacts []Contact, phone, exceptID string) bool {
	for _, contact := range contacts {
		if contact.Phone == phone && contact.ID != exceptID {
			return true
		}
	}
	return false
}

func withIDs(contacts []gateway.Contact) []Contact {
	out := make([]Contact, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, Contact{ID: uuid.NewString(), Contact: contact})
	}
	return out
}

func toWire(contacts []Contact) []gateway.Contact {
	out := make([]gateway.Contact, 0, len(contacts))
	for _, contact := range contacts {
		out = append(out, contact.Contact)
	}
	return out
}

func cloneContacts(contacts []Contact) []Contact {
	out := make([]Contact, len(contacts))
	copy(out, contacts)
	return out
}
