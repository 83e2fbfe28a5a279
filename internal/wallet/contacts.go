package wallet

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/hushtx/hushtx/internal/storage"
	"github.com/hushtx/hushtx/pkg/crypto"
)

// ErrContactNotFound is returned when a contact id does not exist.
var ErrContactNotFound = errors.New("contact not found")

// contactsKey is the storage key for the contact book snapshot.
var contactsKey = []byte("contacts")

// Counterparty is one messaging contact. The public key is the compressed
// hex form; only the display name is mutable.
type Counterparty struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PublicKey   string `json:"publicKey"`
}

// Key parses the counterparty's public key.
func (c Counterparty) Key() (*crypto.PublicKey, error) {
	raw, err := hex.DecodeString(c.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("%w: contact %s public key: %v", crypto.ErrInvalidKey, c.ID, err)
	}
	return crypto.ParsePublicKey(raw)
}

// ContactBook is the persisted set of counterparties, stored as one JSON
// document in the wallet's namespaced store.
type ContactBook struct {
	mu sync.Mutex
	db storage.DB
}

// NewContactBook creates a contact book over the given (namespaced) store.
func NewContactBook(db storage.DB) *ContactBook {
	return &ContactBook{db: db}
}

// Add validates and stores a new counterparty. The id must be unique; the
// public key must parse as a point on the curve.
func (b *ContactBook) Add(c Counterparty) error {
	if c.ID == "" {
		return fmt.Errorf("contact id must not be empty")
	}
	if _, err := c.Key(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	contacts, err := b.load()
	if err != nil {
		return err
	}
	for _, existing := range contacts {
		if existing.ID == c.ID {
			return fmt.Errorf("contact %q already exists", c.ID)
		}
	}
	return b.save(append(contacts, c))
}

// Rename updates a contact's display name.
func (b *ContactBook) Rename(id, displayName string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	contacts, err := b.load()
	if err != nil {
		return err
	}
	for i := range contacts {
		if contacts[i].ID == id {
			contacts[i].DisplayName = displayName
			return b.save(contacts)
		}
	}
	return fmt.Errorf("%w: %s", ErrContactNotFound, id)
}

// Remove deletes a contact.
func (b *ContactBook) Remove(id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	contacts, err := b.load()
	if err != nil {
		return err
	}
	for i := range contacts {
		if contacts[i].ID == id {
			return b.save(append(contacts[:i], contacts[i+1:]...))
		}
	}
	return fmt.Errorf("%w: %s", ErrContactNotFound, id)
}

// Get returns a contact by id.
func (b *ContactBook) Get(id string) (Counterparty, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	contacts, err := b.load()
	if err != nil {
		return Counterparty{}, err
	}
	for _, c := range contacts {
		if c.ID == id {
			return c, nil
		}
	}
	return Counterparty{}, fmt.Errorf("%w: %s", ErrContactNotFound, id)
}

// List returns all contacts sorted by id.
func (b *ContactBook) List() ([]Counterparty, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	contacts, err := b.load()
	if err != nil {
		return nil, err
	}
	sort.Slice(contacts, func(i, j int) bool { return contacts[i].ID < contacts[j].ID })
	return contacts, nil
}

// KeysByID returns the id → public-key-hex map, the form the ledger backup
// carries.
func (b *ContactBook) KeysByID() (map[string]string, error) {
	contacts, err := b.List()
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(contacts))
	for _, c := range contacts {
		out[c.ID] = c.PublicKey
	}
	return out, nil
}

func (b *ContactBook) load() ([]Counterparty, error) {
	data, err := b.db.Get(contactsKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load contacts: %w", err)
	}
	var contacts []Counterparty
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("parse contacts: %w", err)
	}
	return contacts, nil
}

func (b *ContactBook) save(contacts []Counterparty) error {
	data, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("marshal contacts: %w", err)
	}
	if err := b.db.Put(contactsKey, data); err != nil {
		return fmt.Errorf("write contacts: %w", err)
	}
	return nil
}
