package contacts

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/saravenpi/baatcheet/internal/apperr"
)

// Contact is a local nickname for one or more chat users.
type Contact struct {
	Name    string   `yaml:"name"`
	UserIDs []int64  `yaml:"user_ids,omitempty"`
	Emails  []string `yaml:"emails,omitempty"`
}

const cacheDuration = 30 * time.Second

// Book stores contacts as YAML files in a directory.
type Book struct {
	dir string

	mu        sync.RWMutex
	cache     []Contact
	byUserID  map[int64]string
	byEmail   map[string]string
	cacheTime time.Time
}

func NewBook(dir string) *Book {
	return &Book{dir: dir}
}

func (b *Book) Dir() string { return b.dir }

// sanitizeFilename converts a contact name to a safe filename.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "/", "-")
	name = strings.ReplaceAll(name, "\\", "-")
	name = strings.ReplaceAll(name, ":", "-")
	return name
}

func (b *Book) path(name string) string {
	return filepath.Join(b.dir, sanitizeFilename(name)+".yml")
}

// Save writes a contact, replacing any contact with the same name.
func (b *Book) Save(contact Contact) error {
	contact.Name = strings.TrimSpace(contact.Name)
	if contact.Name == "" {
		return fmt.Errorf("contact name cannot be empty")
	}

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return fmt.Errorf("failed to create contacts directory: %w", err)
	}

	data, err := yaml.Marshal(&contact)
	if err != nil {
		return fmt.Errorf("failed to marshal contact: %w", err)
	}

	if err := os.WriteFile(b.path(contact.Name), data, 0644); err != nil {
		return fmt.Errorf("failed to write contact file: %w", err)
	}

	b.Invalidate()
	return nil
}

// Load reads a contact by name.
func (b *Book) Load(name string) (*Contact, error) {
	data, err := os.ReadFile(b.path(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperr.NotFound(fmt.Sprintf("contact not found: %s", name))
		}
		return nil, fmt.Errorf("failed to read contact file: %w", err)
	}

	var contact Contact
	if err := yaml.Unmarshal(data, &contact); err != nil {
		return nil, fmt.Errorf("failed to parse contact file: %w", err)
	}
	return &contact, nil
}

func (b *Book) Delete(name string) error {
	if err := os.Remove(b.path(name)); err != nil {
		if os.IsNotExist(err) {
			return apperr.NotFound(fmt.Sprintf("contact not found: %s", name))
		}
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	b.Invalidate()
	return nil
}

// List returns all contacts sorted by name. Results are cached for 30
// seconds.
func (b *Book) List() ([]Contact, error) {
	b.mu.RLock()
	if b.cache != nil && time.Since(b.cacheTime) < cacheDuration {
		defer b.mu.RUnlock()
		return b.cache, nil
	}
	b.mu.RUnlock()

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cache != nil && time.Since(b.cacheTime) < cacheDuration {
		return b.cache, nil
	}

	entries, err := os.ReadDir(b.dir)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read contacts directory: %w", err)
	}

	contacts := []Contact{}
	byUserID := make(map[int64]string)
	byEmail := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(b.dir, entry.Name()))
		if err != nil {
			continue
		}

		var contact Contact
		if err := yaml.Unmarshal(data, &contact); err != nil || contact.Name == "" {
			continue
		}
		contacts = append(contacts, contact)

		for _, id := range contact.UserIDs {
			byUserID[id] = contact.Name
		}
		for _, email := range contact.Emails {
			byEmail[normalizeEmail(email)] = contact.Name
		}
	}

	sort.Slice(contacts, func(i, j int) bool {
		return strings.ToLower(contacts[i].Name) < strings.ToLower(contacts[j].Name)
	})

	b.cache = contacts
	b.byUserID = byUserID
	b.byEmail = byEmail
	b.cacheTime = time.Now()
	return contacts, nil
}

// Invalidate forces the next lookup to reread the directory.
func (b *Book) Invalidate() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cacheTime = time.Time{}
	b.cache = nil
}

// NameFor returns the nickname for a user id, or "".
func (b *Book) NameFor(userID int64) string {
	if userID == 0 {
		return ""
	}
	if _, err := b.List(); err != nil {
		return ""
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byUserID[userID]
}

// NameForEmail returns the nickname for an email address, or "".
func (b *Book) NameForEmail(email string) string {
	if email == "" {
		return ""
	}
	if _, err := b.List(); err != nil {
		return ""
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.byEmail[normalizeEmail(email)]
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// DisplayName picks the label for a message sender: "You" for the logged-in
// user, then the contact nickname, then the server name, then the id.
func (b *Book) DisplayName(senderID, selfID int64, serverName string) string {
	if senderID != 0 && senderID == selfID {
		return "You"
	}
	if b != nil {
		if name := b.NameFor(senderID); name != "" {
			return name
		}
	}
	if serverName != "" {
		return serverName
	}
	return fmt.Sprintf("User %d", senderID)
}
