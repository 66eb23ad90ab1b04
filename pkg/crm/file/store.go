// Package file provides a file-based CRM adapter for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/campaignhq/automation/pkg/protocol"
)

// Store keeps one JSON document per contact and per list under root.
type Store struct {
	root string
	mu   sync.RWMutex
}

type listDocument struct {
	ID      string   `json:"id"`
	Members []string `json:"members"`
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// GetContact returns the attributes of a contact.
func (s *Store) GetContact(_ context.Context, contactID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.readContact(contactID)
}

// SaveContact creates or replaces a contact.
func (s *Store) SaveContact(_ context.Context, contactID string, attributes map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.writeJSON("contacts", contactID, attributes)
}

// Update merges fields into an existing contact.
func (s *Store) Update(_ context.Context, contactID string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contact, err := s.readContact(contactID)
	if err != nil {
		return err
	}

	for key, value := range fields {
		contact[key] = value
	}

	return s.writeJSON("contacts", contactID, contact)
}

// CreateList creates an empty list. Existing lists are left untouched.
func (s *Store) CreateList(_ context.Context, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.readList(listID)
	if err == nil {
		return nil
	}

	if !errors.Is(err, protocol.ErrListNotFound) {
		return err
	}

	return s.writeJSON("lists", listID, listDocument{ID: listID, Members: []string{}})
}

// AddMember adds a contact to a list. Adding an existing member is a no-op.
func (s *Store) AddMember(_ context.Context, contactID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readList(listID)
	if err != nil {
		return err
	}

	if slices.Contains(list.Members, contactID) {
		return nil
	}

	list.Members = append(list.Members, contactID)

	return s.writeJSON("lists", listID, list)
}

// RemoveMember removes a contact from a list. Removing a non member is a no-op.
func (s *Store) RemoveMember(_ context.Context, contactID, listID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.readList(listID)
	if err != nil {
		return err
	}

	index := slices.Index(list.Members, contactID)
	if index < 0 {
		return nil
	}

	list.Members = slices.Delete(list.Members, index, index+1)

	return s.writeJSON("lists", listID, list)
}

// Members returns the contact ids of a list in insertion order.
func (s *Store) Members(_ context.Context, listID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list, err := s.readList(listID)
	if err != nil {
		return nil, err
	}

	return list.Members, nil
}

func (s *Store) readContact(contactID string) (map[string]any, error) {
	contact := make(map[string]any)

	err := s.readJSON("contacts", contactID, &contact)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("contact %s: %w", contactID, protocol.ErrContactNotFound)
	}

	if err != nil {
		return nil, err
	}

	return contact, nil
}

func (s *Store) readList(listID string) (*listDocument, error) {
	var list listDocument

	err := s.readJSON("lists", listID, &list)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("list %s: %w", listID, protocol.ErrListNotFound)
	}

	if err != nil {
		return nil, err
	}

	return &list, nil
}

func (s *Store) path(kind, id string) (string, error) {
	if id == "" || strings.Contains(id, "..") || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid %s id %q", strings.TrimSuffix(kind, "s"), id)
	}

	return filepath.Join(s.root, kind, id+".json"), nil
}

func (s *Store) readJSON(kind, id string, target any) error {
	path, err := s.path(kind, id)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path) // #nosec G304 -- path is validated and constructed safely
	if err != nil {
		return err
	}

	err = json.Unmarshal(data, target)
	if err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}

	return nil
}

func (s *Store) writeJSON(kind, id string, value any) error {
	path, err := s.path(kind, id)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), 0750)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", kind, err)
	}

	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0600)
}
