// Package credstore keeps account secrets in files encrypted with a
// kryptograf data key.
package credstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"unicode"

	"pkt.systems/kryptograf"
	"pkt.systems/kryptograf/keymgmt"
	"pkt.systems/pslog"
)

const (
	// DefaultNamespace is the namespace loaded when none are configured.
	DefaultNamespace = "user"
	descriptorPrefix = "marquee:credstore:"
	fileSuffix       = ".enc"
)

// Config locates the credential files and the key store.
type Config struct {
	// Dir holds one encrypted file per namespace.
	Dir string
	// KeyStorePath is the kryptograf key store holding the root key.
	KeyStorePath string
	// Namespaces are loaded in order; later namespaces override earlier ones.
	Namespaces []string
	Logger     pslog.Logger
}

// Store is an in-memory key/value view over encrypted namespace files.
type Store struct {
	dir       string
	storePath string
	log       pslog.Logger

	mu     sync.Mutex
	values map[string]string
}

// EnsureKeyStore creates or loads the key store at path and ensures a root
// key exists.
func EnsureKeyStore(path string, logger pslog.Logger) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("credential key store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		if logger != nil {
			logger.Warn("credential key store ensure failed", "err", err)
		}
		return err
	}
	store, err := keymgmt.LoadProto(path)
	if err != nil {
		if logger != nil {
			logger.Warn("credential key store ensure failed", "err", err)
		}
		return err
	}
	if _, err := store.EnsureRootKey(); err != nil {
		if logger != nil {
			logger.Warn("credential key store ensure failed", "err", err)
		}
		return err
	}
	if err := store.Commit(); err != nil {
		if logger != nil {
			logger.Warn("credential key store ensure failed", "err", err)
		}
		return err
	}
	if logger != nil {
		logger.Debug("credential key store ensure ok", "path", path)
	}
	return nil
}

// Open ensures the key store and loads every configured namespace.
func Open(cfg Config) (*Store, error) {
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, errors.New("credential store directory is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, err
	}
	if err := EnsureKeyStore(cfg.KeyStorePath, cfg.Logger); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger != nil {
		logger = logger.With("credentials_dir", cfg.Dir)
	}
	s := &Store{
		dir:       cfg.Dir,
		storePath: cfg.KeyStorePath,
		log:       logger,
		values:    map[string]string{},
	}
	namespaces := cfg.Namespaces
	if len(namespaces) == 0 {
		namespaces = []string{DefaultNamespace}
	}
	for _, ns := range namespaces {
		values, err := s.load(ns)
		if err != nil {
			return nil, fmt.Errorf("load namespace %s: %w", ns, err)
		}
		for k, v := range values {
			s.values[k] = v
		}
	}
	return s, nil
}

// Get returns the value for key, or "" when unset.
func (s *Store) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

// Set updates key in memory. An empty value removes the key. Call Persist
// to make the change durable.
func (s *Store) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if value == "" {
		delete(s.values, key)
		return
	}
	s.values[key] = value
}

// Keys returns the stored keys.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.values))
	for k := range s.values {
		out = append(out, k)
	}
	return out
}

// Persist writes the current values to the namespace file.
func (s *Store) Persist(namespace string) error {
	s.mu.Lock()
	data, err := json.Marshal(s.values)
	count := len(s.values)
	s.mu.Unlock()
	if err != nil {
		s.warn("credential persist failed", namespace, err)
		return err
	}
	if err := s.write(namespace, data); err != nil {
		s.warn("credential persist failed", namespace, err)
		return err
	}
	if s.log != nil {
		s.log.Debug("credential persist ok", "namespace", namespace, "keys", count)
	}
	return nil
}

func (s *Store) load(namespace string) (map[string]string, error) {
	path := s.pathFor(namespace)
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if s.log != nil {
				s.log.Debug("credential load miss", "namespace", namespace)
			}
			return nil, nil
		}
		s.warn("credential load failed", namespace, err)
		return nil, err
	}
	defer func() { _ = file.Close() }()
	material, root, err := s.materialFor(namespace)
	if err != nil {
		return nil, err
	}
	kg := kryptograf.New(root)
	reader, err := kg.DecryptReader(file, material)
	if err != nil {
		s.warn("credential load failed", namespace, err)
		return nil, err
	}
	defer func() { _ = reader.Close() }()
	plain, err := io.ReadAll(reader)
	if err != nil {
		s.warn("credential load failed", namespace, err)
		return nil, err
	}
	values := map[string]string{}
	if err := json.Unmarshal(plain, &values); err != nil {
		s.warn("credential load failed", namespace, err)
		return nil, err
	}
	if s.log != nil {
		s.log.Debug("credential load ok", "namespace", namespace, "keys", len(values))
	}
	return values, nil
}

func (s *Store) write(namespace string, plain []byte) error {
	material, root, err := s.materialFor(namespace)
	if err != nil {
		return err
	}
	kg := kryptograf.New(root)
	tmp, err := os.CreateTemp(s.dir, "cred-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	writer, err := kg.EncryptWriter(tmp, material)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if _, err := io.Copy(writer, bytes.NewReader(plain)); err != nil {
		_ = writer.Close()
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := writer.Close(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, s.pathFor(namespace)); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (s *Store) materialFor(namespace string) (keymgmt.Material, keymgmt.RootKey, error) {
	store, err := keymgmt.LoadProto(s.storePath)
	if err != nil {
		s.warn("credential material load failed", namespace, err)
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	root, err := store.EnsureRootKey()
	if err != nil {
		s.warn("credential material load failed", namespace, err)
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	descName := descriptorPrefix + namespace
	material, err := store.EnsureDescriptor(descName, root, []byte(descName))
	if err != nil {
		s.warn("credential material ensure failed", namespace, err)
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	if err := store.Commit(); err != nil {
		s.warn("credential material commit failed", namespace, err)
		return keymgmt.Material{}, keymgmt.RootKey{}, err
	}
	return material, root, nil
}

func (s *Store) warn(msg, namespace string, err error) {
	if s.log != nil {
		s.log.Warn(msg, "namespace", namespace, "err", err)
	}
}

func (s *Store) pathFor(namespace string) string {
	name := sanitize(namespace)
	if name == "" {
		name = DefaultNamespace
	}
	return filepath.Join(s.dir, name+fileSuffix)
}

func sanitize(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-' || r == '_' || r == '.' {
			b.WriteRune(r)
			continue
		}
		b.WriteRune('_')
	}
	return b.String()
}
