package config

import (
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

var (
	LocalSecret *Secret
	Credentials CredentialProvider
	Main        *File
	Connections *File
	ToolCache   *File
)

func init() {
	dir := mustGetConfigHomeDir()
	LocalSecret = NewSecretInConfigHomeDir()
	Credentials = NewLocalKeyProvider(LocalSecret)
	key := func() ([]byte, error) {
		return LocalSecret.DeriveKey(purposeConfig)
	}
	Main = NewConfigFileWithDir(dir, MainFileFullName, key)
	Connections = NewConfigFileWithDir(dir, ConnectionsConfigFileFullName, key)
	ToolCache = NewConfigFileWithDir(dir, ToolCacheFileFullName, key)
}

const (
	MainFileFullName              = "config.yaml"
	ConnectionsConfigFileFullName = "connections.yaml"
	ToolCacheFileFullName         = "toolcache.yaml"
)

// FileNotFoundError denotes failing to find configuration file.
type FileNotFoundError struct {
	name string
}

// Error returns the formatted configuration error.
func (f FileNotFoundError) Error() string {
	return fmt.Sprintf("config file %q not found", f.name)
}

type KeyNotFoundError struct {
	configFile string
	key        string
}

func (k KeyNotFoundError) Error() string {
	return fmt.Sprintf("key %q not found in config file %q", k.key, k.configFile)
}

// IsNotFound reports whether err means the key or its file is missing.
func IsNotFound(err error) bool {
	return errors.As(err, &KeyNotFoundError{}) || errors.As(err, &FileNotFoundError{})
}

// File is a map of keys to YAML values persisted in an EncryptedFile.
type File struct {
	FullPath     string
	data         map[string]interface{}
	dataIsLoaded bool
	f            *EncryptedFile
	mu           sync.Mutex
}

func NewConfigFileWithDir(dirName string, filename string, key KeySource) *File {
	f := NewEncryptedFileWithDir(dirName, filename, key)
	return &File{
		FullPath: f.FullPath,
		data:     make(map[string]interface{}),
		f:        f,
	}
}

// Get will fetch the key from the config File into variable, out.
// Values are decoded with mapstructure so out can be a string or a struct.
// Return KeyNotFoundError if we can't find the key.
func (c *File) Get(key string, out interface{}) error {
	if reflect.ValueOf(out).Kind() != reflect.Ptr {
		return errors.New("out must be a pointer")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	d, ok := c.data[key]
	if !ok { // if the key was not found...
		return KeyNotFoundError{c.FullPath, key}
	}
	if err := mapstructure.Decode(d, out); err != nil {
		return errors.Wrapf(err, "error decoding key %q from config file %q", key, c.FullPath)
	}
	return nil
}

// Exists reports whether key is present.
func (c *File) Exists(key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return false, err
	}
	_, ok := c.data[key]
	return ok, nil
}

// Set writes key=val and saves the file, creating it if required.
func (c *File) Set(key string, val interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	c.data[key] = val
	return c.save()
}

// Delete removes key and saves the file.
func (c *File) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return err
	}
	if _, keyExists := c.data[key]; !keyExists {
		return KeyNotFoundError{c.FullPath, key}
	}
	delete(c.data, key)
	return c.save()
}

// GetAllKeys returns the sorted keys in the file.
// A missing file has no keys.
func (c *File) GetAllKeys() ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.loadData(); err != nil {
		return nil, err
	}
	retval := make([]string, 0, len(c.data))
	for k := range c.data {
		retval = append(retval, k)
	}
	sort.Strings(retval)
	return retval, nil
}

// loadData reads the file once. A missing file is treated as empty.
func (c *File) loadData() error {
	if c.dataIsLoaded {
		return nil
	}
	b, err := c.f.Get()
	if err != nil {
		if errors.As(err, &FileNotFoundError{}) { // if the file is yet to be created...
			c.dataIsLoaded = true
			return nil
		}
		return err
	}
	if err = yaml.Unmarshal(b, &c.data); err != nil {
		return errors.Wrapf(err, "error parsing config file %q", c.FullPath)
	}
	c.dataIsLoaded = true
	return nil
}

// save writes all data and reloads it so that every value is held in its generic YAML form.
func (c *File) save() error {
	b, err := yaml.Marshal(c.data)
	if err != nil {
		return errors.Wrapf(err, "error marshalling data for config file %v", c.FullPath)
	}
	if err = c.f.Set(b); err != nil {
		return err
	}
	c.data = make(map[string]interface{})
	return yaml.Unmarshal(b, &c.data)
}
