// Package rpc implements the transport-agnostic dispatch layer and the
// versioned object codec used on the wire. Entities are serialized inside an
// envelope carrying their name and version; a peer running an older schema
// asks for its version and the codec backports by dropping younger fields.
package rpc

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/stackmint/stackmint/domain/model"
)

// Namespace tags every envelope produced by this control plane.
const Namespace = "stackmint"

// Envelope is the wire form of a versioned object.
type Envelope struct {
	Name      string          `json:"name"`
	Namespace string          `json:"namespace"`
	Version   string          `json:"version"`
	Changes   []string        `json:"changes,omitempty"`
	Data      json.RawMessage `json:"data"`
}

// Field records when an object field entered the schema. Fields carry the
// JSON key, not the Go name.
type Field struct {
	Name  string
	Since string
}

// ObjectType describes one registered entity schema.
type ObjectType struct {
	Name    string
	Version string
	Fields  []Field
}

// Codec holds the registered object schemas.
type Codec struct {
	types map[string]ObjectType
}

// NewCodec returns an empty codec.
func NewCodec() *Codec {
	return &Codec{types: map[string]ObjectType{}}
}

// RegisterType adds an object schema. Duplicate names are a programming
// error, the same as a duplicate driver registration.
func (c *Codec) RegisterType(t ObjectType) {
	if _, ok := c.types[t.Name]; ok {
		panic("rpc: duplicate object type " + t.Name)
	}
	for _, f := range t.Fields {
		if compareVersions(f.Since, t.Version) > 0 {
			panic(fmt.Sprintf("rpc: field %s.%s is younger than the type itself", t.Name, f.Name))
		}
	}
	c.types[t.Name] = t
}

// Type returns a registered schema.
func (c *Codec) Type(name string) (ObjectType, bool) {
	t, ok := c.types[name]
	return t, ok
}

// Marshal wraps obj in an envelope at the requested version, dropping fields
// younger than it. An empty version means the local one. Changes lists the
// fields a mutator touched, for partial-update consumers.
func (c *Codec) Marshal(name string, obj interface{}, version string, changes []string) (*Envelope, error) {
	t, ok := c.types[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown object type %q", model.ErrInvalidParameter, name)
	}
	if version == "" {
		version = t.Version
	}
	if compareVersions(version, t.Version) > 0 {
		return nil, fmt.Errorf("%w: object %s has no version %s (local %s)",
			model.ErrInvalidParameter, name, version, t.Version)
	}

	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", name, err)
	}
	data := raw
	if version != t.Version {
		data, err = dropYoungerFields(raw, t, version)
		if err != nil {
			return nil, err
		}
	}
	return &Envelope{
		Name:      name,
		Namespace: Namespace,
		Version:   version,
		Changes:   changes,
		Data:      data,
	}, nil
}

// Unmarshal decodes an envelope into out. An envelope newer than the local
// schema is first backported to it, so fields this build has never heard of
// are dropped instead of failing the decode.
func (c *Codec) Unmarshal(env *Envelope, out interface{}) error {
	if env == nil {
		return fmt.Errorf("%w: nil envelope", model.ErrInvalidParameter)
	}
	t, ok := c.types[env.Name]
	if !ok {
		return fmt.Errorf("%w: unknown object type %q", model.ErrInvalidParameter, env.Name)
	}
	data := env.Data
	if compareVersions(env.Version, t.Version) > 0 {
		backported, err := keepKnownFields(data, t)
		if err != nil {
			return err
		}
		data = backported
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s: %w", env.Name, err)
	}
	return nil
}

func dropYoungerFields(raw []byte, t ObjectType, target string) (json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("backport %s: %w", t.Name, err)
	}
	for _, f := range t.Fields {
		if compareVersions(f.Since, target) > 0 {
			delete(m, f.Name)
		}
	}
	return marshalStable(m)
}

func keepKnownFields(raw []byte, t ObjectType) (json.RawMessage, error) {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("backport %s: %w", t.Name, err)
	}
	known := make(map[string]bool, len(t.Fields))
	for _, f := range t.Fields {
		known[f.Name] = true
	}
	for k := range m {
		if !known[k] {
			delete(m, k)
		}
	}
	return marshalStable(m)
}

func marshalStable(m map[string]json.RawMessage) (json.RawMessage, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, _ := json.Marshal(k)
		b.Write(kb)
		b.WriteByte(':')
		b.Write(m[k])
	}
	b.WriteByte('}')
	return json.RawMessage(b.String()), nil
}

// compareVersions orders "major.minor" strings. Malformed components sort
// as zero.
func compareVersions(a, b string) int {
	amaj, amin := splitVersion(a)
	bmaj, bmin := splitVersion(b)
	if amaj != bmaj {
		if amaj < bmaj {
			return -1
		}
		return 1
	}
	if amin != bmin {
		if amin < bmin {
			return -1
		}
		return 1
	}
	return 0
}

func splitVersion(v string) (int, int) {
	maj, min := v, ""
	if i := strings.IndexByte(v, '.'); i >= 0 {
		maj, min = v[:i], v[i+1:]
	}
	mj, _ := strconv.Atoi(maj)
	mn, _ := strconv.Atoi(min)
	return mj, mn
}
