package docstore

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sync"

	"go.mongodb.org/mongo-driver/bson"
)

// MemoryStore keeps BSON-encoded documents in process memory. Documents go
// through the same bson codecs as the Mongo backend, so struct tags behave
// identically. Find returns documents in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*memCollection
}

type memCollection struct {
	docs  map[string]bson.Raw
	order []string
}

var _ Store = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*memCollection)}
}

func (s *MemoryStore) collection(name string) *memCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memCollection{docs: make(map[string]bson.Raw)}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string, out interface{}) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	if err := bson.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *MemoryStore) Find(ctx context.Context, collection string, filter Filter, out interface{}) error {
	rv := reflect.ValueOf(out)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("find %s: out must be a pointer to a slice", collection)
	}
	want, err := encodeFilter(filter)
	if err != nil {
		return fmt.Errorf("find %s: %w", collection, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	slice := reflect.MakeSlice(rv.Elem().Type(), 0, 0)
	elemType := rv.Elem().Type().Elem()

	if c, ok := s.collections[collection]; ok {
		for _, id := range c.order {
			raw := c.docs[id]
			if !matches(raw, want) {
				continue
			}
			elem := reflect.New(elemType)
			if err := bson.Unmarshal(raw, elem.Interface()); err != nil {
				return fmt.Errorf("decode %s/%s: %w", collection, id, err)
			}
			slice = reflect.Append(slice, elem.Elem())
		}
	}
	rv.Elem().Set(slice)
	return nil
}

func (s *MemoryStore) Count(ctx context.Context, collection string, filter Filter) (int64, error) {
	want, err := encodeFilter(filter)
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", collection, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.collections[collection]
	if !ok {
		return 0, nil
	}
	var n int64
	for _, raw := range c.docs {
		if matches(raw, want) {
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) Put(ctx context.Context, collection, id string, doc interface{}) error {
	raw, err := encodeWithID(doc, id)
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.collection(collection).put(id, raw)
	return nil
}

func (s *MemoryStore) PutMany(ctx context.Context, collection string, ids []string, docs []interface{}) error {
	if len(ids) != len(docs) {
		return fmt.Errorf("put many %s: %d ids for %d docs", collection, len(ids), len(docs))
	}
	encoded := make([]bson.Raw, len(docs))
	for i, doc := range docs {
		raw, err := encodeWithID(doc, ids[i])
		if err != nil {
			return fmt.Errorf("put many %s/%s: %w", collection, ids[i], err)
		}
		encoded[i] = raw
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.collection(collection)
	for i, raw := range encoded {
		c.put(ids[i], raw)
	}
	return nil
}

func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields Fields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return ErrNotFound
	}
	raw, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}

	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	for k, v := range fields {
		m[k] = v
	}
	updated, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("update %s/%s: %w", collection, id, err)
	}
	c.docs[id] = updated
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[collection]
	if !ok {
		return nil
	}
	if _, ok := c.docs[id]; !ok {
		return nil
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *MemoryStore) Close(ctx context.Context) error { return nil }

func (c *memCollection) put(id string, raw bson.Raw) {
	if _, exists := c.docs[id]; !exists {
		c.order = append(c.order, id)
	}
	c.docs[id] = raw
}

func encodeWithID(doc interface{}, id string) (bson.Raw, error) {
	data, err := bson.Marshal(doc)
	if err != nil {
		return nil, err
	}
	var m bson.M
	if err := bson.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	m["_id"] = id
	return bson.Marshal(m)
}

// encodeFilter turns each predicate value into its BSON wire form so it can
// be compared byte-for-byte with stored fields.
func encodeFilter(filter Filter) (map[string]bson.RawValue, error) {
	want := make(map[string]bson.RawValue, len(filter))
	for k, v := range filter {
		raw, err := bson.Marshal(bson.M{"v": v})
		if err != nil {
			return nil, fmt.Errorf("encode predicate %q: %w", k, err)
		}
		want[k] = bson.Raw(raw).Lookup("v")
	}
	return want, nil
}

func matches(doc bson.Raw, want map[string]bson.RawValue) bool {
	for k, w := range want {
		got, err := doc.LookupErr(k)
		if err != nil {
			// a missing field only matches an explicit null predicate
			if w.Type == bson.TypeNull {
				continue
			}
			return false
		}
		if got.Type != w.Type || !bytes.Equal(got.Value, w.Value) {
			return false
		}
	}
	return true
}
