package pinstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v3"

	"github.com/Its-donkey/dynamix-mint/logging"
)

const (
	prefixObjectData = "PINS:DATA:"
	prefixObjectMeta = "PINS:META:"
	gcInterval       = 5 * time.Minute
)

type objectMeta struct {
	ContentType string    `json:"content_type"`
	Size        int       `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// BadgerStore persists objects in an embedded badger database.
type BadgerStore struct {
	db     *badger.DB
	logger *logging.Logger
	stop   context.CancelFunc
	done   chan struct{}
}

// OpenBadger opens the database at path and starts value-log GC. An empty
// path opens an in-memory database.
func OpenBadger(ctx context.Context, path string, logger *logging.Logger) (*BadgerStore, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger %q: %w", path, err)
	}

	gcCtx, stop := context.WithCancel(ctx)
	bs := &BadgerStore{db: db, logger: logger, stop: stop, done: make(chan struct{})}
	go bs.collectGarbage(gcCtx, path != "")
	return bs, nil
}

func (bs *BadgerStore) collectGarbage(ctx context.Context, onDisk bool) {
	defer close(bs.done)
	if !onDisk {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(gcInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		lsm, vlog := bs.db.Size()
		if lsm > 8<<20 || vlog > 32<<20 {
			err := bs.db.RunValueLogGC(0.5)
			if err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				bs.logger.Warn("pinstore", "value log gc failed", map[string]any{"error": err.Error()})
			}
		}
	}
}

// EnsureSchema satisfies the Store interface. Badger needs no schema.
func (bs *BadgerStore) EnsureSchema(context.Context) error {
	return nil
}

// Put stores obj unless its identifier is already present.
func (bs *BadgerStore) Put(ctx context.Context, obj Object) error {
	meta, err := json.Marshal(objectMeta{ContentType: obj.ContentType, Size: len(obj.Data), CreatedAt: obj.CreatedAt})
	if err != nil {
		return err
	}
	return bs.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(prefixObjectMeta + obj.CID))
		if err == nil {
			return nil
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Set([]byte(prefixObjectData+obj.CID), obj.Data); err != nil {
			return err
		}
		return txn.Set([]byte(prefixObjectMeta+obj.CID), meta)
	})
}

// Get returns the object or ErrNotFound.
func (bs *BadgerStore) Get(ctx context.Context, id string) (Object, error) {
	txn := bs.db.NewTransaction(false)
	defer txn.Discard()

	metaItem, err := txn.Get([]byte(prefixObjectMeta + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return Object{}, ErrNotFound
	} else if err != nil {
		return Object{}, err
	}
	raw, err := metaItem.ValueCopy(nil)
	if err != nil {
		return Object{}, err
	}
	var meta objectMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Object{}, fmt.Errorf("decode meta for %s: %w", id, err)
	}

	dataItem, err := txn.Get([]byte(prefixObjectData + id))
	if err != nil {
		return Object{}, err
	}
	data, err := dataItem.ValueCopy(nil)
	if err != nil {
		return Object{}, err
	}
	return Object{CID: id, ContentType: meta.ContentType, Data: data, CreatedAt: meta.CreatedAt}, nil
}

// Close stops GC and closes the database.
func (bs *BadgerStore) Close() error {
	bs.stop()
	<-bs.done
	return bs.db.Close()
}
