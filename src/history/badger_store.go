package history

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger"
	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/sirupsen/logrus"
	"github.com/ugorji/go/codec"
)

const (
	seqPrefix = "seq"
	idPrefix  = "id"
)

// BadgerStore implements Store on a Badger database. Transactions are stored
// under a sequence key so iteration returns them in insertion order; a second
// key per id backs deduplication.
type BadgerStore struct {
	db   *badger.DB
	path string

	lock sync.Mutex
	seq  int
}

// NewBadgerStore opens the database at path, creating it if needed.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithTruncate(true)

	if logger != nil {
		sub := logger.WithFields(logrus.Fields{"ns": "badger"})
		opts = opts.WithLogger(sub)
	}

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, common.NewErr(common.Storage, "open history", path, err)
	}

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	seq, err := store.dbCount()
	if err != nil {
		handle.Close()
		return nil, common.NewErr(common.Storage, "open history", path, err)
	}
	store.seq = seq

	return store, nil
}

/*******************************************************************************
Keys
*******************************************************************************/

func seqKey(index int) []byte {
	return []byte(fmt.Sprintf("%s_%09d", seqPrefix, index))
}

func idKey(id string) []byte {
	return []byte(fmt.Sprintf("%s_%s", idPrefix, id))
}

/*******************************************************************************
Store interface
*******************************************************************************/

// Add implements Store.
func (s *BadgerStore) Add(tx fuel.Transaction) (bool, error) {
	val, err := marshalTx(tx)
	if err != nil {
		return false, common.NewErr(common.Storage, "history add", tx.ID, err)
	}

	s.lock.Lock()
	defer s.lock.Unlock()

	added := false
	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(idKey(tx.ID))
		if err == nil {
			return nil
		}
		if err != badger.ErrKeyNotFound {
			return err
		}

		idx := make([]byte, 8)
		binary.BigEndian.PutUint64(idx, uint64(s.seq))
		if err := txn.Set(idKey(tx.ID), idx); err != nil {
			return err
		}
		if err := txn.Set(seqKey(s.seq), val); err != nil {
			return err
		}
		added = true
		return nil
	})
	if err != nil {
		return false, common.NewErr(common.Storage, "history add", tx.ID, err)
	}

	if added {
		s.seq++
	}
	return added, nil
}

// All implements Store.
func (s *BadgerStore) All() ([]fuel.Transaction, error) {
	var res []fuel.Transaction

	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(seqPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			tx, err := unmarshalTx(val)
			if err != nil {
				return err
			}
			res = append(res, tx)
		}
		return nil
	})
	if err != nil {
		return nil, common.NewErr(common.Storage, "history all", s.path, err)
	}

	return res, nil
}

// Len implements Store.
func (s *BadgerStore) Len() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.seq
}

// StorePath implements Store.
func (s *BadgerStore) StorePath() string {
	return s.path
}

// Close implements Store.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

/*******************************************************************************
DB helpers
*******************************************************************************/

func (s *BadgerStore) dbCount() (int, error) {
	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(seqPrefix + "_")
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func marshalTx(tx fuel.Transaction) ([]byte, error) {
	b := new(bytes.Buffer)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	enc := codec.NewEncoder(b, jh)

	if err := enc.Encode(tx); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

func unmarshalTx(data []byte) (fuel.Transaction, error) {
	var tx fuel.Transaction

	b := bytes.NewBuffer(data)
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	dec := codec.NewDecoder(b, jh)

	if err := dec.Decode(&tx); err != nil {
		return fuel.Transaction{}, err
	}

	return tx, nil
}
