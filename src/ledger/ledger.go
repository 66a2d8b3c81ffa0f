// Package ledger implements the distributor's redundant transaction store.
//
// Every transaction is appended to two files, primary then backup, under one
// lock. The pair is not atomic: a failure on one target is logged and the
// other is still written. VerifyIntegrity compares the two files by record
// count only.
package ledger

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/mosaicnetworks/fuelnet/src/common"
	"github.com/mosaicnetworks/fuelnet/src/fuel"
	"github.com/sirupsen/logrus"
)

const (
	primarySuffix = "_primary.csv"
	backupSuffix  = "_backup.csv"
)

// Ledger is the append-only store of one distributor.
type Ledger struct {
	owner       string
	primaryPath string
	backupPath  string

	writeLock sync.Mutex
	records   int64

	logger *logrus.Entry
}

// Stats summarises the state of both storage targets.
type Stats struct {
	Records       int64
	PrimaryExists bool
	BackupExists  bool
}

// Open creates dir and both files if needed, and initialises the record
// counter from the primary file.
func Open(dir string, owner string, logger *logrus.Entry) (*Ledger, error) {
	if logger == nil {
		log := logrus.New()
		log.Level = logrus.DebugLevel
		logger = logrus.NewEntry(log)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, common.NewErr(common.Storage, "open ledger", dir, err)
	}

	l := &Ledger{
		owner:       owner,
		primaryPath: filepath.Join(dir, owner+primarySuffix),
		backupPath:  filepath.Join(dir, owner+backupSuffix),
		logger:      logger.WithField("node", owner),
	}

	for _, p := range []string{l.primaryPath, l.backupPath} {
		if err := touch(p); err != nil {
			return nil, common.NewErr(common.Storage, "open ledger", p, err)
		}
	}

	lines, err := readLines(l.primaryPath)
	if err != nil {
		return nil, common.NewErr(common.Storage, "open ledger", l.primaryPath, err)
	}
	l.records = int64(len(lines))

	l.logger.WithFields(logrus.Fields{
		"primary": l.primaryPath,
		"backup":  l.backupPath,
		"records": l.records,
	}).Debug("Ledger opened")

	return l, nil
}

// PrimaryPath ...
func (l *Ledger) PrimaryPath() string {
	return l.primaryPath
}

// BackupPath ...
func (l *Ledger) BackupPath() string {
	return l.backupPath
}

// Append writes tx to primary then backup. Both writes are always attempted.
// The returned error, if any, joins the Storage errors of the failed targets;
// callers log it and carry on.
func (l *Ledger) Append(tx fuel.Transaction) error {
	line := tx.Record() + "\n"

	l.writeLock.Lock()
	defer l.writeLock.Unlock()

	var errs []error
	for _, p := range []string{l.primaryPath, l.backupPath} {
		if err := appendLine(p, line); err != nil {
			serr := common.NewErr(common.Storage, "append", p, err)
			l.logger.WithError(serr).Error("Ledger write failed")
			errs = append(errs, serr)
		}
	}

	atomic.AddInt64(&l.records, 1)

	return errors.Join(errs...)
}

// Count returns the number of Append calls plus the records found at Open.
func (l *Ledger) Count() int64 {
	return atomic.LoadInt64(&l.records)
}

// LoadAll parses the primary file. Malformed records are logged and skipped.
func (l *Ledger) LoadAll() ([]fuel.Transaction, error) {
	l.writeLock.Lock()
	lines, err := readLines(l.primaryPath)
	l.writeLock.Unlock()

	if err != nil {
		serr := common.NewErr(common.Storage, "load", l.primaryPath, err)
		l.logger.WithError(serr).Error("Ledger read failed")
		return nil, serr
	}

	txs := make([]fuel.Transaction, 0, len(lines))
	for i, line := range lines {
		tx, err := fuel.ParseRecord(line)
		if err != nil {
			l.logger.WithField("line", i+1).WithError(err).Warn("Skipping malformed record")
			continue
		}
		if !tx.Consistent() {
			l.logger.WithField("id", tx.ID).Warn("Record total disagrees with its fields")
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// VerifyIntegrity reports whether primary and backup hold the same number of
// records. A mismatch is logged as IntegrityMismatch and left as is.
func (l *Ledger) VerifyIntegrity() bool {
	l.writeLock.Lock()
	primary, perr := readLines(l.primaryPath)
	backup, berr := readLines(l.backupPath)
	l.writeLock.Unlock()

	for _, e := range []struct {
		path string
		err  error
	}{{l.primaryPath, perr}, {l.backupPath, berr}} {
		if e.err != nil {
			l.logger.WithError(common.NewErr(common.Storage, "verify", e.path, e.err)).Error("Ledger read failed")
		}
	}

	if len(primary) != len(backup) {
		err := common.NewErr(common.IntegrityMismatch, "verify", l.owner,
			fmt.Errorf("primary has %d records, backup has %d", len(primary), len(backup)))
		l.logger.WithError(err).Error("Ledger inconsistent")
		return false
	}

	l.logger.WithField("records", len(primary)).Info("Ledger integrity verified")
	return true
}

// Stats ...
func (l *Ledger) Stats() Stats {
	return Stats{
		Records:       l.Count(),
		PrimaryExists: exists(l.primaryPath),
		BackupExists:  exists(l.backupPath),
	}
}

func touch(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

func appendLine(path string, line string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.WriteString(line); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// readLines returns the non-blank lines of path. A missing file reads as
// empty.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 4096), 1<<20)
	for sc.Scan() {
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		lines = append(lines, sc.Text())
	}
	return lines, sc.Err()
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
