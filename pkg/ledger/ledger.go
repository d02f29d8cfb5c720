package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path"
	"strings"
	"time"
)

// GenesisHash is the previous hash of records that do not belong to a stored chain.
var GenesisHash = strings.Repeat("0", 64)

// TimestampFormat matches Python's `datetime.isoformat()` for a naive timestamp with microseconds.
const TimestampFormat = "2006-01-02T15:04:05.000000"

type (
	// Record is one entry of an audit chain. Hash covers Data chained onto PreviousHash.
	Record struct {
		ID        string         `json:"id"`
		Timestamp string         `json:"timestamp"`
		Data      map[string]any `json:"data"`
		Hash      string         `json:"hash"`
		// PreviousHash is empty for the first record of a chain and is stored as `null`.
		PreviousHash string `json:"previous_hash"`
	}

	// VerifiedRecord summarizes a record that passed verification.
	VerifiedRecord struct {
		Key       string `json:"key"`
		Timestamp string `json:"timestamp"`
		Hash      string `json:"hash"`
	}

	// Entry is a stored record and the key it was read from.
	Entry struct {
		Key    string
		Record Record
	}

	ChainError struct {
		Key    string
		Reason string
	}
)

func (e *ChainError) Error() string {
	return fmt.Sprintf("%s at record %s", e.Reason, e.Key)
}

// Hash is base64(sha256(previousHash + canonical(data))).
func Hash(data any, previousHash string) (string, error) {
	canonical, err := Canonical(data)
	if err != nil {
		return "", fmt.Errorf("could not canonicalize record data: %w", err)
	}
	h := sha256.New()
	h.Write([]byte(previousHash))
	h.Write(canonical)
	return base64.StdEncoding.EncodeToString(h.Sum(nil)), nil
}

// NewRecord hashes data onto previousHash.
func NewRecord(id string, at time.Time, data map[string]any, previousHash string) (Record, error) {
	hash, err := Hash(data, previousHash)
	if err != nil {
		return Record{}, err
	}
	return Record{
		ID:           id,
		Timestamp:    at.Format(TimestampFormat),
		Data:         data,
		Hash:         hash,
		PreviousHash: previousHash,
	}, nil
}

func (r Record) MarshalJSON() ([]byte, error) {
	type record Record
	var previous any
	if r.PreviousHash != "" {
		previous = r.PreviousHash
	}
	return json.Marshal(struct {
		record
		PreviousHash any `json:"previous_hash"`
	}{record: record(r), PreviousHash: previous})
}

// ParseRecord decodes a stored record. Numbers keep their stored form so that the data hashes the same
// way it did when the record was written.
func ParseRecord(data []byte) (Record, error) {
	var r Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&r); err != nil {
		return Record{}, fmt.Errorf("could not parse record: %w", err)
	}
	return r, nil
}

// Verify checks that each entry links to the one before it and that its hash matches its data.
// Entries must already be in chain order.
func Verify(entries []Entry) ([]VerifiedRecord, error) {
	verified := make([]VerifiedRecord, 0, len(entries))
	previous := ""
	for _, e := range entries {
		if e.Record.PreviousHash != previous {
			return verified, &ChainError{
				Key:    e.Key,
				Reason: fmt.Sprintf("Chain broken: expected previous hash %q, got %q", previous, e.Record.PreviousHash),
			}
		}
		calculated, err := Hash(e.Record.Data, previous)
		if err != nil {
			return verified, fmt.Errorf("record %s: %w", e.Key, err)
		}
		if calculated != e.Record.Hash {
			return verified, &ChainError{
				Key:    e.Key,
				Reason: fmt.Sprintf("Hash mismatch: expected %s, calculated %s", e.Record.Hash, calculated),
			}
		}
		previous = e.Record.Hash
		verified = append(verified, VerifiedRecord{Key: e.Key, Timestamp: e.Record.Timestamp, Hash: e.Record.Hash})
	}
	return verified, nil
}

// Key is where a record of dataset is stored in the ledger bucket. Keys of a dataset sort in the
// order the records were written.
func Key(dataset string, r Record) string {
	return fmt.Sprintf("%s%s-%s.json", DatasetPrefix(dataset), r.Timestamp, r.ID)
}

// KeyTimestamp is the write time encoded in a key made by [Key].
func KeyTimestamp(key string) (time.Time, error) {
	name := path.Base(key)
	if len(name) < len(TimestampFormat) {
		return time.Time{}, fmt.Errorf("key %s has no timestamp", key)
	}
	return time.Parse(TimestampFormat, name[:len(TimestampFormat)])
}

// NextTimestamp is the time to stamp on a record written after the one at latestKey. It is now, unless
// that would not sort after latestKey (same microsecond or a clock behind the previous writer's), in
// which case it is one microsecond after the latest record.
func NextTimestamp(now time.Time, latestKey string) time.Time {
	if latestKey == "" {
		return now
	}
	latest, err := KeyTimestamp(latestKey)
	if err != nil || now.Truncate(time.Microsecond).After(latest) {
		return now
	}
	return latest.Add(time.Microsecond)
}

func DatasetPrefix(dataset string) string {
	return "audit/" + dataset + "/"
}

// DefaultDataset holds records of objects that are not under a dataset prefix.
const DefaultDataset = "default"

// DatasetOf is the dataset an uploaded object belongs to: the first segment of its key.
func DatasetOf(objectKey string) string {
	dataset, _, found := strings.Cut(objectKey, "/")
	if !found || dataset == "" {
		return DefaultDataset
	}
	return dataset
}
