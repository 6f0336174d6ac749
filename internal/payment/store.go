// Package payment bridges out-of-band ecash settlement: a payer posts bearer
// proofs against a caller-generated request id, and the requester polls until
// they arrive. Records live in process memory only and age out after a TTL;
// a restart forgets everything pending, which the TTL horizon makes
// acceptable.
package payment

import (
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"sync"
	"time"
)

var (
	ErrEmptyRequestID = errors.New("request id is required")
)

// DefaultTTL bounds how long a submitted record waits to be collected.
const DefaultTTL = 600 * time.Second

// Proof is an opaque bearer token as submitted by the payer's wallet. Only
// the amount field is interpreted here; cryptographic validity is the mint's
// business.
type Proof map[string]any

// amount returns the proof's integer amount clamped at zero. Anything
// unparseable counts as zero.
func (p Proof) amount() int64 {
	v, ok := p["amount"]
	if !ok {
		return 0
	}
	var n int64
	switch a := v.(type) {
	case json.Number:
		f, err := a.Float64()
		if err != nil {
			return 0
		}
		n = int64(f)
	case float64:
		n = int64(a)
	case int:
		n = int64(a)
	case int64:
		n = a
	case string:
		f, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return 0
		}
		n = int64(f)
	default:
		return 0
	}
	if n < 0 {
		return 0
	}
	return n
}

// Record is what a poll hands back.
type Record struct {
	RequestID  string    `json:"request_id"`
	Proofs     []Proof   `json:"proofs"`
	Amount     int64     `json:"amount"`
	Unit       string    `json:"unit"`
	Mint       string    `json:"mint"`
	Memo       string    `json:"memo,omitempty"`
	ReceivedAt time.Time `json:"timestamp"`
}

func (r *Record) expiresAt(ttl time.Duration) time.Time {
	return r.ReceivedAt.Add(ttl)
}

// Store is the process-wide request registry. It is constructed at startup
// and injected wherever needed; there is no package-level instance.
type Store struct {
	mu      sync.Mutex
	ttl     time.Duration
	records map[string]*Record

	stop chan struct{}
	once sync.Once
	now  func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		ttl:     ttl,
		records: make(map[string]*Record),
		stop:    make(chan struct{}),
		now:     time.Now,
	}
}

// Submit stores proofs under the request id, replacing whatever was there.
// Two payers racing on the same id overwrite each other; ids are
// caller-generated UUIDs so this stays a documented risk rather than an
// authenticated channel.
func (s *Store) Submit(requestID string, proofs []Proof, unit, mint, memo string) (*Record, error) {
	if requestID == "" {
		return nil, ErrEmptyRequestID
	}
	var total int64
	for _, p := range proofs {
		total += p.amount()
	}
	if unit == "" {
		unit = "sat"
	}
	rec := &Record{
		RequestID:  requestID,
		Proofs:     proofs,
		Amount:     total,
		Unit:       unit,
		Mint:       mint,
		Memo:       memo,
		ReceivedAt: s.now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()
	s.records[requestID] = rec
	return rec, nil
}

// Poll reports whether proofs have arrived for the id. With consume set the
// record is deleted before the lock is released, so exactly one consuming
// poll can ever succeed for a given record.
func (s *Store) Poll(requestID string, consume bool) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked()

	rec, ok := s.records[requestID]
	if !ok {
		return nil, false
	}
	if consume {
		delete(s.records, requestID)
	}
	return rec, true
}

// Sweep drops expired records and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sweepLocked()
}

func (s *Store) sweepLocked() int {
	now := s.now()
	n := 0
	for id, rec := range s.records {
		if now.After(rec.expiresAt(s.ttl)) {
			delete(s.records, id)
			n++
		}
	}
	return n
}

// Len reports how many records are pending, expired ones included.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// StartSweeper sweeps on a timer until Close. Lazy sweeping on access already
// keeps results correct; the timer bounds memory when nobody is polling.
func (s *Store) StartSweeper(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				if n := s.Sweep(); n > 0 {
					log.Printf("[sweep] dropped %d expired payment records", n)
				}
			case <-s.stop:
				return
			}
		}
	}()
}

func (s *Store) Close() {
	s.once.Do(func() { close(s.stop) })
}
