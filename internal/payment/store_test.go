package payment

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSubmit_ClampsAndSums(t *testing.T) {
	s := NewStore(DefaultTTL)
	defer s.Close()

	rec, err := s.Submit("abc", []Proof{
		{"amount": json.Number("5"), "secret": "s1"},
		{"amount": json.Number("-3"), "secret": "s2"},
		{"amount": "7"},
		{"amount": "garbage"},
		{"secret": "no amount at all"},
	}, "", "https://mint.example", "table 4")
	require.NoError(t, err)
	require.EqualValues(t, 12, rec.Amount)
	require.Equal(t, "sat", rec.Unit)

	got, ok := s.Poll("abc", false)
	require.True(t, ok)
	require.EqualValues(t, 12, got.Amount)
	require.Len(t, got.Proofs, 5)
	require.Equal(t, "https://mint.example", got.Mint)
}

func TestSubmit_RequiresID(t *testing.T) {
	s := NewStore(DefaultTTL)
	defer s.Close()

	_, err := s.Submit("", nil, "sat", "", "")
	require.ErrorIs(t, err, ErrEmptyRequestID)
}

func TestSubmit_OverwritesSameID(t *testing.T) {
	s := NewStore(DefaultTTL)
	defer s.Close()

	_, err := s.Submit("dup", []Proof{{"amount": json.Number("1")}}, "sat", "", "")
	require.NoError(t, err)
	_, err = s.Submit("dup", []Proof{{"amount": json.Number("9")}}, "sat", "", "")
	require.NoError(t, err)

	rec, ok := s.Poll("dup", false)
	require.True(t, ok)
	require.EqualValues(t, 9, rec.Amount)
}

func TestPoll_ConsumeIsExactlyOnce(t *testing.T) {
	s := NewStore(DefaultTTL)
	defer s.Close()

	_, err := s.Submit("abc", []Proof{{"amount": json.Number("21")}}, "sat", "", "")
	require.NoError(t, err)

	rec, ok := s.Poll("abc", true)
	require.True(t, ok)
	require.EqualValues(t, 21, rec.Amount)

	_, ok = s.Poll("abc", false)
	require.False(t, ok)
}

func TestPoll_ConsumeUnderContention(t *testing.T) {
	s := NewStore(DefaultTTL)
	defer s.Close()

	_, err := s.Submit("contested", []Proof{{"amount": json.Number("8")}}, "sat", "", "")
	require.NoError(t, err)

	var (
		wg   sync.WaitGroup
		hits int64
		mu   sync.Mutex
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := s.Poll("contested", true); ok {
				mu.Lock()
				hits++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, hits)
}

func TestExpiry_LazySweepOnPoll(t *testing.T) {
	s := NewStore(time.Second)
	defer s.Close()

	base := time.Now()
	s.now = func() time.Time { return base }
	_, err := s.Submit("stale", []Proof{{"amount": json.Number("4")}}, "sat", "", "")
	require.NoError(t, err)

	// still inside the TTL
	_, ok := s.Poll("stale", false)
	require.True(t, ok)

	s.now = func() time.Time { return base.Add(2 * time.Second) }
	_, ok = s.Poll("stale", false)
	require.False(t, ok)
	require.Zero(t, s.Len())
}

func TestSweep_RemovesOnlyExpired(t *testing.T) {
	s := NewStore(time.Minute)
	defer s.Close()

	base := time.Now()
	s.now = func() time.Time { return base }
	_, err := s.Submit("old", nil, "sat", "", "")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(30 * time.Second) }
	_, err = s.Submit("young", nil, "sat", "", "")
	require.NoError(t, err)

	s.now = func() time.Time { return base.Add(70 * time.Second) }
	require.Equal(t, 1, s.Sweep())

	_, ok := s.Poll("young", false)
	require.True(t, ok)
}
