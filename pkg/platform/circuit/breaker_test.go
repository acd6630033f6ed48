package circuit

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type BreakerSuite struct {
	suite.Suite
}

func TestBreakerSuite(t *testing.T) {
	suite.Run(t, new(BreakerSuite))
}

func (s *BreakerSuite) TestInitialState() {
	b := New("audit_store")
	s.False(b.IsOpen())
	s.Equal(StateClosed, b.State())
	s.Equal("audit_store", b.Name())
	s.Equal("closed", b.State().String())
}

func (s *BreakerSuite) TestOpening() {
	s.Run("opens on the threshold failure only", func() {
		b := New("t", WithFailureThreshold(3))
		for range 2 {
			useFallback, change := b.RecordFailure()
			s.False(useFallback)
			s.False(change.Opened)
		}
		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.True(change.Opened)
		s.Equal(StateOpen, b.State())
	})

	s.Run("further failures while open report no transition", func() {
		b := New("t", WithFailureThreshold(1))
		b.RecordFailure()
		useFallback, change := b.RecordFailure()
		s.True(useFallback)
		s.False(change.Opened)
	})

	s.Run("success in closed state resets the failure streak", func() {
		b := New("t", WithFailureThreshold(3))
		b.RecordFailure()
		b.RecordFailure()
		usePrimary, _ := b.RecordSuccess()
		s.True(usePrimary)
		b.RecordFailure()
		b.RecordFailure()
		s.False(b.IsOpen())
		b.RecordFailure()
		s.True(b.IsOpen())
	})
}

func (s *BreakerSuite) TestClosing() {
	s.Run("closes after consecutive successes", func() {
		b := New("t", WithFailureThreshold(1), WithSuccessThreshold(2))
		b.RecordFailure()

		usePrimary, change := b.RecordSuccess()
		s.False(usePrimary)
		s.False(change.Closed)

		usePrimary, change = b.RecordSuccess()
		s.True(usePrimary)
		s.True(change.Closed)
		s.False(b.IsOpen())
	})

	s.Run("a failure restarts the success streak", func() {
		b := New("t", WithFailureThreshold(1), WithSuccessThreshold(3))
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()
		b.RecordFailure()
		b.RecordSuccess()
		b.RecordSuccess()
		s.True(b.IsOpen())
		b.RecordSuccess()
		s.False(b.IsOpen())
	})

	s.Run("reset forces closed", func() {
		b := New("t", WithFailureThreshold(1))
		b.RecordFailure()
		b.Reset()
		s.Equal(StateClosed, b.State())
	})
}
