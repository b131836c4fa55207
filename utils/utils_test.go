package utils

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis Tests

func TestRedisHealthCheck(t *testing.T) {
	db, mock := redismock.NewClientMock()
	defer mock.ClearExpect()

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, RedisHealthCheck(db))

	mock.ExpectPing().SetErr(errors.New("connection refused"))
	assert.Error(t, RedisHealthCheck(db))
}

// Ticket Number Tests

func TestGenerateCode(t *testing.T) {
	code, err := GenerateCode(8)

	require.NoError(t, err)
	assert.Len(t, code, 16) // hex doubles the byte count
	assert.Regexp(t, regexp.MustCompile(`^[0-9A-F]+$`), code)
}

func TestGenerateDigits(t *testing.T) {
	code, err := GenerateDigits(6)

	require.NoError(t, err)
	assert.Len(t, code, 6)
	assert.Regexp(t, regexp.MustCompile(`^[0-9]+$`), code)
}

func TestTicketNumber_Format(t *testing.T) {
	number, err := TicketNumber()

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^EVT-[0-9]{6}-[0-9A-Z]+$`), number)
}

// Circuit Breaker Tests

func TestCircuitBreaker_NewCircuitBreaker(t *testing.T) {
	cb := NewCircuitBreaker("test")

	assert.Equal(t, "test", cb.name)
	assert.Equal(t, uint32(100), cb.maxRequests)
	assert.Equal(t, 60*time.Second, cb.interval)
	assert.Equal(t, 60*time.Second, cb.timeout)
	assert.Equal(t, 0.6, cb.failureRatio)
	assert.Equal(t, StateClosed, cb.state)
}

func TestCircuitBreaker_ExecuteSuccess(t *testing.T) {
	cb := NewCircuitBreaker("test")

	err := cb.Execute(func() error { return nil })

	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(1), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(0), cb.counts.TotalFailures)
}

func TestCircuitBreaker_ExecuteFailure(t *testing.T) {
	cb := NewCircuitBreaker("test")

	expectedError := errors.New("test error")
	err := cb.Execute(func() error { return expectedError })

	assert.Equal(t, expectedError, err)
	assert.Equal(t, uint32(1), cb.counts.Requests)
	assert.Equal(t, uint32(0), cb.counts.TotalSuccesses)
	assert.Equal(t, uint32(1), cb.counts.TotalFailures)
}

func TestCircuitBreaker_StateTransition_ClosedToOpen(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 5 // lower threshold for testing
	cb.failureRatio = 0.6

	for i := 0; i < 2; i++ {
		err := cb.Execute(func() error { return nil })
		assert.NoError(t, err)
	}

	for i := 0; i < 4; i++ {
		cb.Execute(func() error { return errors.New("failure") })
	}

	assert.Equal(t, StateOpen, cb.State())

	err := cb.Execute(func() error { return nil })
	assert.Equal(t, ErrCircuitOpen, err)
}

func TestCircuitBreaker_OpenToHalfOpenAfterTimeout(t *testing.T) {
	cb := NewCircuitBreaker("test")
	cb.maxRequests = 2
	cb.timeout = 10 * time.Millisecond

	for i := 0; i < 2; i++ {
		cb.Execute(func() error { return errors.New("failure") })
	}
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(20 * time.Millisecond)

	// the probe succeeds and closes the circuit again
	err := cb.Execute(func() error { return nil })
	assert.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}
