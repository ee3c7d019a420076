package resilience

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFlightCollapsesConcurrentCalls(t *testing.T) {
	var flight Flight[string]
	var executions int32

	const workers = 20
	start := make(chan struct{})
	var shared, wrong int32
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			val, err, wasShared := flight.Do("/fixtures?live=all", func() (string, error) {
				atomic.AddInt32(&executions, 1)
				time.Sleep(20 * time.Millisecond)
				return "envelope", nil
			})
			if err != nil || val != "envelope" {
				atomic.AddInt32(&wrong, 1)
			}
			if wasShared {
				atomic.AddInt32(&shared, 1)
			}
		}()
	}

	close(start)
	wg.Wait()

	require.Zero(t, atomic.LoadInt32(&wrong))
	require.EqualValues(t, 1, atomic.LoadInt32(&executions))
	require.EqualValues(t, workers-1, atomic.LoadInt32(&shared))
}

func TestFlightDistinctKeysRunIndependently(t *testing.T) {
	var flight Flight[int]

	a, err, shared := flight.Do("a", func() (int, error) { return 1, nil })
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, 1, a)

	b, err, shared := flight.Do("b", func() (int, error) { return 2, nil })
	require.NoError(t, err)
	require.False(t, shared)
	require.Equal(t, 2, b)
}

func TestFlightKeyReusableAfterCompletion(t *testing.T) {
	var flight Flight[int]
	var executions int32

	for i := 0; i < 3; i++ {
		_, err, _ := flight.Do("key", func() (int, error) {
			atomic.AddInt32(&executions, 1)
			return i, nil
		})
		require.NoError(t, err)
	}
	require.EqualValues(t, 3, executions)
}
