/*
Package resilience provides a circuit breaker for the remote store client.

# Overview

The breaker prevents cascading failures when the store server becomes
unavailable or slow: after enough consecutive failures it opens and fails
calls immediately until a probe succeeds.

# Usage

	breaker := resilience.New("store", resilience.Settings{
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts resilience.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	err := breaker.Do(func() error {
		return client.Call()
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure] -> Open
*/
package resilience
