package counter

import (
	"context"
	"strconv"
	"strings"

	"github.com/madaniagency/licensee-checkout/internal/pkg/cache"
)

const (
	stepCountsKey  = "checkout:counters:steps"
	errorCountsKey = "checkout:counters:errors"
)

// AddStep increments the pending counter for a checkout step in Redis
func AddStep(step string) error {
	return cache.GetClient().HIncrBy(context.Background(), stepCountsKey, step, 1).Err()
}

// AddStepError increments the error counter for a checkout step in Redis
func AddStepError(step string) error {
	return cache.GetClient().HIncrBy(context.Background(), errorCountsKey, step, 1).Err()
}

// StepCounts returns the accumulated per-step request counters.
func StepCounts() (map[string]int64, error) {
	return readHash(stepCountsKey)
}

// StepErrorCounts returns the accumulated per-step error counters.
func StepErrorCounts() (map[string]int64, error) {
	return readHash(errorCountsKey)
}

// Reset drops both counter hashes. Used by operational tooling and tests.
func Reset() error {
	return cache.GetClient().Del(context.Background(), stepCountsKey, errorCountsKey).Err()
}

func readHash(key string) (map[string]int64, error) {
	data, err := cache.GetClient().HGetAll(context.Background(), key).Result()
	if err != nil {
		// Missing key means no traffic yet, not a failure
		if strings.Contains(strings.ToLower(err.Error()), "no such key") || err.Error() == "redis: nil" {
			return map[string]int64{}, nil
		}
		return nil, err
	}

	out := make(map[string]int64, len(data))
	for k, v := range data {
		n, perr := strconv.ParseInt(v, 10, 64)
		if perr != nil {
			continue
		}
		out[k] = n
	}
	return out, nil
}
