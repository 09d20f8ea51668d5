// Copyright(c) 2024-2026 groundsim contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package util

import "golang.org/x/exp/constraints"

// Clamp restricts v to [lo, hi].
func Clamp[T constraints.Ordered](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Min returns the smaller of a and b.
func Min[T constraints.Ordered](a, b T) T {
	if a < b {
		return a
	}
	return b
}

// Max returns the larger of a and b.
func Max[T constraints.Ordered](a, b T) T {
	if a > b {
		return a
	}
	return b
}

// ExpireSet tracks a set of keys each stamped with the simulated time
// at which they became eligible for expiry, rather than wall-clock time
// (the teacher's TransientMap uses time.Now(), which isn't appropriate
// here since the simulator's clock is the tick counter, not the wall
// clock). It's what holds completed aircraft for their 60s grace period
// before they're dropped from the active set.
type ExpireSet[K comparable] struct {
	expireAt map[K]float64
}

// NewExpireSet creates an empty ExpireSet.
func NewExpireSet[K comparable]() *ExpireSet[K] {
	return &ExpireSet[K]{expireAt: make(map[K]float64)}
}

// Add marks key as expiring once simulated time passes expireAt.
func (s *ExpireSet[K]) Add(key K, expireAt float64) {
	s.expireAt[key] = expireAt
}

// Delete removes a key outright, regardless of its expiry time.
func (s *ExpireSet[K]) Delete(key K) {
	delete(s.expireAt, key)
}

// Expired returns the keys whose expiry time is at or before now, and
// removes them from the set.
func (s *ExpireSet[K]) Expired(now float64) []K {
	var expired []K
	for k, t := range s.expireAt {
		if now >= t {
			expired = append(expired, k)
		}
	}
	for _, k := range expired {
		delete(s.expireAt, k)
	}
	return expired
}

// Len reports how many keys are currently tracked.
func (s *ExpireSet[K]) Len() int {
	return len(s.expireAt)
}
