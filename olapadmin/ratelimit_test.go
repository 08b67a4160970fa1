// Copyright 2025 Cubedeck
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package olapadmin

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestMemoryRateLimiter(t *testing.T) {
	limiter := NewMemoryRateLimiter(3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("caller-a") {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if limiter.Allow("caller-a") {
		t.Error("request over the limit should be denied")
	}

	// Limits are per caller.
	if !limiter.Allow("caller-b") {
		t.Error("a different caller must have its own budget")
	}
}

func TestRedisRateLimiter(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 3)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Close()

	allowed := 0
	for i := 0; i < 5; i++ {
		if limiter.Allow("caller-a") {
			allowed++
		}
	}
	if allowed != 3 {
		t.Errorf("expected 3 allowed requests, got %d", allowed)
	}

	if !limiter.Allow("caller-b") {
		t.Error("a different caller must have its own budget")
	}
}

func TestRedisRateLimiterFallsBackWhenRedisDies(t *testing.T) {
	mr := miniredis.RunT(t)

	limiter, err := NewRedisRateLimiter("redis://"+mr.Addr(), 2)
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	defer limiter.Close()

	mr.Close()

	// With Redis gone the in-memory fallback takes over and still enforces
	// the limit.
	if !limiter.Allow("caller-a") {
		t.Error("first fallback request should be allowed")
	}
	if !limiter.Allow("caller-a") {
		t.Error("second fallback request should be allowed")
	}
	if limiter.Allow("caller-a") {
		t.Error("fallback must enforce the limit")
	}
}

func TestRedisRateLimiterBadURL(t *testing.T) {
	if _, err := NewRedisRateLimiter("not-a-url", 10); err == nil {
		t.Error("expected error for malformed Redis URL")
	}
}
